package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/model"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

// DatabaseRouter is what the tenant service needs from the tenant database
// router.
type DatabaseRouter interface {
	CreateTenantDatabase(ctx context.Context, params tenantdb.CreateTenantParams) (*tenantdb.Resolution, error)
	GetTenantDatabase(ctx context.Context, tenantID string) (*tenantdb.Resolution, error)
}

// RegistryStore is what the tenant service needs from the shared registry.
type RegistryStore interface {
	FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]model.TenantInfo, error)
	UpdateProfile(ctx context.Context, tenantID, businessName, province, address string) error
	Deactivate(ctx context.Context, tenantID string) error
}

// TenantService covers seller onboarding and tenant administration.
type TenantService struct {
	registry RegistryStore
	router   DatabaseRouter
}

// NewTenantService creates a TenantService.
func NewTenantService(registry RegistryStore, router DatabaseRouter) *TenantService {
	return &TenantService{registry: registry, router: router}
}

// RegisterTenantInput is the seller onboarding payload.
type RegisterTenantInput struct {
	SellerNTNCNIC      string `json:"sellerNTNCNIC"`
	SellerBusinessName string `json:"sellerBusinessName"`
	SellerProvince     string `json:"sellerProvince"`
	SellerAddress      string `json:"sellerAddress"`
	DatabaseName       string `json:"databaseName"`
	SandboxToken       string `json:"sandboxTestToken"`
	ProductionToken    string `json:"sandboxProductionToken"`
}

func (in *RegisterTenantInput) validate() error {
	if in.SellerNTNCNIC == "" {
		return fmt.Errorf("%w: seller NTN/CNIC is required", ErrValidation)
	}
	if in.SellerBusinessName == "" {
		return fmt.Errorf("%w: seller business name is required", ErrValidation)
	}
	if in.DatabaseName == "" {
		return fmt.Errorf("%w: database name is required", ErrValidation)
	}
	if !tenantdb.ValidDatabaseName(in.DatabaseName) {
		return fmt.Errorf("%w: database name must be lowercase letters, digits or underscores", ErrValidation)
	}
	return nil
}

// RegisterTenantResult confirms a provisioned tenant back to the caller.
type RegisterTenantResult struct {
	Tenant       model.TenantInfo `json:"tenant"`
	DatabaseName string           `json:"database_name"`
}

// Register onboards a new seller: validates the payload, provisions the
// dedicated database through the router and returns the created record.
func (s *TenantService) Register(ctx context.Context, in *RegisterTenantInput) (*RegisterTenantResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	res, err := s.router.CreateTenantDatabase(ctx, tenantdb.CreateTenantParams{
		SellerNTNCNIC:      in.SellerNTNCNIC,
		SellerBusinessName: in.SellerBusinessName,
		SellerProvince:     in.SellerProvince,
		SellerAddress:      in.SellerAddress,
		DatabaseName:       in.DatabaseName,
		SandboxToken:       in.SandboxToken,
		ProductionToken:    in.ProductionToken,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant_id", res.Tenant.TenantID).
		Str("seller", in.SellerBusinessName).
		Msg("Tenant registered")

	return &RegisterTenantResult{
		Tenant:       res.Tenant.Info(),
		DatabaseName: res.Tenant.DatabaseName,
	}, nil
}

// List returns all active tenants.
func (s *TenantService) List(ctx context.Context) ([]model.TenantInfo, error) {
	return s.registry.ListActive(ctx)
}

// Get returns one active tenant with decrypted gateway tokens.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return s.registry.FindByTenantID(ctx, tenantID)
}

// UpdateTenantInput carries the mutable seller profile fields.
type UpdateTenantInput struct {
	SellerBusinessName string `json:"sellerBusinessName"`
	SellerProvince     string `json:"sellerProvince"`
	SellerAddress      string `json:"sellerAddress"`
}

// Update changes the descriptive profile of a tenant.
func (s *TenantService) Update(ctx context.Context, tenantID string, in *UpdateTenantInput) (*model.Tenant, error) {
	if in.SellerBusinessName == "" {
		return nil, fmt.Errorf("%w: seller business name is required", ErrValidation)
	}
	if err := s.registry.UpdateProfile(ctx, tenantID, in.SellerBusinessName, in.SellerProvince, in.SellerAddress); err != nil {
		return nil, err
	}
	return s.registry.FindByTenantID(ctx, tenantID)
}

// Deactivate soft-deletes a tenant. Data and cached connections are kept;
// the tenant stops resolving.
func (s *TenantService) Deactivate(ctx context.Context, tenantID string) error {
	return s.registry.Deactivate(ctx, tenantID)
}

// TenantStats are per-tenant row counts for the admin dashboard.
type TenantStats struct {
	TenantID     string `json:"tenant_id"`
	BuyerCount   int64  `json:"buyer_count"`
	InvoiceCount int64  `json:"invoice_count"`
}

// Stats counts buyers and invoices in a tenant's database.
func (s *TenantService) Stats(ctx context.Context, tenantID string) (*TenantStats, error) {
	res, err := s.router.GetTenantDatabase(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &TenantStats{TenantID: tenantID}
	if err := res.Handle.Buyers().WithContext(ctx).Count(&stats.BuyerCount).Error; err != nil {
		return nil, err
	}
	if err := res.Handle.Invoices().WithContext(ctx).Count(&stats.InvoiceCount).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
