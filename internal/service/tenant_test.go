package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiinvoice/invoicing-backend/internal/model"
	"github.com/digiinvoice/invoicing-backend/internal/store"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

type fakeRouter struct {
	created    []tenantdb.CreateTenantParams
	resolution *tenantdb.Resolution
	err        error
}

func (f *fakeRouter) CreateTenantDatabase(ctx context.Context, params tenantdb.CreateTenantParams) (*tenantdb.Resolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, params)
	return f.resolution, nil
}

func (f *fakeRouter) GetTenantDatabase(ctx context.Context, tenantID string) (*tenantdb.Resolution, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resolution, nil
}

type fakeRegistryStore struct {
	tenant      *model.Tenant
	deactivated []string
}

func (f *fakeRegistryStore) FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	if f.tenant == nil || f.tenant.TenantID != tenantID {
		return nil, store.ErrTenantNotFound
	}
	return f.tenant, nil
}

func (f *fakeRegistryStore) ListActive(ctx context.Context) ([]model.TenantInfo, error) {
	if f.tenant == nil {
		return nil, nil
	}
	return []model.TenantInfo{f.tenant.Info()}, nil
}

func (f *fakeRegistryStore) UpdateProfile(ctx context.Context, tenantID, businessName, province, address string) error {
	if f.tenant == nil || f.tenant.TenantID != tenantID {
		return store.ErrTenantNotFound
	}
	f.tenant.SellerBusinessName = businessName
	f.tenant.SellerProvince = province
	f.tenant.SellerAddress = address
	return nil
}

func (f *fakeRegistryStore) Deactivate(ctx context.Context, tenantID string) error {
	f.deactivated = append(f.deactivated, tenantID)
	return nil
}

func validRegisterInput() *RegisterTenantInput {
	return &RegisterTenantInput{
		SellerNTNCNIC:      "1234567890123",
		SellerBusinessName: "Acme Traders",
		SellerProvince:     "Punjab",
		SellerAddress:      "12 Mall Road, Lahore",
		DatabaseName:       "tenant_acme",
		SandboxToken:       "sb-token",
	}
}

func TestTenantService_Register(t *testing.T) {
	tenant := &model.Tenant{TenantID: "t-1", DatabaseName: "tenant_acme", IsActive: true}
	router := &fakeRouter{resolution: &tenantdb.Resolution{Tenant: tenant}}
	svc := NewTenantService(&fakeRegistryStore{}, router)

	result, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	assert.Equal(t, "tenant_acme", result.DatabaseName)
	assert.Equal(t, "t-1", result.Tenant.TenantID)

	require.Len(t, router.created, 1)
	assert.Equal(t, "sb-token", router.created[0].SandboxToken)
}

func TestTenantService_Register_Validation(t *testing.T) {
	svc := NewTenantService(&fakeRegistryStore{}, &fakeRouter{})
	ctx := context.Background()

	in := validRegisterInput()
	in.SellerNTNCNIC = ""
	_, err := svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validRegisterInput()
	in.DatabaseName = "Bad Name!"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validRegisterInput()
	in.SellerBusinessName = ""
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTenantService_Register_DuplicatePassesThrough(t *testing.T) {
	svc := NewTenantService(&fakeRegistryStore{}, &fakeRouter{err: store.ErrDuplicateTenant})

	_, err := svc.Register(context.Background(), validRegisterInput())
	assert.ErrorIs(t, err, store.ErrDuplicateTenant)
}

func TestTenantService_Update(t *testing.T) {
	reg := &fakeRegistryStore{tenant: &model.Tenant{TenantID: "t-1", SellerBusinessName: "Old", IsActive: true}}
	svc := NewTenantService(reg, &fakeRouter{})

	updated, err := svc.Update(context.Background(), "t-1", &UpdateTenantInput{
		SellerBusinessName: "New Name",
		SellerProvince:     "Sindh",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.SellerBusinessName)

	_, err = svc.Update(context.Background(), "t-1", &UpdateTenantInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), "missing", &UpdateTenantInput{SellerBusinessName: "X"})
	assert.ErrorIs(t, err, store.ErrTenantNotFound)
}

func TestTenantService_Stats(t *testing.T) {
	h := setupHandle(t, "svc_tenant_stats")
	require.NoError(t, h.DB().Create(&model.Buyer{
		BusinessName: "B1", Province: "Punjab", RegistrationType: "Registered",
	}).Error)
	require.NoError(t, h.DB().Create(&model.Invoice{InvoiceNumber: "INV-1", Status: model.StatusDraft}).Error)

	router := &fakeRouter{resolution: &tenantdb.Resolution{
		Tenant: &model.Tenant{TenantID: "t-1"},
		Handle: h,
	}}
	svc := NewTenantService(&fakeRegistryStore{}, router)

	stats, err := svc.Stats(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.BuyerCount)
	assert.Equal(t, int64(1), stats.InvoiceCount)
}
