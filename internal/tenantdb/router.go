package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/digiinvoice/invoicing-backend/internal/model"
	"github.com/digiinvoice/invoicing-backend/internal/monitoring"
	"github.com/digiinvoice/invoicing-backend/internal/store"
)

// TenantRegistry is what the router needs from the shared registry.
type TenantRegistry interface {
	FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error)
	FindByDatabaseName(ctx context.Context, name string) (*model.Tenant, error)
	FindBySellerTaxID(ctx context.Context, ntnCnic string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]model.TenantInfo, error)
	Create(ctx context.Context, t *model.Tenant) error
	Deactivate(ctx context.Context, tenantID string) error
	LogProvisioningStep(ctx context.Context, tenantID, step, status string, details interface{}) error
}

// Resolution is what a resolved tenant request carries downstream: the
// registry record plus the live data store handle.
type Resolution struct {
	Tenant *model.Tenant
	Handle *Handle
}

// CreateTenantParams is the provisioning payload for a new tenant.
type CreateTenantParams struct {
	SellerNTNCNIC      string
	SellerBusinessName string
	SellerProvince     string
	SellerAddress      string
	DatabaseName       string
	SandboxToken       string
	ProductionToken    string
}

// TenantSearchResult reports the per-tenant outcome of a cross-tenant
// search, so callers can tell which tenants were actually searched.
type TenantSearchResult struct {
	TenantID     string `json:"tenant_id"`
	DatabaseName string `json:"database_name"`
	Status       string `json:"status"` // matched, searched, error
	Error        string `json:"error,omitempty"`
}

// InvoiceMatch is a cross-tenant search hit.
type InvoiceMatch struct {
	Invoice    *model.Invoice
	Tenant     model.TenantInfo
	Resolution *Resolution
}

// Router resolves tenant identifiers to live data store handles. It owns the
// process-wide handle cache, keyed by physical database name: at most one
// handle exists per database, concurrent first resolutions collapse into a
// single provisioning attempt, and failed connections are never cached.
type Router struct {
	registry       TenantRegistry
	factory        *Factory
	resolveTimeout time.Duration

	mu      sync.RWMutex
	handles map[string]*Handle
	group   singleflight.Group
}

// NewRouter creates a router. resolveTimeout bounds each connection attempt;
// zero means 10 seconds.
func NewRouter(registry TenantRegistry, factory *Factory, resolveTimeout time.Duration) *Router {
	if resolveTimeout <= 0 {
		resolveTimeout = 10 * time.Second
	}
	return &Router{
		registry:       registry,
		factory:        factory,
		resolveTimeout: resolveTimeout,
		handles:        make(map[string]*Handle),
	}
}

// GetTenantDatabase resolves a tenant identifier to its registry record and
// cached handle, opening the connection on first use.
func (r *Router) GetTenantDatabase(ctx context.Context, tenantID string) (*Resolution, error) {
	tenant, err := r.registry.FindByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	h, err := r.handle(ctx, tenant.DatabaseName)
	if err != nil {
		return nil, err
	}
	return &Resolution{Tenant: tenant, Handle: h}, nil
}

// GetTenantDatabaseByName resolves the owning tenant of a physical database
// name, then delegates to GetTenantDatabase.
func (r *Router) GetTenantDatabaseByName(ctx context.Context, databaseName string) (*Resolution, error) {
	tenant, err := r.registry.FindByDatabaseName(ctx, databaseName)
	if err != nil {
		return nil, err
	}
	return r.GetTenantDatabase(ctx, tenant.TenantID)
}

// handle returns the cached handle for databaseName, opening and verifying a
// new one on a miss. Concurrent misses for the same name share one attempt
// through the singleflight group.
func (r *Router) handle(ctx context.Context, databaseName string) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[databaseName]
	r.mu.RUnlock()
	if ok {
		monitoring.HandleCacheHits.Inc()
		return h, nil
	}
	monitoring.HandleCacheMisses.Inc()

	v, err, _ := r.group.Do(databaseName, func() (interface{}, error) {
		// Another flight may have just populated the cache.
		r.mu.RLock()
		h, ok := r.handles[databaseName]
		r.mu.RUnlock()
		if ok {
			return h, nil
		}

		connectCtx, cancel := context.WithTimeout(ctx, r.resolveTimeout)
		defer cancel()

		h, err := r.factory.Open(databaseName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		if err := h.Ping(connectCtx); err != nil {
			h.Close()
			if errors.Is(connectCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrConnectionTimeout, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}

		h = r.intern(h)

		log.Info().Str("database", databaseName).Msg("Tenant database handle opened")
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// intern stores h under its database name unless another handle already won
// the race for that key. The loser is closed, so at most one live handle
// exists per database no matter which path opened it.
func (r *Router) intern(h *Handle) *Handle {
	r.mu.Lock()
	if existing, ok := r.handles[h.databaseName]; ok {
		r.mu.Unlock()
		if err := h.Close(); err != nil {
			log.Warn().Err(err).Str("database", h.databaseName).Msg("Failed to close redundant tenant database handle")
		}
		return existing
	}
	r.handles[h.databaseName] = h
	r.mu.Unlock()
	monitoring.OpenTenantHandles.Inc()
	return h
}

// CreateTenantDatabase provisions a brand-new tenant: physical database,
// registry row, schema sync, pre-populated cache entry. A duplicate seller
// NTN/CNIC fails before any physical work. If schema sync fails after the
// registry row was written, the row is deactivated as compensation and the
// failure is reported as a ProvisioningError.
func (r *Router) CreateTenantDatabase(ctx context.Context, params CreateTenantParams) (*Resolution, error) {
	start := time.Now()

	if !ValidDatabaseName(params.DatabaseName) {
		return nil, &ProvisioningError{DatabaseName: params.DatabaseName, Step: "validate",
			Err: fmt.Errorf("invalid database name %q", params.DatabaseName)}
	}

	_, err := r.registry.FindBySellerTaxID(ctx, params.SellerNTNCNIC)
	if err == nil {
		return nil, store.ErrDuplicateTenant
	}
	if !errors.Is(err, store.ErrTenantNotFound) {
		return nil, err
	}

	tenantID := uuid.NewString()
	r.logStep(ctx, tenantID, "create_database", "in_progress", map[string]string{"database": params.DatabaseName})

	if err := r.factory.EnsureDatabase(ctx, params.DatabaseName); err != nil {
		r.logStep(ctx, tenantID, "create_database", "failed", map[string]string{"error": err.Error()})
		monitoring.TenantsProvisioned.WithLabelValues("error").Inc()
		return nil, &ProvisioningError{DatabaseName: params.DatabaseName, Step: "create_database", Err: err}
	}

	tenant := &model.Tenant{
		TenantID:           tenantID,
		SellerNTNCNIC:      params.SellerNTNCNIC,
		SellerBusinessName: params.SellerBusinessName,
		SellerProvince:     params.SellerProvince,
		SellerAddress:      params.SellerAddress,
		DatabaseName:       params.DatabaseName,
		SandboxToken:       params.SandboxToken,
		ProductionToken:    params.ProductionToken,
	}
	if err := r.registry.Create(ctx, tenant); err != nil {
		monitoring.TenantsProvisioned.WithLabelValues("error").Inc()
		return nil, err
	}

	h, err := r.factory.Provision(ctx, params.DatabaseName)
	if err != nil {
		// Compensating action: the registry row exists but the tenant has no
		// usable schema. Deactivate it so it cannot resolve.
		if derr := r.registry.Deactivate(ctx, tenantID); derr != nil {
			log.Error().Err(derr).Str("tenant_id", tenantID).Msg("Failed to deactivate tenant after provisioning failure")
		}
		r.logStep(ctx, tenantID, "schema_sync", "failed", map[string]string{"error": err.Error()})
		monitoring.TenantsProvisioned.WithLabelValues("error").Inc()
		monitoring.Alert("tenant provisioning failed", map[string]string{
			"tenant_id": tenantID,
			"database":  params.DatabaseName,
		})
		return nil, err
	}

	// A concurrent resolution may have cached a handle for this database
	// between the registry insert and here; interning keeps exactly one.
	h = r.intern(h)
	r.logStep(ctx, tenantID, "schema_sync", "success", nil)
	monitoring.TenantsProvisioned.WithLabelValues("success").Inc()
	monitoring.ProvisioningDuration.Observe(time.Since(start).Seconds())

	log.Info().
		Str("tenant_id", tenantID).
		Str("database", params.DatabaseName).
		Msg("Tenant database provisioned")

	return &Resolution{Tenant: tenant, Handle: h}, nil
}

// FindInvoiceAcrossTenants scans all active tenants in listing order for an
// invoice number. Tenants that cannot be searched are reported and skipped;
// one unreachable tenant never aborts the overall search.
func (r *Router) FindInvoiceAcrossTenants(ctx context.Context, invoiceNumber string) (*InvoiceMatch, []TenantSearchResult, error) {
	tenants, err := r.registry.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	results := make([]TenantSearchResult, 0, len(tenants))
	for _, ti := range tenants {
		res, err := r.GetTenantDatabase(ctx, ti.TenantID)
		if err != nil {
			results = append(results, TenantSearchResult{
				TenantID: ti.TenantID, DatabaseName: ti.DatabaseName,
				Status: "error", Error: err.Error(),
			})
			monitoring.Alert("tenant unreachable during cross-tenant search", map[string]string{
				"tenant_id": ti.TenantID,
				"database":  ti.DatabaseName,
			})
			continue
		}

		var inv model.Invoice
		err = res.Handle.Invoices().WithContext(ctx).
			Where("invoice_number = ?", invoiceNumber).
			First(&inv).Error
		if err == nil {
			results = append(results, TenantSearchResult{
				TenantID: ti.TenantID, DatabaseName: ti.DatabaseName, Status: "matched",
			})
			monitoring.CrossTenantSearches.WithLabelValues("found").Inc()
			return &InvoiceMatch{Invoice: &inv, Tenant: ti, Resolution: res}, results, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			results = append(results, TenantSearchResult{
				TenantID: ti.TenantID, DatabaseName: ti.DatabaseName, Status: "searched",
			})
			continue
		}
		results = append(results, TenantSearchResult{
			TenantID: ti.TenantID, DatabaseName: ti.DatabaseName,
			Status: "error", Error: err.Error(),
		})
	}

	monitoring.CrossTenantSearches.WithLabelValues("not_found").Inc()
	return nil, results, nil
}

// CloseAllConnections closes every cached handle and clears the cache.
// Intended for graceful process shutdown only.
func (r *Router) CloseAllConnections() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, h := range r.handles {
		if err := h.Close(); err != nil {
			log.Warn().Err(err).Str("database", name).Msg("Failed to close tenant database handle")
		} else {
			log.Info().Str("database", name).Msg("Closed tenant database handle")
		}
		delete(r.handles, name)
	}
	monitoring.OpenTenantHandles.Set(0)
}

func (r *Router) logStep(ctx context.Context, tenantID, step, status string, details interface{}) {
	if err := r.registry.LogProvisioningStep(ctx, tenantID, step, status, details); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Str("step", step).Msg("Failed to record provisioning log")
	}
}
