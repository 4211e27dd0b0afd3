package tenantdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/digiinvoice/invoicing-backend/internal/model"
)

// Handle is the runtime bundle for one tenant database: a live pooled
// connection with the fixed entity set bound to it. A Handle is created
// lazily per database name, owned by the router's cache, and shared
// read-only by every concurrent request for that tenant.
type Handle struct {
	databaseName string
	db           *gorm.DB
}

// DatabaseName returns the physical database this handle is bound to.
func (h *Handle) DatabaseName() string { return h.databaseName }

// DB exposes the underlying connection for ad-hoc queries.
func (h *Handle) DB() *gorm.DB { return h.db }

// Buyers returns a query builder bound to the tenant's buyers table.
func (h *Handle) Buyers() *gorm.DB { return h.db.Model(&model.Buyer{}) }

// Invoices returns a query builder bound to the tenant's invoices table.
func (h *Handle) Invoices() *gorm.DB { return h.db.Model(&model.Invoice{}) }

// InvoiceItems returns a query builder bound to the tenant's invoice_items table.
func (h *Handle) InvoiceItems() *gorm.DB { return h.db.Model(&model.InvoiceItem{}) }

// Transaction runs fn inside a single database transaction.
func (h *Handle) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return h.db.WithContext(ctx).Transaction(fn)
}

// Ping verifies the handle can actually reach its database.
func (h *Handle) Ping(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close tears down the underlying connection pool. Only the router calls
// this, during full shutdown.
func (h *Handle) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
