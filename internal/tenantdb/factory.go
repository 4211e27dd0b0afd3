package tenantdb

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/digiinvoice/invoicing-backend/internal/config"
	"github.com/digiinvoice/invoicing-backend/internal/model"
)

// databaseNamePattern keeps tenant database names safe to interpolate as
// identifiers even though creation also quotes them.
var databaseNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,62}$`)

// ValidDatabaseName reports whether name is acceptable as a tenant database name.
func ValidDatabaseName(name string) bool {
	return databaseNamePattern.MatchString(name)
}

// DialectorFor produces a GORM dialector scoped to one physical database.
// Tests substitute a sqlite dialector here.
type DialectorFor func(databaseName string) gorm.Dialector

// EnsureDatabaseFunc creates the physical database if it does not exist.
type EnsureDatabaseFunc func(ctx context.Context, databaseName string) error

// Factory builds tenant database handles: a pooled connection with the
// Buyer, Invoice and InvoiceItem models bound, and create-or-alter schema
// sync for brand-new tenants.
type Factory struct {
	cfg          *config.DatabaseConfig
	dialectorFor DialectorFor
	ensure       EnsureDatabaseFunc
}

// NewFactory creates a PostgreSQL-backed factory.
func NewFactory(cfg *config.DatabaseConfig) *Factory {
	f := &Factory{cfg: cfg}
	f.dialectorFor = func(name string) gorm.Dialector {
		return postgres.Open(cfg.DSNFor(name))
	}
	f.ensure = f.ensurePostgresDatabase
	return f
}

// NewFactoryWith creates a factory with a custom dialector and database
// creation hook. Used by tests and alternative engines.
func NewFactoryWith(dialectorFor DialectorFor, ensure EnsureDatabaseFunc) *Factory {
	return &Factory{dialectorFor: dialectorFor, ensure: ensure}
}

// Open builds a handle for an existing tenant database. Automatic pinging
// is off so no connection is established here; the router runs the single,
// deadline-bounded ping before caching.
func (f *Factory) Open(databaseName string) (*Handle, error) {
	db, err := gorm.Open(f.dialectorFor(databaseName), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open tenant database %s: %w", databaseName, err)
	}

	if f.cfg != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(f.cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(f.cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(f.cfg.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(f.cfg.ConnMaxIdleTime)
	}

	return &Handle{databaseName: databaseName, db: db}, nil
}

// EnsureDatabase creates the physical database if it does not already exist.
func (f *Factory) EnsureDatabase(ctx context.Context, databaseName string) error {
	return f.ensure(ctx, databaseName)
}

// Migrate runs create-or-alter schema sync for the fixed entity set.
func (f *Factory) Migrate(h *Handle) error {
	return h.db.AutoMigrate(model.TenantEntities()...)
}

// Provision performs first-time setup of a brand-new tenant database:
// physical creation, connection, schema sync.
func (f *Factory) Provision(ctx context.Context, databaseName string) (*Handle, error) {
	if err := f.EnsureDatabase(ctx, databaseName); err != nil {
		return nil, &ProvisioningError{DatabaseName: databaseName, Step: "create_database", Err: err}
	}
	h, err := f.Open(databaseName)
	if err != nil {
		return nil, &ProvisioningError{DatabaseName: databaseName, Step: "connect", Err: err}
	}
	if err := f.Migrate(h); err != nil {
		h.Close()
		return nil, &ProvisioningError{DatabaseName: databaseName, Step: "schema_sync", Err: err}
	}
	return h, nil
}

// ensurePostgresDatabase creates the database through a maintenance
// connection. Postgres has no CREATE DATABASE IF NOT EXISTS, so existence is
// checked first; a concurrent creation losing that race is tolerated.
func (f *Factory) ensurePostgresDatabase(ctx context.Context, databaseName string) error {
	if !ValidDatabaseName(databaseName) {
		return fmt.Errorf("invalid database name %q", databaseName)
	}

	admin, err := sql.Open("postgres", f.cfg.AdminDSN())
	if err != nil {
		return err
	}
	defer admin.Close()

	var exists bool
	err = admin.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, databaseName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(databaseName))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "duplicate_database" {
			return nil
		}
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}
