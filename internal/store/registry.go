package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/crypto"
	"github.com/digiinvoice/invoicing-backend/internal/model"
)

const (
	tenantCacheTTL    = 1 * time.Hour
	uniqueViolation   = "23505"
	tenantCachePrefix = "tenant:"
)

// RedisClient is the subset of redis.Client the registry uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Registry handles CRUD over the shared tenants table. Lookups by tenant id
// go through a Redis read-through cache when one is configured; gateway
// tokens are encrypted at rest and decrypted on the way out.
type Registry struct {
	db     *sql.DB
	redis  RedisClient
	cipher *crypto.Cipher
}

// NewRegistry opens the shared registry database. rdb may be nil to disable
// caching.
func NewRegistry(dsn string, rdb RedisClient, cipher *crypto.Cipher) (*Registry, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*config)
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &Registry{db: db, redis: rdb, cipher: cipher}, nil
}

// NewRegistryWithDB wraps an existing connection. Used by tests.
func NewRegistryWithDB(db *sql.DB, rdb RedisClient, cipher *crypto.Cipher) *Registry {
	return &Registry{db: db, redis: rdb, cipher: cipher}
}

// Close closes the database connection and the cache client.
func (r *Registry) Close() error {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return r.db.Close()
}

const tenantColumns = `id, tenant_id, seller_ntn_cnic, seller_business_name, seller_province,
	seller_address, database_name, is_active,
	sandbox_token_enc, sandbox_token_nonce, production_token_enc, production_token_nonce,
	created_at, updated_at`

func (r *Registry) scanTenant(row *sql.Row) (*model.Tenant, error) {
	t := &model.Tenant{}
	err := row.Scan(
		&t.ID, &t.TenantID, &t.SellerNTNCNIC, &t.SellerBusinessName, &t.SellerProvince,
		&t.SellerAddress, &t.DatabaseName, &t.IsActive,
		&t.EncryptedSandbox, &t.SandboxNonce, &t.EncryptedProd, &t.ProdNonce,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.decryptTokens(t); err != nil {
		return nil, err
	}
	return t, nil
}

// FindByTenantID retrieves an active tenant by its opaque identifier.
// Deactivated tenants are excluded from routing, so they surface as not found.
func (r *Registry) FindByTenantID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	key := tenantCachePrefix + tenantID
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, key).Result(); err == nil {
			t := &model.Tenant{}
			if err := json.Unmarshal([]byte(cached), t); err == nil {
				return t, nil
			}
		}
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_id = $1 AND is_active = TRUE`
	t, err := r.scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(t); err == nil {
			r.redis.SetEx(ctx, key, data, tenantCacheTTL)
		}
	}
	return t, nil
}

// FindByDatabaseName retrieves an active tenant by its physical database name.
func (r *Registry) FindByDatabaseName(ctx context.Context, name string) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE database_name = $1 AND is_active = TRUE`
	return r.scanTenant(r.db.QueryRowContext(ctx, query, name))
}

// FindBySellerTaxID retrieves an active tenant by seller NTN/CNIC.
func (r *Registry) FindBySellerTaxID(ctx context.Context, ntnCnic string) (*model.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE seller_ntn_cnic = $1 AND is_active = TRUE`
	return r.scanTenant(r.db.QueryRowContext(ctx, query, ntnCnic))
}

// ListActive returns all active tenants in registration order, mapped to the
// listing projection.
func (r *Registry) ListActive(ctx context.Context) ([]model.TenantInfo, error) {
	query := `SELECT id, tenant_id, seller_ntn_cnic, seller_business_name, seller_province,
		seller_address, database_name, is_active, created_at
		FROM tenants WHERE is_active = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []model.TenantInfo
	for rows.Next() {
		var t model.TenantInfo
		if err := rows.Scan(&t.ID, &t.TenantID, &t.SellerNTNCNIC, &t.SellerBusinessName,
			&t.SellerProvince, &t.SellerAddress, &t.DatabaseName, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Create inserts a new tenant row. A seller NTN/CNIC already present among
// active tenants fails with ErrDuplicateTenant.
func (r *Registry) Create(ctx context.Context, t *model.Tenant) error {
	if err := r.encryptTokens(t); err != nil {
		return err
	}
	t.IsActive = true
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt

	query := `INSERT INTO tenants (tenant_id, seller_ntn_cnic, seller_business_name, seller_province,
		seller_address, database_name, is_active,
		sandbox_token_enc, sandbox_token_nonce, production_token_enc, production_token_nonce,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		t.TenantID, t.SellerNTNCNIC, t.SellerBusinessName, t.SellerProvince,
		t.SellerAddress, t.DatabaseName, t.IsActive,
		t.EncryptedSandbox, t.SandboxNonce, t.EncryptedProd, t.ProdNonce,
		t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "database_name") {
				return ErrDuplicateDatabaseName
			}
			return ErrDuplicateTenant
		}
		return err
	}

	r.invalidate(ctx, t.TenantID)
	return nil
}

// UpdateProfile updates the descriptive seller attributes of a tenant.
func (r *Registry) UpdateProfile(ctx context.Context, tenantID, businessName, province, address string) error {
	if err := r.requireActive(ctx, tenantID); err != nil {
		return err
	}

	query := `UPDATE tenants SET seller_business_name = $2, seller_province = $3,
		seller_address = $4, updated_at = now()
		WHERE tenant_id = $1 AND is_active = TRUE`
	if _, err := r.db.ExecContext(ctx, query, tenantID, businessName, province, address); err != nil {
		return err
	}

	r.invalidate(ctx, tenantID)
	return nil
}

// Deactivate soft-deletes a tenant. Tenant data and any cached connection are
// left untouched; the tenant simply stops resolving.
func (r *Registry) Deactivate(ctx context.Context, tenantID string) error {
	if err := r.requireActive(ctx, tenantID); err != nil {
		return err
	}

	query := `UPDATE tenants SET is_active = FALSE, updated_at = now() WHERE tenant_id = $1`
	if _, err := r.db.ExecContext(ctx, query, tenantID); err != nil {
		return err
	}

	r.invalidate(ctx, tenantID)
	return nil
}

// LogProvisioningStep records a provisioning audit row.
func (r *Registry) LogProvisioningStep(ctx context.Context, tenantID, step, status string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	query := `INSERT INTO tenant_provisioning_logs (tenant_id, step, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.ExecContext(ctx, query, tenantID, step, status, detailsJSON, time.Now())
	return err
}

// requireActive distinguishes a missing tenant from a deactivated one for
// write paths that need to report the difference.
func (r *Registry) requireActive(ctx context.Context, tenantID string) error {
	var isActive bool
	err := r.db.QueryRowContext(ctx, `SELECT is_active FROM tenants WHERE tenant_id = $1`, tenantID).Scan(&isActive)
	if err == sql.ErrNoRows {
		return ErrTenantNotFound
	}
	if err != nil {
		return err
	}
	if !isActive {
		return ErrTenantInactive
	}
	return nil
}

func (r *Registry) invalidate(ctx context.Context, tenantID string) {
	if r.redis != nil {
		r.redis.Del(ctx, tenantCachePrefix+tenantID)
	}
}

func (r *Registry) encryptTokens(t *model.Tenant) error {
	if t.SandboxToken != "" {
		enc, nonce, err := r.cipher.Encrypt(t.SandboxToken)
		if err != nil {
			return fmt.Errorf("encrypt sandbox token: %w", err)
		}
		t.EncryptedSandbox, t.SandboxNonce = enc, nonce
	}
	if t.ProductionToken != "" {
		enc, nonce, err := r.cipher.Encrypt(t.ProductionToken)
		if err != nil {
			return fmt.Errorf("encrypt production token: %w", err)
		}
		t.EncryptedProd, t.ProdNonce = enc, nonce
	}
	return nil
}

func (r *Registry) decryptTokens(t *model.Tenant) error {
	if len(t.EncryptedSandbox) > 0 && len(t.SandboxNonce) > 0 {
		token, err := r.cipher.Decrypt(t.EncryptedSandbox, t.SandboxNonce)
		if err != nil {
			return fmt.Errorf("decrypt sandbox token: %w", err)
		}
		t.SandboxToken = token
	}
	if len(t.EncryptedProd) > 0 && len(t.ProdNonce) > 0 {
		token, err := r.cipher.Decrypt(t.EncryptedProd, t.ProdNonce)
		if err != nil {
			return fmt.Errorf("decrypt production token: %w", err)
		}
		t.ProductionToken = token
	}
	return nil
}
