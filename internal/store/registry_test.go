package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiinvoice/invoicing-backend/internal/crypto"
	"github.com/digiinvoice/invoicing-backend/internal/model"
)

const testKey = "0123456789abcdef0123456789abcdef"

func setupTestRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	cipher, err := crypto.New(testKey)
	require.NoError(t, err)

	reg := NewRegistryWithDB(db, nil, cipher)
	return reg, mock, func() { db.Close() }
}

func tenantRows(t *testing.T, reg *Registry, tenant *model.Tenant) *sqlmock.Rows {
	sandboxEnc, sandboxNonce, err := reg.cipher.Encrypt(tenant.SandboxToken)
	require.NoError(t, err)
	prodEnc, prodNonce, err := reg.cipher.Encrypt(tenant.ProductionToken)
	require.NoError(t, err)

	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "seller_ntn_cnic", "seller_business_name", "seller_province",
		"seller_address", "database_name", "is_active",
		"sandbox_token_enc", "sandbox_token_nonce", "production_token_enc", "production_token_nonce",
		"created_at", "updated_at",
	}).AddRow(
		tenant.ID, tenant.TenantID, tenant.SellerNTNCNIC, tenant.SellerBusinessName, tenant.SellerProvince,
		tenant.SellerAddress, tenant.DatabaseName, tenant.IsActive,
		sandboxEnc, sandboxNonce, prodEnc, prodNonce,
		now, now,
	)
}

func sampleTenant() *model.Tenant {
	return &model.Tenant{
		ID:                 1,
		TenantID:           "11111111-2222-3333-4444-555555555555",
		SellerNTNCNIC:      "1234567890123",
		SellerBusinessName: "Acme Traders",
		SellerProvince:     "Punjab",
		SellerAddress:      "12 Mall Road, Lahore",
		DatabaseName:       "tenant_acme",
		IsActive:           true,
		SandboxToken:       "sandbox-token",
		ProductionToken:    "production-token",
	}
}

func TestRegistry_FindByTenantID(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	tenant := sampleTenant()
	mock.ExpectQuery(`SELECT .+ FROM tenants WHERE tenant_id = \$1 AND is_active = TRUE`).
		WithArgs(tenant.TenantID).
		WillReturnRows(tenantRows(t, reg, tenant))

	got, err := reg.FindByTenantID(context.Background(), tenant.TenantID)
	assert.NoError(t, err)
	assert.Equal(t, tenant.DatabaseName, got.DatabaseName)
	assert.Equal(t, "sandbox-token", got.SandboxToken)
	assert.Equal(t, "production-token", got.ProductionToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry_FindByTenantID_NotFound(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`SELECT .+ FROM tenants WHERE tenant_id = \$1 AND is_active = TRUE`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := reg.FindByTenantID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestRegistry_FindByDatabaseName(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	tenant := sampleTenant()
	mock.ExpectQuery(`SELECT .+ FROM tenants WHERE database_name = \$1 AND is_active = TRUE`).
		WithArgs(tenant.DatabaseName).
		WillReturnRows(tenantRows(t, reg, tenant))

	got, err := reg.FindByDatabaseName(context.Background(), tenant.DatabaseName)
	assert.NoError(t, err)
	assert.Equal(t, tenant.TenantID, got.TenantID)
}

func TestRegistry_Create(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	tenant := sampleTenant()
	tenant.ID = 0

	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	err := reg.Create(context.Background(), tenant)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), tenant.ID)
	assert.NotEmpty(t, tenant.EncryptedSandbox, "token must be encrypted before insert")
	assert.NotEmpty(t, tenant.EncryptedProd)
}

func TestRegistry_Create_Duplicate(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_tenants_active_seller"})

	err := reg.Create(context.Background(), sampleTenant())
	assert.ErrorIs(t, err, ErrDuplicateTenant)
}

func TestRegistry_Create_DuplicateDatabaseName(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tenants_database_name_key"})

	err := reg.Create(context.Background(), sampleTenant())
	assert.ErrorIs(t, err, ErrDuplicateDatabaseName)
	assert.NotErrorIs(t, err, ErrDuplicateTenant)
}

func TestRegistry_ListActive(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "seller_ntn_cnic", "seller_business_name", "seller_province",
		"seller_address", "database_name", "is_active", "created_at",
	}).
		AddRow(1, "t-1", "111", "First", "Punjab", "addr 1", "tenant_first", true, now).
		AddRow(2, "t-2", "222", "Second", "Sindh", "addr 2", "tenant_second", true, now)

	mock.ExpectQuery(`SELECT .+ FROM tenants WHERE is_active = TRUE ORDER BY id`).
		WillReturnRows(rows)

	infos, err := reg.ListActive(context.Background())
	assert.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "tenant_first", infos[0].DatabaseName)
	assert.Equal(t, "tenant_second", infos[1].DatabaseName)
}

func TestRegistry_Deactivate(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`SELECT is_active FROM tenants WHERE tenant_id = \$1`).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectExec(`UPDATE tenants SET is_active = FALSE`).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, reg.Deactivate(context.Background(), "t-1"))
}

func TestRegistry_Deactivate_AlreadyInactive(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`SELECT is_active FROM tenants WHERE tenant_id = \$1`).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

	err := reg.Deactivate(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrTenantInactive)
}

func TestRegistry_UpdateProfile_NotFound(t *testing.T) {
	reg, mock, teardown := setupTestRegistry(t)
	defer teardown()

	mock.ExpectQuery(`SELECT is_active FROM tenants WHERE tenant_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	err := reg.UpdateProfile(context.Background(), "missing", "Name", "Punjab", "addr")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
