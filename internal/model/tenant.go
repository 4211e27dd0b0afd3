package model

import "time"

// Tenant represents a row of the shared registry's tenants table. Gateway
// tokens are held in plaintext only in memory; the registry stores the
// encrypted columns.
type Tenant struct {
	ID                 int64     `json:"id"`
	TenantID           string    `json:"tenant_id"`
	SellerNTNCNIC      string    `json:"sellerNTNCNIC"`
	SellerBusinessName string    `json:"sellerBusinessName"`
	SellerProvince     string    `json:"sellerProvince"`
	SellerAddress      string    `json:"sellerAddress"`
	DatabaseName       string    `json:"database_name"`
	IsActive           bool      `json:"is_active"`
	SandboxToken       string    `json:"sandboxTestToken"`
	ProductionToken    string    `json:"sandboxProductionToken"`
	EncryptedSandbox   []byte    `json:"-"`
	SandboxNonce       []byte    `json:"-"`
	EncryptedProd      []byte    `json:"-"`
	ProdNonce          []byte    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TenantInfo is the listing projection of a tenant, field-mapped to the
// naming convention the admin frontend expects.
type TenantInfo struct {
	ID                 int64     `json:"id"`
	TenantID           string    `json:"tenant_id"`
	SellerNTNCNIC      string    `json:"sellerNTNCNIC"`
	SellerBusinessName string    `json:"sellerBusinessName"`
	SellerProvince     string    `json:"sellerProvince"`
	SellerAddress      string    `json:"sellerAddress"`
	DatabaseName       string    `json:"database_name"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// Info returns the listing projection of t.
func (t *Tenant) Info() TenantInfo {
	return TenantInfo{
		ID:                 t.ID,
		TenantID:           t.TenantID,
		SellerNTNCNIC:      t.SellerNTNCNIC,
		SellerBusinessName: t.SellerBusinessName,
		SellerProvince:     t.SellerProvince,
		SellerAddress:      t.SellerAddress,
		DatabaseName:       t.DatabaseName,
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt,
	}
}

// GatewayToken returns the token for the given gateway environment.
func (t *Tenant) GatewayToken(production bool) string {
	if production {
		return t.ProductionToken
	}
	return t.SandboxToken
}
