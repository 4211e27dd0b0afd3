package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Invoice lifecycle statuses. Submitted is terminal: the gateway has
// accepted the invoice and assigned it a number.
const (
	StatusDraft     = "draft"
	StatusSaved     = "saved"
	StatusSubmitted = "submitted"
)

// ErrNegativeLineValue rejects invoice items carrying negative quantities or
// prices; raised inside the insert transaction so the whole invoice rolls back.
var ErrNegativeLineValue = errors.New("invoice item values cannot be negative")

// Buyer is a per-tenant buyer record.
type Buyer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	NTNCNIC          string    `gorm:"column:buyer_ntn_cnic;size:50" json:"buyer_ntn_cnic"`
	BusinessName     string    `gorm:"column:buyer_business_name;size:255" json:"buyer_business_name"`
	Province         string    `gorm:"column:buyer_province;size:100;not null" json:"buyer_province"`
	Address          string    `gorm:"column:buyer_address;type:text" json:"buyer_address"`
	RegistrationType string    `gorm:"column:buyer_registration_type;size:100;not null" json:"buyer_registration_type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Buyer) TableName() string { return "buyers" }

// Invoice is a per-tenant invoice with snapshotted seller and buyer fields.
// The snapshots keep issued documents stable when profiles change later.
type Invoice struct {
	ID                    uint          `gorm:"primaryKey" json:"id"`
	InvoiceNumber         string        `gorm:"column:invoice_number;size:100;not null;uniqueIndex" json:"invoice_number"`
	InvoiceType           string        `gorm:"column:invoice_type;size:50" json:"invoice_type"`
	InvoiceDate           string        `gorm:"column:invoice_date;size:50" json:"invoice_date"`
	SellerNTNCNIC         string        `gorm:"column:seller_ntn_cnic;size:50" json:"seller_ntn_cnic"`
	SellerBusinessName    string        `gorm:"column:seller_business_name;size:255" json:"seller_business_name"`
	SellerProvince        string        `gorm:"column:seller_province;size:100" json:"seller_province"`
	SellerAddress         string        `gorm:"column:seller_address;type:text" json:"seller_address"`
	BuyerNTNCNIC          string        `gorm:"column:buyer_ntn_cnic;size:50" json:"buyer_ntn_cnic"`
	BuyerBusinessName     string        `gorm:"column:buyer_business_name;size:255" json:"buyer_business_name"`
	BuyerProvince         string        `gorm:"column:buyer_province;size:100" json:"buyer_province"`
	BuyerAddress          string        `gorm:"column:buyer_address;type:text" json:"buyer_address"`
	BuyerRegistrationType string        `gorm:"column:buyer_registration_type;size:100" json:"buyer_registration_type"`
	InvoiceRefNo          string        `gorm:"column:invoice_ref_no;size:100" json:"invoice_ref_no"`
	ScenarioID            string        `gorm:"column:scenario_id;size:100" json:"scenario_id"`
	Status                string        `gorm:"size:20;not null;default:draft" json:"status"`
	FBRInvoiceNumber      string        `gorm:"column:fbr_invoice_number;size:100" json:"fbr_invoice_number"`
	Items                 []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Submitted reports whether the invoice has reached its terminal status.
func (inv *Invoice) Submitted() bool { return inv.Status == StatusSubmitted }

// InvoiceItem is a line of an Invoice. Numeric columns tolerate placeholder
// input through the Numeric type.
type InvoiceItem struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	InvoiceID          uint      `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	HSCode             string    `gorm:"column:hs_code;size:50" json:"hs_code"`
	ProductDescription string    `gorm:"column:product_description;type:text" json:"product_description"`
	Rate               string    `gorm:"column:rate;size:50" json:"rate"`
	UOM                string    `gorm:"column:uom;size:50" json:"uom"`
	Quantity           Numeric   `gorm:"column:quantity;type:decimal(10,2)" json:"quantity"`
	UnitPrice          Numeric   `gorm:"column:unit_price;type:decimal(10,2)" json:"unit_price"`
	TotalValues        Numeric   `gorm:"column:total_values;type:decimal(10,2)" json:"total_values"`
	ValueSalesExclST   Numeric   `gorm:"column:value_sales_excluding_st;type:decimal(10,2)" json:"value_sales_excluding_st"`
	FixedNotifiedValue Numeric   `gorm:"column:fixed_notified_value_or_retail_price;type:decimal(10,2)" json:"fixed_notified_value_or_retail_price"`
	SalesTaxApplicable Numeric   `gorm:"column:sales_tax_applicable;type:decimal(10,2)" json:"sales_tax_applicable"`
	SalesTaxWithheld   Numeric   `gorm:"column:sales_tax_withheld_at_source;type:decimal(10,2)" json:"sales_tax_withheld_at_source"`
	ExtraTax           string    `gorm:"column:extra_tax;size:50" json:"extra_tax"`
	FurtherTax         Numeric   `gorm:"column:further_tax;type:decimal(10,2)" json:"further_tax"`
	SROScheduleNo      string    `gorm:"column:sro_schedule_no;size:50" json:"sro_schedule_no"`
	FEDPayable         Numeric   `gorm:"column:fed_payable;type:decimal(10,2)" json:"fed_payable"`
	Discount           Numeric   `gorm:"column:discount;type:decimal(10,2)" json:"discount"`
	SaleType           string    `gorm:"column:sale_type;size:50" json:"sale_type"`
	SROItemSerialNo    string    `gorm:"column:sro_item_serial_no;size:50" json:"sro_item_serial_no"`
	CreatedAt          time.Time `json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// BeforeSave rejects negative monetary values.
func (it *InvoiceItem) BeforeSave(tx *gorm.DB) error {
	for _, n := range []Numeric{it.Quantity, it.UnitPrice, it.TotalValues, it.SalesTaxApplicable} {
		if n.Negative() {
			return ErrNegativeLineValue
		}
	}
	return nil
}

// TenantEntities lists the fixed per-tenant model set in migration order.
func TenantEntities() []any {
	return []any{&Buyer{}, &Invoice{}, &InvoiceItem{}}
}
