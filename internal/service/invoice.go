package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/digiinvoice/invoicing-backend/internal/fbr"
	"github.com/digiinvoice/invoicing-backend/internal/model"
	"github.com/digiinvoice/invoicing-backend/internal/monitoring"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

// Gateway is what the invoice service needs from the FBR client.
type Gateway interface {
	PostInvoice(ctx context.Context, token string, env fbr.Environment, inv *model.Invoice) (*fbr.SubmissionResult, error)
}

// InvoiceService covers per-tenant invoice CRUD, the draft→saved→submitted
// lifecycle and gateway submission. All operations run against the handle of
// the tenant the request resolved to.
type InvoiceService struct {
	gateway Gateway
}

// NewInvoiceService creates an InvoiceService.
func NewInvoiceService(gateway Gateway) *InvoiceService {
	return &InvoiceService{gateway: gateway}
}

// ItemInput is one invoice line as submitted by the frontend. Field names
// follow the gateway's camelCase convention; numeric fields tolerate
// ""/"N/A" placeholders.
type ItemInput struct {
	HSCode             string        `json:"hsCode"`
	ProductDescription string        `json:"productDescription"`
	Rate               string        `json:"rate"`
	UOM                string        `json:"uoM"`
	Quantity           model.Numeric `json:"quantity"`
	UnitPrice          model.Numeric `json:"unitPrice"`
	TotalValues        model.Numeric `json:"totalValues"`
	ValueSalesExclST   model.Numeric `json:"valueSalesExcludingST"`
	FixedNotifiedValue model.Numeric `json:"fixedNotifiedValueOrRetailPrice"`
	SalesTaxApplicable model.Numeric `json:"salesTaxApplicable"`
	SalesTaxWithheld   model.Numeric `json:"salesTaxWithheldAtSource"`
	ExtraTax           string        `json:"extraTax"`
	FurtherTax         model.Numeric `json:"furtherTax"`
	SROScheduleNo      string        `json:"sroScheduleNo"`
	FEDPayable         model.Numeric `json:"fedPayable"`
	Discount           model.Numeric `json:"discount"`
	SaleType           string        `json:"saleType"`
	SROItemSerialNo    string        `json:"sroItemSerialNo"`
}

func (in *ItemInput) toModel(invoiceID uint) model.InvoiceItem {
	return model.InvoiceItem{
		InvoiceID:          invoiceID,
		HSCode:             in.HSCode,
		ProductDescription: in.ProductDescription,
		Rate:               in.Rate,
		UOM:                in.UOM,
		Quantity:           in.Quantity,
		UnitPrice:          in.UnitPrice,
		TotalValues:        in.TotalValues,
		ValueSalesExclST:   in.ValueSalesExclST,
		FixedNotifiedValue: in.FixedNotifiedValue,
		SalesTaxApplicable: in.SalesTaxApplicable,
		SalesTaxWithheld:   in.SalesTaxWithheld,
		ExtraTax:           in.ExtraTax,
		FurtherTax:         in.FurtherTax,
		SROScheduleNo:      in.SROScheduleNo,
		FEDPayable:         in.FEDPayable,
		Discount:           in.Discount,
		SaleType:           in.SaleType,
		SROItemSerialNo:    in.SROItemSerialNo,
	}
}

// InvoiceInput is the invoice creation payload.
type InvoiceInput struct {
	InvoiceNumber         string      `json:"invoice_number"`
	InvoiceType           string      `json:"invoice_type"`
	InvoiceDate           string      `json:"invoice_date"`
	SellerNTNCNIC         string      `json:"seller_ntn_cnic"`
	SellerBusinessName    string      `json:"seller_business_name"`
	SellerProvince        string      `json:"seller_province"`
	SellerAddress         string      `json:"seller_address"`
	BuyerNTNCNIC          string      `json:"buyer_ntn_cnic"`
	BuyerBusinessName     string      `json:"buyer_business_name"`
	BuyerProvince         string      `json:"buyer_province"`
	BuyerAddress          string      `json:"buyer_address"`
	BuyerRegistrationType string      `json:"buyer_registration_type"`
	InvoiceRefNo          string      `json:"invoice_ref_no"`
	ScenarioID            string      `json:"scenario_id"`
	Items                 []ItemInput `json:"items"`
}

// Create inserts an invoice with its items in a single transaction: either
// the parent row and every item land, or nothing does.
func (s *InvoiceService) Create(ctx context.Context, h *tenantdb.Handle, in *InvoiceInput) (*model.Invoice, error) {
	if in.InvoiceNumber == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrValidation)
	}

	var existing model.Invoice
	err := h.Invoices().WithContext(ctx).Where("invoice_number = ?", in.InvoiceNumber).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateInvoice
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	inv := model.Invoice{
		InvoiceNumber:         in.InvoiceNumber,
		InvoiceType:           in.InvoiceType,
		InvoiceDate:           in.InvoiceDate,
		SellerNTNCNIC:         in.SellerNTNCNIC,
		SellerBusinessName:    in.SellerBusinessName,
		SellerProvince:        in.SellerProvince,
		SellerAddress:         in.SellerAddress,
		BuyerNTNCNIC:          in.BuyerNTNCNIC,
		BuyerBusinessName:     in.BuyerBusinessName,
		BuyerProvince:         in.BuyerProvince,
		BuyerAddress:          in.BuyerAddress,
		BuyerRegistrationType: in.BuyerRegistrationType,
		InvoiceRefNo:          in.InvoiceRefNo,
		ScenarioID:            in.ScenarioID,
		Status:                model.StatusDraft,
	}

	err = h.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		for i := range in.Items {
			item := in.Items[i].toModel(inv.ID)
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			inv.Items = append(inv.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Int("items", len(inv.Items)).
		Msg("Invoice created")
	return &inv, nil
}

// ListInvoicesParams controls pagination and filtering.
type ListInvoicesParams struct {
	Page      int
	Limit     int
	Search    string
	StartDate string
	EndDate   string
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalRecords int64 `json:"total_records"`
	PerPage      int   `json:"records_per_page"`
}

// List returns a page of invoices, newest first, with optional search over
// invoice number and party names and an optional creation date range.
func (s *InvoiceService) List(ctx context.Context, h *tenantdb.Handle, params ListInvoicesParams) ([]model.Invoice, *Pagination, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	q := h.Invoices().WithContext(ctx)
	if params.Search != "" {
		like := "%" + params.Search + "%"
		q = q.Where("invoice_number LIKE ? OR buyer_business_name LIKE ? OR seller_business_name LIKE ?",
			like, like, like)
	}
	if params.StartDate != "" && params.EndDate != "" {
		q = q.Where("created_at BETWEEN ? AND ?", params.StartDate, params.EndDate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var invoices []model.Invoice
	err := q.Order("created_at DESC").
		Limit(params.Limit).
		Offset((params.Page - 1) * params.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, nil, err
	}

	return invoices, &Pagination{
		CurrentPage:  params.Page,
		TotalPages:   int(math.Ceil(float64(total) / float64(params.Limit))),
		TotalRecords: total,
		PerPage:      params.Limit,
	}, nil
}

// GetByID loads an invoice with its items.
func (s *InvoiceService) GetByID(ctx context.Context, h *tenantdb.Handle, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := h.DB().WithContext(ctx).Preload("Items").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByNumber loads an invoice by its tenant-unique number, with items.
func (s *InvoiceService) GetByNumber(ctx context.Context, h *tenantdb.Handle, invoiceNumber string) (*model.Invoice, error) {
	var inv model.Invoice
	err := h.DB().WithContext(ctx).Preload("Items").
		Where("invoice_number = ?", invoiceNumber).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// InvoiceUpdate carries the mutable invoice header fields. Nil pointers are
// left untouched.
type InvoiceUpdate struct {
	InvoiceType           *string `json:"invoice_type"`
	InvoiceDate           *string `json:"invoice_date"`
	BuyerNTNCNIC          *string `json:"buyer_ntn_cnic"`
	BuyerBusinessName     *string `json:"buyer_business_name"`
	BuyerProvince         *string `json:"buyer_province"`
	BuyerAddress          *string `json:"buyer_address"`
	BuyerRegistrationType *string `json:"buyer_registration_type"`
	InvoiceRefNo          *string `json:"invoice_ref_no"`
	ScenarioID            *string `json:"scenario_id"`
}

func (u *InvoiceUpdate) changes() map[string]interface{} {
	set := map[string]interface{}{}
	add := func(col string, v *string) {
		if v != nil {
			set[col] = *v
		}
	}
	add("invoice_type", u.InvoiceType)
	add("invoice_date", u.InvoiceDate)
	add("buyer_ntn_cnic", u.BuyerNTNCNIC)
	add("buyer_business_name", u.BuyerBusinessName)
	add("buyer_province", u.BuyerProvince)
	add("buyer_address", u.BuyerAddress)
	add("buyer_registration_type", u.BuyerRegistrationType)
	add("invoice_ref_no", u.InvoiceRefNo)
	add("scenario_id", u.ScenarioID)
	return set
}

// Update modifies invoice header fields. Submitted invoices are immutable.
func (s *InvoiceService) Update(ctx context.Context, h *tenantdb.Handle, id uint, upd *InvoiceUpdate) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, h, id)
	if err != nil {
		return nil, err
	}
	if inv.Submitted() {
		return nil, ErrInvoiceSubmitted
	}

	set := upd.changes()
	if len(set) == 0 {
		return inv, nil
	}
	if err := h.DB().WithContext(ctx).Model(inv).Updates(set).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, h, id)
}

// Delete removes an invoice and its items.
func (s *InvoiceService) Delete(ctx context.Context, h *tenantdb.Handle, id uint) error {
	inv, err := s.GetByID(ctx, h, id)
	if err != nil {
		return err
	}
	return h.DB().WithContext(ctx).Select("Items").Delete(inv).Error
}

// Save moves a draft invoice to saved. Saving an already-saved invoice is a
// no-op; a submitted invoice cannot move back.
func (s *InvoiceService) Save(ctx context.Context, h *tenantdb.Handle, id uint) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, h, id)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case model.StatusSubmitted:
		return nil, ErrInvoiceSubmitted
	case model.StatusSaved:
		return inv, nil
	}

	if err := h.DB().WithContext(ctx).Model(inv).Update("status", model.StatusSaved).Error; err != nil {
		return nil, err
	}
	inv.Status = model.StatusSaved
	return inv, nil
}

// Submit posts an invoice to the FBR gateway using the owning tenant's token
// for the chosen environment. On acceptance the gateway-assigned number is
// stored and the invoice reaches its terminal submitted status. On rejection
// the invoice is left untouched and safe to retry.
func (s *InvoiceService) Submit(ctx context.Context, res *tenantdb.Resolution, id uint, env fbr.Environment) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, res.Handle, id)
	if err != nil {
		return nil, err
	}
	if inv.Submitted() {
		return nil, ErrInvoiceSubmitted
	}

	token := res.Tenant.GatewayToken(env == fbr.Production)
	result, err := s.gateway.PostInvoice(ctx, token, env, inv)
	if err != nil {
		monitoring.InvoicesSubmitted.WithLabelValues("error").Inc()
		return nil, err
	}

	err = res.Handle.DB().WithContext(ctx).Model(inv).Updates(map[string]interface{}{
		"status":             model.StatusSubmitted,
		"fbr_invoice_number": result.InvoiceNumber,
	}).Error
	if err != nil {
		return nil, err
	}
	inv.Status = model.StatusSubmitted
	inv.FBRInvoiceNumber = result.InvoiceNumber

	monitoring.InvoicesSubmitted.WithLabelValues("success").Inc()
	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Str("fbr_invoice_number", inv.FBRInvoiceNumber).
		Str("environment", string(env)).
		Msg("Invoice submitted to gateway")
	return inv, nil
}

// InvoiceStats summarizes a tenant's invoices.
type InvoiceStats struct {
	TotalInvoices int64            `json:"total_invoices"`
	TotalAmount   float64          `json:"total_amount"`
	ByStatus      map[string]int64 `json:"by_status"`
	ByMonth       map[string]int64 `json:"by_month"`
}

// Stats counts invoices, groups them by status and issue month, and sums
// line totals.
func (s *InvoiceService) Stats(ctx context.Context, h *tenantdb.Handle) (*InvoiceStats, error) {
	stats := &InvoiceStats{ByStatus: map[string]int64{}, ByMonth: map[string]int64{}}

	if err := h.Invoices().WithContext(ctx).Count(&stats.TotalInvoices).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	err := h.Invoices().WithContext(ctx).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	// invoice_date is stored as YYYY-MM-DD, so the month is a plain prefix.
	var months []struct {
		Month string
		Count int64
	}
	err = h.Invoices().WithContext(ctx).
		Select("substr(invoice_date, 1, 7) AS month, COUNT(*) AS count").
		Where("invoice_date <> ''").
		Group("substr(invoice_date, 1, 7)").
		Scan(&months).Error
	if err != nil {
		return nil, err
	}
	for _, row := range months {
		stats.ByMonth[row.Month] = row.Count
	}

	err = h.DB().WithContext(ctx).
		Table("invoice_items").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Select("COALESCE(SUM(invoice_items.total_values), 0)").
		Scan(&stats.TotalAmount).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
