package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/digiinvoice/invoicing-backend/internal/fbr"
	"github.com/digiinvoice/invoicing-backend/internal/service"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

// CrossTenantSearchFunc searches every active tenant for an invoice number.
type CrossTenantSearchFunc func(ctx context.Context, invoiceNumber string) (*tenantdb.InvoiceMatch, []tenantdb.TenantSearchResult, error)

// InvoiceHandler exposes the tenant-scoped invoice endpoints plus the
// admin-only cross-tenant search.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	search   CrossTenantSearchFunc
}

func NewInvoiceHandler(invoices *service.InvoiceService, search CrossTenantSearchFunc) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, search: search}
}

func invoiceID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid invoice id")
	}
	return uint(id), nil
}

func (h *InvoiceHandler) Create(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	var in service.InvoiceInput
	if err := c.Bind(&in); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	inv, err := h.invoices.Create(c.Request().Context(), res.Handle, &in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Invoice created successfully", inv)
}

func (h *InvoiceHandler) List(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	invoices, pagination, err := h.invoices.List(c.Request().Context(), res.Handle, service.ListInvoicesParams{
		Page:      page,
		Limit:     limit,
		Search:    c.QueryParam("search"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoices retrieved successfully", echo.Map{
		"invoices":   invoices,
		"pagination": pagination,
	})
}

func (h *InvoiceHandler) Get(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := invoiceID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	inv, err := h.invoices.GetByID(c.Request().Context(), res.Handle, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice retrieved successfully", inv)
}

func (h *InvoiceHandler) Update(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := invoiceID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	var upd service.InvoiceUpdate
	if err := c.Bind(&upd); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	inv, err := h.invoices.Update(c.Request().Context(), res.Handle, id, &upd)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice updated successfully", inv)
}

func (h *InvoiceHandler) Delete(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := invoiceID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	if err := h.invoices.Delete(c.Request().Context(), res.Handle, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice deleted successfully", nil)
}

func (h *InvoiceHandler) Save(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := invoiceID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	inv, err := h.invoices.Save(c.Request().Context(), res.Handle, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice saved successfully", inv)
}

func (h *InvoiceHandler) Submit(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := invoiceID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	env := fbr.Sandbox
	if c.QueryParam("environment") == "production" {
		env = fbr.Production
	}

	inv, err := h.invoices.Submit(c.Request().Context(), res, id, env)
	if err != nil {
		var subErr *fbr.SubmissionError
		if errors.As(err, &subErr) {
			return respond(c, http.StatusBadGateway, subErr.Error(), echo.Map{
				"invoice": inv,
				"remarks": subErr.Remarks,
			})
		}
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice submitted successfully", inv)
}

func (h *InvoiceHandler) Stats(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	stats, err := h.invoices.Stats(c.Request().Context(), res.Handle)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Invoice statistics retrieved successfully", stats)
}

// SearchAcrossTenants scans every active tenant database for an invoice
// number and reports per-tenant outcomes alongside any match.
func (h *InvoiceHandler) SearchAcrossTenants(c echo.Context) error {
	invoiceNumber := c.Param("invoiceNumber")
	if invoiceNumber == "" {
		return respond(c, http.StatusBadRequest, "invoice number is required", nil)
	}

	match, searched, err := h.search(c.Request().Context(), invoiceNumber)
	if err != nil {
		return fail(c, err)
	}

	if match == nil {
		return respond(c, http.StatusNotFound, "Invoice not found in any tenant database", echo.Map{
			"searched_tenants": searched,
		})
	}
	return respond(c, http.StatusOK, "Invoice found", echo.Map{
		"invoice":          match.Invoice,
		"tenant":           match.Tenant,
		"searched_tenants": searched,
	})
}
