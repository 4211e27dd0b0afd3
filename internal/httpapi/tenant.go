package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/digiinvoice/invoicing-backend/internal/service"
)

// TenantHandler exposes the admin tenant management endpoints.
type TenantHandler struct {
	tenants *service.TenantService
}

func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Register provisions a new tenant: registry row, physical database and
// schema, token encryption, all behind one call.
func (h *TenantHandler) Register(c echo.Context) error {
	var in service.RegisterTenantInput
	if err := c.Bind(&in); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	result, err := h.tenants.Register(c.Request().Context(), &in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Tenant registered successfully", result)
}

func (h *TenantHandler) List(c echo.Context) error {
	infos, err := h.tenants.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenants retrieved successfully", infos)
}

func (h *TenantHandler) Get(c echo.Context) error {
	tenant, err := h.tenants.Get(c.Request().Context(), c.Param("tenantId"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenant retrieved successfully", tenant.Info())
}

func (h *TenantHandler) Update(c echo.Context) error {
	var in service.UpdateTenantInput
	if err := c.Bind(&in); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	tenant, err := h.tenants.Update(c.Request().Context(), c.Param("tenantId"), &in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenant updated successfully", tenant.Info())
}

func (h *TenantHandler) Deactivate(c echo.Context) error {
	if err := h.tenants.Deactivate(c.Request().Context(), c.Param("tenantId")); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenant deactivated successfully", nil)
}

func (h *TenantHandler) Stats(c echo.Context) error {
	stats, err := h.tenants.Stats(c.Request().Context(), c.Param("tenantId"))
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Tenant statistics retrieved successfully", stats)
}
