package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/digiinvoice/invoicing-backend/internal/service"
)

// BuyerHandler exposes the tenant-scoped buyer directory endpoints.
type BuyerHandler struct {
	buyers *service.BuyerService
}

func NewBuyerHandler(buyers *service.BuyerService) *BuyerHandler {
	return &BuyerHandler{buyers: buyers}
}

func buyerID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid buyer id")
	}
	return uint(id), nil
}

func (h *BuyerHandler) Create(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	var in service.BuyerInput
	if err := c.Bind(&in); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	buyer, err := h.buyers.Create(c.Request().Context(), res.Handle, &in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusCreated, "Buyer created successfully", buyer)
}

func (h *BuyerHandler) List(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	buyers, pagination, err := h.buyers.List(c.Request().Context(), res.Handle, service.ListBuyersParams{
		Page:   page,
		Limit:  limit,
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Buyers retrieved successfully", echo.Map{
		"buyers":     buyers,
		"pagination": pagination,
	})
}

func (h *BuyerHandler) Get(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := buyerID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	buyer, err := h.buyers.GetByID(c.Request().Context(), res.Handle, id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Buyer retrieved successfully", buyer)
}

func (h *BuyerHandler) Update(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := buyerID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}

	var in service.BuyerInput
	if err := c.Bind(&in); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	buyer, err := h.buyers.Update(c.Request().Context(), res.Handle, id, &in)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Buyer updated successfully", buyer)
}

func (h *BuyerHandler) Delete(c echo.Context) error {
	res, ok := ResolutionFrom(c)
	if !ok {
		return respond(c, http.StatusInternalServerError, "tenant resolution missing", nil)
	}

	id, err := buyerID(c)
	if err != nil {
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	}
	if err := h.buyers.Delete(c.Request().Context(), res.Handle, id); err != nil {
		return fail(c, err)
	}
	return respond(c, http.StatusOK, "Buyer deleted successfully", nil)
}
