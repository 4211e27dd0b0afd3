package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/digiinvoice/invoicing-backend/internal/service"
	"github.com/digiinvoice/invoicing-backend/internal/store"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

// respond writes the API envelope used by every endpoint.
func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, echo.Map{
		"success": status < 400,
		"message": message,
		"data":    data,
	})
}

// fail maps a service error onto an HTTP status and writes the envelope.
func fail(c echo.Context, err error) error {
	var provErr *tenantdb.ProvisioningError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrTenantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvoiceNotFound), errors.Is(err, service.ErrBuyerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateTenant), errors.Is(err, store.ErrDuplicateDatabaseName),
		errors.Is(err, service.ErrDuplicateInvoice):
		status = http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrTenantInactive), errors.Is(err, service.ErrInvoiceSubmitted):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tenantdb.ErrConnectionTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, tenantdb.ErrConnectionFailed):
		status = http.StatusServiceUnavailable
	case errors.As(err, &provErr):
		status = http.StatusInternalServerError
	}

	return respond(c, status, err.Error(), nil)
}
