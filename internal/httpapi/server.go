package httpapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/jwtutil"
	"github.com/digiinvoice/invoicing-backend/internal/monitoring"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth     *AuthHandler
	Tenants  *TenantHandler
	Invoices *InvoiceHandler
	Buyers   *BuyerHandler

	Tokens  *jwtutil.Manager
	Resolve TenantResolverFunc
}

// NewServer builds the echo instance with middleware and the full route
// table. The caller owns startup and shutdown.
func NewServer(serviceName string, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(monitoring.NewHTTPMetrics(serviceName).Middleware())

	api := e.Group("/api")

	api.POST("/auth/login", h.Auth.Login)

	admin := api.Group("", AdminAuth(h.Tokens))
	admin.POST("/tenants", h.Tenants.Register)
	admin.GET("/tenants", h.Tenants.List)
	admin.GET("/tenants/:tenantId", h.Tenants.Get)
	admin.PUT("/tenants/:tenantId", h.Tenants.Update)
	admin.DELETE("/tenants/:tenantId", h.Tenants.Deactivate)
	admin.GET("/tenants/:tenantId/stats", h.Tenants.Stats)
	admin.GET("/invoices/search/:invoiceNumber", h.Invoices.SearchAcrossTenants)

	scoped := api.Group("", TenantResolver(h.Resolve))
	scoped.POST("/invoices", h.Invoices.Create)
	scoped.GET("/invoices", h.Invoices.List)
	scoped.GET("/invoices/stats", h.Invoices.Stats)
	scoped.GET("/invoices/:id", h.Invoices.Get)
	scoped.PUT("/invoices/:id", h.Invoices.Update)
	scoped.DELETE("/invoices/:id", h.Invoices.Delete)
	scoped.POST("/invoices/:id/save", h.Invoices.Save)
	scoped.POST("/invoices/:id/submit", h.Invoices.Submit)

	scoped.POST("/buyers", h.Buyers.Create)
	scoped.GET("/buyers", h.Buyers.List)
	scoped.GET("/buyers/:id", h.Buyers.Get)
	scoped.PUT("/buyers/:id", h.Buyers.Update)
	scoped.DELETE("/buyers/:id", h.Buyers.Delete)

	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("Request handled")
			return nil
		},
	})
}
