package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/jwtutil"
	"github.com/digiinvoice/invoicing-backend/internal/tenantdb"
)

const resolutionKey = "tenant_resolution"

// TenantResolverFunc resolves a tenant id to an open database handle.
type TenantResolverFunc func(ctx context.Context, tenantID string) (*tenantdb.Resolution, error)

// TenantResolver reads the X-Tenant-ID header, resolves the tenant's
// database and stores the resolution on the request context. Requests
// without the header are rejected before any handler runs.
func TenantResolver(resolve TenantResolverFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID := c.Request().Header.Get("X-Tenant-ID")
			if tenantID == "" {
				return respond(c, http.StatusBadRequest, "X-Tenant-ID header is required", nil)
			}

			res, err := resolve(c.Request().Context(), tenantID)
			if err != nil {
				log.Warn().Err(err).Str("tenant_id", tenantID).Msg("Tenant resolution failed")
				return fail(c, err)
			}

			c.Set(resolutionKey, res)
			return next(c)
		}
	}
}

// ResolutionFrom retrieves the tenant resolution stored by TenantResolver.
func ResolutionFrom(c echo.Context) (*tenantdb.Resolution, bool) {
	res, ok := c.Get(resolutionKey).(*tenantdb.Resolution)
	return res, ok
}

// AdminAuth validates the Bearer token on administrative endpoints.
func AdminAuth(tokens *jwtutil.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return respond(c, http.StatusUnauthorized, "missing authorization token", nil)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return respond(c, http.StatusUnauthorized, "invalid authorization format, expected Bearer token", nil)
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				return respond(c, http.StatusUnauthorized, "invalid or expired token", nil)
			}

			c.Set("admin_email", claims.Email)
			c.Set("admin_role", claims.Role)
			return next(c)
		}
	}
}
