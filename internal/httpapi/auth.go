package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/jwtutil"
)

// AuthHandler issues admin tokens against the configured credentials.
type AuthHandler struct {
	tokens        *jwtutil.Manager
	adminEmail    string
	adminPassword string
}

func NewAuthHandler(tokens *jwtutil.Manager, adminEmail, adminPassword string) *AuthHandler {
	return &AuthHandler{tokens: tokens, adminEmail: adminEmail, adminPassword: adminPassword}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the admin credentials and returns a signed token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.adminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) == 1
	if !emailOK || !passOK {
		log.Warn().Str("email", req.Email).Msg("Failed admin login attempt")
		return respond(c, http.StatusUnauthorized, "invalid credentials", nil)
	}

	token, err := h.tokens.IssueToken(req.Email, "admin")
	if err != nil {
		return respond(c, http.StatusInternalServerError, "failed to issue token", nil)
	}

	return respond(c, http.StatusOK, "Login successful", echo.Map{
		"token": token,
		"email": req.Email,
	})
}
