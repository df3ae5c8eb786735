package middleware // middleware holds the echo middleware shared by the HTTP routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the subject, roles and tenant claims into the request context.
// Refresh tokens are rejected here because they are signed with a different
// secret. Handlers read the values back through UserID, Roles and TenantID.
func JWTAuth(signer *utils.Signer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := signer.VerifyAccess(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, utils.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRoles, claims.Roles)
			c.Set(ctxTenant, claims.TenantID)
			c.Set(ctxEmail, claims.Email)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(auth[7:])
	return raw, raw != ""
}
