package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bizadmin-auth/internal/role"
)

// RequireLevel returns a middleware that lets the request through only when
// the caller's highest role level is at least min. It must run after
// JWTAuth, which stores the roles in the context.
func RequireLevel(resolver role.Resolver, min int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := Roles(c)
			if len(roles) == 0 || resolver.LevelOf(roles) < min {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
