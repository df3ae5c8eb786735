package middleware

// identity.go holds the context keys JWTAuth fills in and the accessors
// handlers use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxRoles  = "roles"
	ctxTenant = "tenant_id"
	ctxEmail  = "email"
)

// UserID returns the authenticated subject, false for guests.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Roles returns the role names carried by the access token.
func Roles(c echo.Context) []string {
	r, _ := c.Get(ctxRoles).([]string)
	return r
}

// TenantID returns the tenant claim of the access token.
func TenantID(c echo.Context) string {
	t, _ := c.Get(ctxTenant).(string)
	return t
}

// userKey identifies the caller for rate limiting; "anon" before JWTAuth ran.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
