package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable maps service sentinels to HTTP responses. Order matters only
// for wrapped errors that match more than one entry.
var errorTable = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_refresh_token"},
	{service.ErrAccountDisabled, http.StatusForbidden, "account_disabled"},
	{service.ErrInsufficientRoleLevel, http.StatusForbidden, "insufficient_role_level"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{service.ErrInvalidResetToken, http.StatusBadRequest, "invalid_reset_token"},
	{service.ErrResetTokenExpired, http.StatusBadRequest, "reset_token_expired"},
	{service.ErrResetTokenUsed, http.StatusBadRequest, "reset_token_used"},
	{service.ErrOTPInvalid, http.StatusBadRequest, "otp_invalid"},
	{service.ErrOTPExpired, http.StatusBadRequest, "otp_expired"},
	{service.ErrOTPUsed, http.StatusBadRequest, "otp_used"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{repository.ErrConflict, http.StatusConflict, "conflict"},
}

// apiError converts err into an *echo.HTTPError whose body is
// {"error": code, "message": text}. Anything not in errorTable is logged and
// reported as a bare 500.
func apiError(c echo.Context, log zerolog.Logger, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, echo.Map{"error": m.code, "message": m.err.Error()})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
}

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
