package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/middleware"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/service"
)

// requestTimeout bounds the store work done for a single request.
const requestTimeout = 5 * time.Second

// AuthService is what the auth endpoints need from the service layer.
// *service.AuthService implements it.
type AuthService interface {
	Login(ctx context.Context, email, password string, meta model.ClientMeta) (service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta model.ClientMeta) (service.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, id uint64) (model.User, error)

	RequestPasswordReset(ctx context.Context, email string) (service.ChallengeResponse, error)
	ResendPasswordReset(ctx context.Context, email string) (service.ChallengeResponse, error)
	ValidateResetToken(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, otp, newPassword string) error

	RequestEmailVerification(ctx context.Context, email string) (service.ChallengeResponse, error)
	ResendEmailVerification(ctx context.Context, email string) (service.ChallengeResponse, error)
	ConfirmEmailVerification(ctx context.Context, email, otp string) (model.PublicUser, error)
}

// AuthHandler bundles dependencies for the /v1/auth endpoints and /v1/me.
type AuthHandler struct {
	svc      AuthService
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthHandler(svc AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validator.New(), log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type resetReq struct {
	Token       string `json:"token" validate:"required,hexadecimal"`
	OTP         string `json:"otp" validate:"required,numeric,max=10"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

type verifyReq struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required,numeric,max=10"`
}

// Login: verify credentials and return a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Login(ctx, normalizeEmail(req.Email), req.Password, clientMeta(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: rotate the refresh token and return a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken), clientMeta(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout revokes one session. The refresh token is taken from the
// X-Refresh-Token header, then an Authorization bearer, then the body.
// Repeating a logout still answers 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := strings.TrimSpace(c.Request().Header.Get("X-Refresh-Token"))
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		var req refreshReq
		_ = c.Bind(&req)
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "refresh_token_required", "message": "refresh token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.svc.Logout(ctx, token); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's own account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errUnauthorized
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.CurrentUser(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, model.ToPublic(u))
}

// ForgotPassword starts a reset. Always 202 with the same message for
// unknown and known addresses.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	return h.challenge(c, h.svc.RequestPasswordReset)
}

func (h *AuthHandler) ResendPasswordReset(c echo.Context) error {
	return h.challenge(c, h.svc.ResendPasswordReset)
}

// ValidateResetToken lets the reset page check a link before asking for the
// passcode. GET /v1/auth/password/reset?token=...
func (h *AuthHandler) ValidateResetToken(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return h.fail(c, service.ErrInvalidResetToken)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.svc.ValidateResetToken(ctx, token); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.ConfirmPasswordReset(ctx, req.Token, req.OTP, req.NewPassword); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHandler) RequestEmailVerification(c echo.Context) error {
	return h.challenge(c, h.svc.RequestEmailVerification)
}

func (h *AuthHandler) ResendEmailVerification(c echo.Context) error {
	return h.challenge(c, h.svc.ResendEmailVerification)
}

func (h *AuthHandler) ConfirmEmailVerification(c echo.Context) error {
	var req verifyReq
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.ConfirmEmailVerification(ctx, normalizeEmail(req.Email), req.OTP)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) challenge(c echo.Context, start func(context.Context, string) (service.ChallengeResponse, error)) error {
	var req emailReq
	if err := h.bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := start(ctx, normalizeEmail(req.Email))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusAccepted, res)
}

// bind decodes and validates the body into dst. The returned error is an
// *echo.HTTPError rendered by echo's error handler.
func (h *AuthHandler) bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "invalid body"})
	}
	if err := h.validate.Struct(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	}
	return nil
}

func (h *AuthHandler) fail(c echo.Context, err error) error {
	return apiError(c, h.log, err)
}

func clientMeta(c echo.Context) model.ClientMeta {
	return model.ClientMeta{UserAgent: c.Request().UserAgent(), ClientIP: c.RealIP()}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
