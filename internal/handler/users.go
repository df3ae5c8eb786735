package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/authz"
	"github.com/iliyamo/bizadmin-auth/internal/metrics"
	"github.com/iliyamo/bizadmin-auth/internal/middleware"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
)

// UserDirectory is the read side of the user store.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.User, error)
}

// UsersHandler serves the level-filtered user listing of a tenant.
type UsersHandler struct {
	users   UserDirectory
	filter  authz.Filter
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewUsersHandler(users UserDirectory, filter authz.Filter, m *metrics.Metrics, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{users: users, filter: filter, metrics: m, log: log}
}

// List returns the tenant's users the caller may see. When the tenant has
// other users but all outrank the caller, the answer is 403 rather than an
// empty list.
func (h *UsersHandler) List(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errUnauthorized
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	all, err := h.users.ListByTenant(ctx, middleware.TenantID(c))
	if err != nil {
		return apiError(c, h.log, err)
	}
	visible, err := h.filter.FilterVisibleUsers(middleware.Roles(c), uid, all)
	if err != nil {
		if errors.Is(err, authz.ErrInsufficientRoleLevel) {
			h.metrics.VisibilityDenied()
		}
		return apiError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": model.ToListAll(visible), "count": len(visible)})
}

// Get returns one user. The caller's own record comes back in full; others
// only when they do not outrank the caller.
func (h *UsersHandler) Get(c echo.Context) error {
	target, caller, err := h.load(c)
	if err != nil {
		return err
	}
	if target.ID == caller {
		return c.JSON(http.StatusOK, model.ToPublic(target))
	}
	if err := h.filter.CanAccess(middleware.Roles(c), target); err != nil {
		return apiError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, model.ToList(target))
}

// Profile returns the minimal public card of any user in the caller's
// tenant.
func (h *UsersHandler) Profile(c echo.Context) error {
	target, _, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.ToProfile(target))
}

// load resolves :id within the caller's tenant. Users of another tenant are
// reported as not found.
func (h *UsersHandler) load(c echo.Context) (model.User, uint64, error) {
	caller, ok := middleware.UserID(c)
	if !ok {
		return model.User{}, 0, errUnauthorized
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return model.User{}, 0, echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.users.GetByID(ctx, id)
	if err == nil && u.TenantID != middleware.TenantID(c) {
		err = repository.ErrNotFound
	}
	if err != nil {
		return model.User{}, 0, apiError(c, h.log, err)
	}
	return u, caller, nil
}
