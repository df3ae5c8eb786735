package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/bizadmin-auth/internal/handler"
	"github.com/iliyamo/bizadmin-auth/internal/middleware"
	"github.com/iliyamo/bizadmin-auth/internal/role"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and Prometheus metrics from gatherer.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// RegisterAuth registers the credential endpoints. Operations that do not
// need a session live under /v1/auth behind the rate limiter; /v1/me needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, signer *utils.Signer, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout takes the refresh token, not an access token, so it stays
	// outside the JWT group
	g.POST("/logout", a.Logout)

	g.POST("/password/forgot", a.ForgotPassword)
	g.POST("/password/resend", a.ResendPasswordReset)
	g.GET("/password/reset", a.ValidateResetToken)
	g.POST("/password/reset", a.ResetPassword)

	g.POST("/email/verify/request", a.RequestEmailVerification)
	g.POST("/email/verify/resend", a.ResendEmailVerification)
	g.POST("/email/verify/confirm", a.ConfirmEmailVerification)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(signer))
	auth.GET("/me", a.Me)
}

// RegisterUsers registers the tenant user directory. Any caller holding at
// least one role may list; what they see is narrowed by level in the handler.
// cache, when set, fronts the profile card route.
func RegisterUsers(e *echo.Echo, u *handler.UsersHandler, signer *utils.Signer, resolver role.Resolver, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/users")
	g.Use(middleware.JWTAuth(signer))
	g.Use(middleware.RequireLevel(resolver, role.LevelStaff))
	g.GET("", u.List)
	g.GET("/:id", u.Get)
	if cache != nil {
		g.GET("/:id/profile", u.Profile, cache)
	} else {
		g.GET("/:id/profile", u.Profile)
	}
}
