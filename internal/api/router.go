package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/safehealth/portal/docs"
	"github.com/safehealth/portal/internal/api/handler"
	"github.com/safehealth/portal/internal/api/middleware"
	"github.com/safehealth/portal/internal/core/domain"
	"github.com/safehealth/portal/internal/core/ports"
	"github.com/safehealth/portal/internal/core/roleroute"
	"github.com/safehealth/portal/internal/infrastructure/http/handlers"
)

// Deps holds everything the router wires into handlers and middleware.
type Deps struct {
	Auth     ports.AuthService
	Verifier ports.CredentialVerifier
	Users    middleware.UserFinder
	Store    handlers.Pinger
	Redis    *redis.Client // nil when login throttling is disabled
	Log      zerolog.Logger
	// Metrics enables the Prometheus middleware and GET /metrics.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	if d.Metrics {
		e.Use(echoprometheus.NewMiddleware("portal_auth"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	authHandler := handler.NewAuthHandler(d.Auth)
	protect := middleware.Protect(d.Verifier, d.Users)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", authHandler.Me, protect)
	auth.GET("/verify", authHandler.Verify, protect)
	auth.PUT("/password", authHandler.ChangePassword, protect)
	auth.PUT("/profile", authHandler.UpdateProfile, protect)
	auth.POST("/logout", authHandler.Logout, protect)

	// --- Role areas: /patient, /doctor, /pharmacist, /admin ---
	routes := roleroute.New()
	for _, role := range domain.Roles() {
		area := e.Group(routes.RedirectTarget(role), protect, middleware.RequireRoles(role))
		area.GET("/session", authHandler.Area(role))
	}

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Store, d.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
