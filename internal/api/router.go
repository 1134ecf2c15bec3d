package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ministry-digital/portal-api/internal/api/handler"
	"github.com/ministry-digital/portal-api/internal/api/middleware"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
	"github.com/ministry-digital/portal-api/internal/core/service"
	"github.com/ministry-digital/portal-api/internal/infrastructure/config"
	"github.com/ministry-digital/portal-api/internal/infrastructure/http/handlers"
)

// Dependencies carries the storage-layer implementations the router wires
// into services. Mongo/Redis handles are optional; when absent the
// readiness probe only reports liveness (used by tests running against
// in-memory implementations).
type Dependencies struct {
	Users    ports.UserRepository
	Sessions ports.SessionRegistry
	Limiter  ports.RateLimiter
	Audit    ports.AuditSink

	MongoDB     *mongo.Database
	RedisClient *redis.Client
}

// NewRouter builds and returns the Echo instance with all routes registered.
// Route classification: PUBLIC routes are rate-limited only; PROTECTED
// routes run the full gate (token → session → RBAC); ADMIN routes
// additionally require administrative role membership.
func NewRouter(cfg *config.Config, log zerolog.Logger, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, cfg.Production())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Secure())
	e.Use(echoprometheus.NewMiddleware("portal"))
	e.Use(middleware.RateLimit(deps.Limiter, cfg.APIRateLimit, cfg.APIRateWindow, "api", log))

	// --- Dependencies ---
	cookies := middleware.CookieWriter{Secure: cfg.Production()}
	tokenService := service.NewTokenService(deps.Users, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	twoFactorService := service.NewTwoFactorService(deps.Users, deps.Audit)
	authService := service.NewAuthService(deps.Users, tokenService, deps.Sessions, twoFactorService, deps.Audit)
	userService := service.NewUserService(deps.Users, deps.Sessions, deps.Audit)

	authHandler := handler.NewAuthHandler(authService, tokenService, cookies)
	twoFactorHandler := handler.NewTwoFactorHandler(twoFactorService)
	userHandler := handler.NewUserHandler(userService)
	newsHandler := handler.NewNewsHandler()
	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Audit)
	securityHandler := handler.NewSecurityHandler(deps.Limiter)

	authGate := middleware.Auth(tokenService, deps.Sessions, cookies)
	authRateLimit := middleware.RateLimit(deps.Limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, "", log)
	csrf := echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     middleware.CookieCSRFToken,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Production(),
	})

	// --- PUBLIC: no gate, only the global rate limit ---
	e.GET("/news", newsHandler.List)

	// --- PUBLIC: credential endpoints, tightly rate-limited ---
	e.POST("/auth/login", authHandler.Login, authRateLimit)
	e.POST("/auth/login/2fa", authHandler.LoginTwoFactor, authRateLimit)
	e.POST("/auth/refresh", authHandler.Refresh, authRateLimit)

	// --- PROTECTED: full gate ---
	auth := e.Group("/auth", csrf, authGate)
	auth.GET("/me", authHandler.Me)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/password", authHandler.ChangePassword)
	auth.POST("/2fa/setup", twoFactorHandler.Setup)
	auth.POST("/2fa/enable", twoFactorHandler.Enable)
	auth.POST("/2fa/disable", twoFactorHandler.Disable)
	auth.POST("/2fa/backup-codes", twoFactorHandler.RegenerateBackupCodes)

	// --- ADMIN: full gate plus administrative role membership ---
	admin := e.Group("/admin", csrf, authGate, middleware.RequireAdmin())
	admin.GET("/users", userHandler.List, middleware.RequirePermission(domain.ResourceUsers, domain.ActionRead))
	admin.POST("/users", userHandler.Create, middleware.RequirePermission(domain.ResourceUsers, domain.ActionCreate))
	admin.GET("/users/:id", userHandler.Get, middleware.RequirePermission(domain.ResourceUsers, domain.ActionRead))
	admin.PATCH("/users/:id", userHandler.Update, middleware.RequirePermission(domain.ResourceUsers, domain.ActionUpdate))
	admin.POST("/users/:id/reset-password", userHandler.ResetPassword, middleware.RequirePermission(domain.ResourceUsers, domain.ActionManage))
	admin.DELETE("/users/:id/sessions", sessionHandler.RevokeAllForUser, middleware.RequirePermission(domain.ResourceSessions, domain.ActionDelete))
	admin.GET("/sessions", sessionHandler.List, middleware.RequirePermission(domain.ResourceSessions, domain.ActionRead))
	admin.GET("/sessions/stats", sessionHandler.Stats, middleware.RequirePermission(domain.ResourceSessions, domain.ActionRead))
	admin.DELETE("/sessions/:id", sessionHandler.Revoke, middleware.RequirePermission(domain.ResourceSessions, domain.ActionDelete))
	admin.POST("/ratelimit/reset", securityHandler.ResetRateLimit, middleware.RequirePermission(domain.ResourceSecurity, domain.ActionManage))

	// --- Observability (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandler())

	healthHandler := handlers.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness)
	if deps.MongoDB != nil && deps.RedisClient != nil {
		healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.MongoDB, deps.RedisClient)
		e.GET("/health/ready", healthDepsHandler.Readiness)
	}

	return e
}
