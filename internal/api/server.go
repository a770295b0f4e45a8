package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"relato/internal/api/middleware"
	"relato/internal/api/response"
	"relato/internal/api/validator"
	"relato/internal/auth"
	"relato/internal/config"
	"relato/internal/handlers"
	"relato/internal/permissions"
	"relato/internal/ratelimit"
	"relato/internal/routes"
	"relato/internal/store"
	console "relato/internal/utils/logger"
)

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	registry *permissions.Registry
}

var log = console.New("API-Server")

// NewServer assembles the security pipeline: validator, ambient echo
// middleware, the in-process backstop limiter, and the gated routes.
// Every component is constructed here and injected; nothing lives in
// package globals.
func NewServer(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Validator = validator.NewValidator()

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(echomw.TimeoutWithConfig(echomw.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
	e.Use(echomw.BodyLimit("1M"))

	// In-process backstop ahead of the Redis tiers
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(20))))

	e.HTTPErrorHandler = httpErrorHandler(cfg.Server.DevMode)

	userRepo := store.NewUserRepository(db)
	permStore := store.NewPermissionStore(db)
	auditStore := store.NewAuditStore(db)

	tokens := auth.NewTokenService(cfg.JWT)
	registry := permissions.NewRegistry(permStore, userRepo)
	limiter := ratelimit.New(rdb)
	slowdown := ratelimit.NewSlowdown(rdb, cfg.RateLimit)
	loginTier := ratelimit.LoginTier(cfg.RateLimit)

	authMW := middleware.NewAuthMiddleware(tokens, userRepo)
	authHandler := handlers.NewAuthHandler(userRepo, tokens, limiter, loginTier, auditStore)
	userHandler := handlers.NewUserHandler(userRepo, registry)

	routes.Setup(e, routes.Deps{
		Auth:     authHandler,
		Users:    userHandler,
		AuthMW:   authMW,
		Limiter:  limiter,
		Slowdown: slowdown,
		General:  ratelimit.GeneralTier(cfg.RateLimit),
		Critical: ratelimit.CriticalTier(cfg.RateLimit),
		Registry: registry,
	})

	s := &Server{
		echo:     e,
		config:   cfg,
		registry: registry,
	}
	e.GET("/health", s.healthCheck)

	return s
}

// Registry exposes the permission registry for the startup sync and
// admin actions owned by main.
func (s *Server) Registry() *permissions.Registry {
	return s.registry
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// httpErrorHandler turns every escaped error into the structured
// envelope. Internal details only leak in dev mode.
func httpErrorHandler(devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := response.CodeInternalError
		message := "Internal server error"

		switch e := err.(type) {
		case *echo.HTTPError:
			status = e.Code
			message = fmt.Sprintf("%v", e.Message)
			switch status {
			case http.StatusUnauthorized:
				code = response.CodeInvalidToken
			case http.StatusForbidden:
				code = response.CodeForbidden
			case http.StatusTooManyRequests:
				code = "RATE_LIMIT_EXCEEDED"
			case http.StatusBadRequest:
				code = response.CodeValidationError
			}
		case validator.ValidationErrors:
			status = http.StatusBadRequest
			code = response.CodeValidationError
			message = e.Error()
		default:
			if devMode {
				message = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		if err := response.Fail(c, status, code, message); err != nil {
			log.Warn("Failed to write error response: %v", err)
		}
	}
}
