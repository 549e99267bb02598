package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/consultacerta/portal/internal/domain/companion"
	"github.com/consultacerta/portal/internal/domain/contact"
	"github.com/consultacerta/portal/internal/domain/content"
	"github.com/consultacerta/portal/internal/domain/feedback"
	"github.com/consultacerta/portal/internal/domain/health"
	"github.com/consultacerta/portal/internal/domain/locator"
	"github.com/consultacerta/portal/internal/domain/patient"
	"github.com/consultacerta/portal/internal/domain/reminder"
	"github.com/consultacerta/portal/internal/platform/db"
	"github.com/consultacerta/portal/internal/platform/guard"
	"github.com/consultacerta/portal/internal/platform/middleware"
	"github.com/consultacerta/portal/internal/platform/validate"
	"github.com/consultacerta/portal/internal/platform/websocket"
)

const version = "0.1.0"

func serveCmd(c *cli) *cobra.Command {
	return withAccess(&cobra.Command{
		Use:   "serve",
		Short: "Start the portal gateway for the browser front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(c.app)
		},
	}, guard.Public)
}

// buildServer assembles the gateway routes on a new echo instance.
func buildServer(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.EchoValidator{}

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders:    []string{echo.HeaderLocation, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(a.metrics.Middleware())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
		Skip:              middleware.SkipOperational,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	// A submission runs up to four backend calls, each bounded by HTTPTimeout.
	e.Use(middleware.RequestTimeout(4 * a.cfg.HTTPTimeout))

	// Operational routes
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool, func() *db.PoolStats { return db.GetPoolStats(a.pool) }))
	}
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))
	websocket.NewWebSocketHandler(a.hub, a.sessions).RegisterRoutes(e.Group(""))

	api := e.Group("/api")
	patient.NewHandler(a.patients, a.sessions).RegisterRoutes(api)
	companion.NewHandler(a.companions, a.sessions).RegisterRoutes(api)
	reminder.NewHandler(a.reminders, a.sessions).RegisterRoutes(api)
	health.NewHandler(a.survey, a.sessions).RegisterRoutes(api)
	feedback.NewHandler(a.ratings).RegisterRoutes(api)
	contact.NewHandler(a.contacts).RegisterRoutes(api)
	content.NewHandler(a.guides).RegisterRoutes(api)
	locator.NewHandler(a.clinics).RegisterRoutes(api)

	return e
}

func runServer(a *app) error {
	logger := a.logger
	e := buildServer(a)

	// Warm the contact directory so the first carousel view is not empty.
	go a.contacts.Load(context.Background())

	go func() {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Str("session_store", a.cfg.SessionStore).Msg("starting portal gateway")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down portal gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := a.ratings.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("pending ratings not delivered")
	}
	logger.Info().Msg("portal gateway stopped")
	return nil
}
