package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kelvins/geocoder"

	httpapi "github.com/i474232898/regional-forecast/internal/api/http"
	"github.com/i474232898/regional-forecast/internal/config"
	"github.com/i474232898/regional-forecast/internal/location"
	"github.com/i474232898/regional-forecast/internal/scheduler"
	"github.com/i474232898/regional-forecast/internal/store"
	"github.com/i474232898/regional-forecast/internal/weather"
	"github.com/i474232898/regional-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(lg)

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := providers.NewOpenWeatherClient(httpClient, cfg.OpenWeatherAPIKey, providers.OpenWeatherOptions{
		BaseURL:           cfg.ForecastBaseURL,
		Lang:              cfg.ForecastLang,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	// Durable per-region cache.
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := store.Open(openCtx, store.Options{
		Kind:          cfg.Cache.Backend,
		BoltPath:      cfg.Cache.Path,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		PostgresDSN:   cfg.Cache.PostgresDSN,
	})
	cancelOpen()
	if err != nil {
		lg.Error("failed to open forecast cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	cache := store.NewForecastCache(backend, lg)
	defer cache.Close()

	ctrl := weather.NewRefreshController(client, cache, lg)
	unsubscribe := ctrl.Subscribe(func(s weather.State) {
		lg.Debug("state changed", "version", s.Version, "status", s.Status, "region", s.Region.Key())
	})
	defer unsubscribe()

	ctrl.Hydrate(context.Background())

	sched := scheduler.New(cfg.RefreshInterval, ctrl, lg)
	if err := sched.Start(); err != nil {
		lg.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "regional-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "regional-forecast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, ctrl, buildLocator(cfg.Location))

	go func() {
		lg.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", "error", err)
	}
}

func buildLocator(cfg config.LocationConfig) httpapi.Locator {
	loc := httpapi.Locator{Gate: location.StaticGate(cfg.Enabled)}
	switch {
	case cfg.Lat != nil && cfg.Lon != nil:
		loc.Provider = location.NewStaticProvider(*cfg.Lat, *cfg.Lon)
	case cfg.GeocoderAPIKey != "" && (cfg.Address != "" || cfg.City != ""):
		loc.Provider = location.NewGeocodedProvider(cfg.GeocoderAPIKey, geocoder.Address{
			Street:  cfg.Address,
			City:    cfg.City,
			Country: cfg.Country,
		})
	}
	return loc
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
