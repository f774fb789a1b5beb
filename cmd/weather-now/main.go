package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-now/internal/api/http"
	"github.com/i474232898/weather-now/internal/config"
	"github.com/i474232898/weather-now/internal/location"
	"github.com/i474232898/weather-now/internal/logging"
	"github.com/i474232898/weather-now/internal/publish"
	"github.com/i474232898/weather-now/internal/scheduler"
	"github.com/i474232898/weather-now/internal/telemetry"
	"github.com/i474232898/weather-now/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	if cfg.WeatherAPI.Key == "" {
		logger.Warn("weatherapi.key is empty; fetches will fail with MissingAPIKey")
	}

	// Pipeline: endpoint builder → fetcher → decoder, driven by the orchestrator.
	endpoints := weather.NewEndpoints(cfg.WeatherAPI.Key)
	endpoints.BaseURL = cfg.WeatherAPI.BaseURL
	endpoints.ForecastDays = cfg.WeatherAPI.ForecastDays
	endpoints.EncodeQuery = cfg.WeatherAPI.EncodeQuery

	fetchOpts := []weather.FetcherOption{weather.WithFetchLogger(logger)}
	if cfg.HTTP.Breaker.Enabled {
		fetchOpts = append(fetchOpts, weather.WithCircuitBreaker("weatherapi", cfg.HTTP.Breaker.Timeout))
	}
	fetcher := weather.NewFetcher(&http.Client{Timeout: cfg.HTTP.Timeout}, fetchOpts...)

	orchestrator := weather.NewOrchestrator(endpoints, fetcher, logger, weather.Options{
		DropStale:               cfg.Orchestrator.DropStale,
		ReportMissingCoordinate: cfg.Orchestrator.ReportMissingCoordinate,
	})

	// Fetch as soon as a location arrives, and on every later change.
	provider := location.NewProvider(logger)
	provider.OnUpdate(func(c weather.Coordinate) {
		orchestrator.Fetch(ctx, &c)
	})

	if cfg.NATS.URL != "" {
		conn, err := publish.Connect(cfg.NATS.URL)
		if err != nil {
			logger.Error("nats sink disabled", "error", err)
		} else {
			defer func() { _ = conn.Drain() }()
			go publish.NewSink(conn, logger).Run(ctx, orchestrator)
		}
	}

	go resolveLocation(ctx, cfg, provider, logger)

	sched := scheduler.New(orchestrator, provider, cfg.Scheduler.Interval, cfg.Scheduler.Cron, logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-now",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(recover.New())

	httpapi.RegisterRoutes(app, orchestrator, provider, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-now",
			"state":   orchestrator.State(),
		})
	})

	port := strconv.Itoa(cfg.Server.Port)
	go func() {
		logger.Info("http server listening", "port", port)
		if err := app.Listen(":" + port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// resolveLocation seeds the provider from configuration: an explicit
// coordinate wins over a geocoded city.
func resolveLocation(ctx context.Context, cfg *config.Config, provider *location.Provider, logger *slog.Logger) {
	var src location.Source
	switch {
	case cfg.Location.Coordinate() != nil:
		src = location.StaticSource{Coordinate: *cfg.Location.Coordinate()}
	case cfg.Location.City != "":
		src = location.GeocoderSource{
			APIKey:  cfg.Geocoder.APIKey,
			City:    cfg.Location.City,
			Country: cfg.Location.Country,
		}
	default:
		logger.Info("no location configured; waiting for PUT /api/v1/location")
		return
	}

	if err := provider.Resolve(ctx, src); err != nil {
		logger.Error("initial location unavailable", "error", err)
	}
}
