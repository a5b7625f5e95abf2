package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/render"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	d, err := newDashboard(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}

	go func() {
		logger.Info("server starting", zap.String("addr", d.server.Addr))
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	reason := lifecycle.WaitForSignal(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger.Info("graceful shutdown triggered", zap.String("reason", reason))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := cache.Close(d.slot); err != nil {
		logger.Error("storage close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// dashboard is the assembled HTTP server plus the storage slot main closes on exit.
type dashboard struct {
	server *http.Server
	slot   cache.Cache
}

// newDashboard opens storage, loads the initial snapshot and builds the router.
// A failed initial load is logged and the dashboard starts without weather.
func newDashboard(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dashboard, error) {
	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	defaultUnit, err := units.Lookup(cfg.DefaultUnit)
	if err != nil {
		return nil, fmt.Errorf("default unit: %w", err)
	}
	renderer, err := render.New(cfg.IconBaseURL, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	slot, err := cache.Open(ctx, cfg.CacheOptions())
	if err != nil {
		return nil, fmt.Errorf("storage backend %s: %w", cfg.StorageBackend, err)
	}
	logger.Info("storage backend ready", zap.String("backend", cfg.StorageBackend), zap.String("key", cfg.StorageKey))

	weatherStore := store.New(slot, cfg.StorageKey, logger)
	weatherStore.SetUnit(defaultUnit)
	observability.RegisterSnapshotStateGauge(func() float64 { return float64(weatherStore.State()) })

	weatherService := service.NewWeatherService(weatherClient, weatherStore, cfg.DefaultLocation, logger)

	initCtx, initCancel := context.WithTimeout(ctx, cfg.InitTimeout)
	if err := weatherService.Init(initCtx); err != nil {
		logger.Warn("initial load failed; dashboard starts without weather", zap.Error(err))
	}
	initCancel()

	healthConfig := &httphandler.HealthConfig{
		StartTime:          time.Now(),
		Window:             cfg.HealthWindow,
		OverloadDeniedPct:  cfg.OverloadDeniedPct,
		DegradedFailurePct: cfg.DegradedFailurePct,
	}
	if pinger, ok := slot.(cache.Pinger); ok {
		healthConfig.CachePing = pinger.Ping
	}

	handler := httphandler.NewHandler(weatherService, renderer, healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RateLimiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	return &dashboard{
		server: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.WeatherAPITimeout*2 + 5*time.Second,
		},
		slot: slot,
	}, nil
}
