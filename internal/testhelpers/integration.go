//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/store"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	CacheBackend  string // memory, memcached or redis
	MemcachedAddr string
	RedisAddr     string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/2.5"
	}

	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return IntegrationTestConfig{
		APIKey:        apiKey,
		APIURL:        apiURL,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
		RedisAddr:     redisAddr,
	}
}

// SetupIntegrationSlot opens the configured backend, falling back to memory
// when the server is unreachable. The returned cleanup closes it.
func SetupIntegrationSlot(t *testing.T, cfg IntegrationTestConfig) (cache.Cache, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	opts := cache.Options{
		Backend:               cfg.CacheBackend,
		MemcachedAddrs:        cfg.MemcachedAddr,
		MemcachedTimeout:      500 * time.Millisecond,
		MemcachedMaxIdleConns: 2,
		RedisAddr:             cfg.RedisAddr,
	}
	if opts.Backend == "" || opts.Backend == cache.BackendFile {
		opts.Backend = cache.BackendFile
		opts.FilePath = t.TempDir()
	}

	slot, err := cache.Open(ctx, opts)
	if err == nil {
		if p, ok := slot.(cache.Pinger); ok {
			err = p.Ping(ctx)
		}
	}
	if err != nil {
		t.Logf("%s backend not available (%v), using in-memory slot", opts.Backend, err)
		return cache.NewInMemoryCache(), func() {}
	}
	t.Logf("Using %s slot", opts.Backend)
	return slot, func() { _ = cache.Close(slot) }
}

// SetupIntegrationService creates a service against the live provider.
// Returns the service, its store, and a cleanup function.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, *store.Store, func()) {
	weatherClient, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	slot, cleanup := SetupIntegrationSlot(t, cfg)
	logger := zap.NewNop()
	st := store.New(slot, "integration-"+strings.ReplaceAll(t.Name(), "/", "_"), logger)

	return service.NewWeatherService(weatherClient, st, "Lappeenranta", logger), st, cleanup
}
