package http

import (
	"context"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/render"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/units"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

type mockWeatherClient struct {
	current     models.CurrentPayload
	forecast    models.ForecastPayload
	currentErr  error
	forecastErr error
	calls       int
}

func (m *mockWeatherClient) FetchCurrent(ctx context.Context, place string, unit units.Profile) (models.CurrentPayload, error) {
	if _, err := validation.Place(place); err != nil {
		return models.CurrentPayload{}, err
	}
	m.calls++
	if m.currentErr != nil {
		return models.CurrentPayload{}, m.currentErr
	}
	return m.current, nil
}

func (m *mockWeatherClient) FetchForecast(ctx context.Context, coords *models.Coords, unit units.Profile) (models.ForecastPayload, error) {
	m.calls++
	if m.forecastErr != nil {
		return models.ForecastPayload{}, m.forecastErr
	}
	return m.forecast, nil
}

func newMockClient() *mockWeatherClient {
	return &mockWeatherClient{
		current: models.CurrentPayload{
			Name:  "Lappeenranta",
			Coord: &models.Coords{Lat: 61.06, Lon: 28.19},
			Sys:   models.CurrentSys{Country: "FI"},
		},
		forecast: models.ForecastPayload{
			Current: &models.CurrentConditions{
				Temp:     5.2,
				Humidity: 81,
				Weather:  []models.WeatherCondition{{Description: "broken clouds", Icon: "04d"}},
			},
			Hourly: []models.HourlyItem{{Dt: 1700000000, Temp: 5.2, Pop: 0.2}},
			Daily:  []models.DailyItem{{Dt: 1700000000, Temp: models.DailyTemp{Min: 1, Max: 7}}},
		},
	}
}

// failingSlot rejects every operation.
type failingSlot struct{ err error }

func (f failingSlot) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingSlot) Set(ctx context.Context, key string, value []byte) error    { return f.err }

type testStack struct {
	client  *mockWeatherClient
	store   *store.Store
	handler *Handler
	router  *mux.Router
}

type stackOption func(*stackOptions)

type stackOptions struct {
	slot    cache.Cache
	limiter *rate.Limiter
	health  *HealthConfig
	origins []string
}

func withSlot(c cache.Cache) stackOption        { return func(o *stackOptions) { o.slot = c } }
func withLimiter(l *rate.Limiter) stackOption   { return func(o *stackOptions) { o.limiter = l } }
func withHealth(h *HealthConfig) stackOption    { return func(o *stackOptions) { o.health = h } }
func withOrigins(origins ...string) stackOption { return func(o *stackOptions) { o.origins = origins } }

func newTestStack(opts ...stackOption) *testStack {
	o := stackOptions{slot: cache.NewInMemoryCache(), health: &HealthConfig{StartTime: time.Now()}}
	for _, opt := range opts {
		opt(&o)
	}

	logger := zap.NewNop()
	mc := newMockClient()
	st := store.New(o.slot, "", logger)
	svc := service.NewWeatherService(mc, st, "Lappeenranta", logger)
	renderer, err := render.New("", time.UTC)
	if err != nil {
		panic(err)
	}
	h := NewHandler(svc, renderer, o.health, logger)

	return &testStack{
		client:  mc,
		store:   st,
		handler: h,
		router:  NewRouter(h, logger, RouterConfig{RateLimiter: o.limiter, AllowedOrigins: o.origins}),
	}
}
