//go:build integration
// +build integration

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/render"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	testhelpers "github.com/kjstillabower/weather-dashboard/internal/testhelpers"
)

var testLogger *zap.Logger

func init() {
	var err error
	testLogger, err = observability.NewLogger()
	if err != nil {
		panic(err)
	}
}

// setupIntegrationRouter wires the full route table against the live provider.
// Returns the router, the store behind it, and a cleanup function.
func setupIntegrationRouter(t *testing.T, limiter *rate.Limiter) (*mux.Router, *store.Store, *service.WeatherService, func()) {
	cfg := testhelpers.GetIntegrationConfig(t)
	weatherService, st, cleanup := testhelpers.SetupIntegrationService(t, cfg)

	renderer, err := render.New("", time.UTC)
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	handler := NewHandler(weatherService, renderer, &HealthConfig{StartTime: time.Now()}, testLogger)
	return NewRouter(handler, testLogger, RouterConfig{RateLimiter: limiter}), st, weatherService, cleanup
}

func TestIntegration_SearchThenRender(t *testing.T) {
	router, st, _, cleanup := setupIntegrationRouter(t, nil)
	defer cleanup()

	w := postJSON(router, "/api/search", `{"place":"Lappeenranta"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/search status = %d, body = %s", w.Code, w.Body.String())
	}
	if st.State() != store.StateReady {
		t.Fatalf("State() = %v, want ready", st.State())
	}

	page := get(router, "/")
	if page.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", page.Code)
	}
	body := page.Body.String()
	for _, want := range []string{"LAPPEENRANTA", "SUNRISE", "daily-info-table"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

// TestIntegration_UnitChangeKeepsPlace verifies a unit switch re-fetches only
// the forecast and the place survives a restore into a fresh store.
func TestIntegration_UnitChangeKeepsPlace(t *testing.T) {
	router, st, _, cleanup := setupIntegrationRouter(t, nil)
	defer cleanup()

	if w := postJSON(router, "/api/search", `{"place":"Lappeenranta"}`); w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	before := st.Snapshot()

	w := postJSON(router, "/api/units", `{"unit":"metric"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("units status = %d, body = %s", w.Code, w.Body.String())
	}
	after := st.Snapshot()
	if after.Unit.System != "metric" {
		t.Errorf("Unit = %v, want metric", after.Unit.System)
	}
	if after.Place.Location != before.Place.Location || after.Place.Coords != before.Place.Coords {
		t.Errorf("place changed: %+v -> %+v", before.Place, after.Place)
	}
}

func TestIntegration_UnknownLocation(t *testing.T) {
	router, st, _, cleanup := setupIntegrationRouter(t, nil)
	defer cleanup()

	w := postJSON(router, "/api/search", `{"place":"Xqzzyplorvtown"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if st.State() != store.StateEmpty {
		t.Errorf("State() = %v, want empty after failed search", st.State())
	}
}

func TestIntegration_InitLoadsDefault(t *testing.T) {
	_, st, svc, cleanup := setupIntegrationRouter(t, nil)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := svc.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if st.Snapshot().Place == nil || st.Snapshot().Place.Location != "Lappeenranta" {
		t.Errorf("Place = %+v, want Lappeenranta", st.Snapshot().Place)
	}
}

func TestIntegration_GetHealth_FullStack(t *testing.T) {
	router, _, _, cleanup := setupIntegrationRouter(t, nil)
	defer cleanup()

	w := get(router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" || resp["service"] != "weather-dashboard" {
		t.Errorf("health = %v", resp)
	}
}

// TestIntegration_RateLimiting_Concurrent verifies the limiter admits at most
// burst actions when many arrive at once.
func TestIntegration_RateLimiting_Concurrent(t *testing.T) {
	const burst = 3
	router, _, _, cleanup := setupIntegrationRouter(t, rate.NewLimiter(rate.Limit(0.01), burst))
	defer cleanup()

	const workers = 10
	codes := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/units", strings.NewReader(`{"unit":"imperial"}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	var ok, limited int
	for c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	if ok > burst || ok+limited != workers {
		t.Errorf("ok = %d, limited = %d, want at most %d ok of %d", ok, limited, burst, workers)
	}
}
