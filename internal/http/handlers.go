package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/render"
	"github.com/kjstillabower/weather-dashboard/internal/service"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/units"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// HealthConfig holds inputs for the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check slot reachability.
	CachePing func(ctx context.Context) error

	// Window is the lookback for outcome-based checks. Zero disables them.
	Window time.Duration
	// OverloadDeniedPct reports overloaded when this share of actions was rate limited.
	OverloadDeniedPct int
	// DegradedFailurePct reports degraded when this share of refreshes failed.
	DegradedFailurePct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService   *service.WeatherService
	renderer         *render.Renderer
	healthConfig     *HealthConfig
	logger           *zap.Logger
	flashMu          sync.Mutex
	flash            render.Options
	healthStatusMu   sync.Mutex
	healthStatusPrev string
	outcomes         *traffic.Tracker
}

// NewHandler returns a new Handler.
func NewHandler(
	weatherService *service.WeatherService,
	renderer *render.Renderer,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := time.Duration(0)
	if healthConfig != nil {
		retention = healthConfig.Window
	}
	return &Handler{
		weatherService: weatherService,
		renderer:       renderer,
		healthConfig:   healthConfig,
		logger:         logger,
		outcomes:       traffic.NewTracker(retention),
	}
}

// GetDashboard handles GET /. Renders the current snapshot and consumes the
// pending flash message, if any, along with the rejected place it refers to.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, _ := h.weatherService.Snapshot()

	var buf bytes.Buffer
	if err := h.renderer.Dashboard(&buf, snap, h.takeFlash()); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Error("render dashboard", zap.Error(err))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// PostSearch handles POST /search (form field "place") and redirects back to the dashboard.
func (h *Handler) PostSearch(w http.ResponseWriter, r *http.Request) {
	place := r.PostFormValue("place")
	if err := h.record(h.weatherService.FullRefresh(r.Context(), place)); err != nil {
		h.setFlash(classify(err).flash, place)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// PostUnits handles POST /units (form field "unit") and redirects back to the dashboard.
func (h *Handler) PostUnits(w http.ResponseWriter, r *http.Request) {
	if err := h.record(h.weatherService.UnitRefresh(r.Context(), r.PostFormValue("unit"))); err != nil {
		h.setFlash(classify(err).flash, "")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type snapshotResponse struct {
	State    string          `json:"state"`
	Snapshot models.Snapshot `json:"snapshot"`
	Units    []units.Profile `json:"units"`
}

// GetSnapshot handles GET /api/snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w)
}

type searchRequest struct {
	Place string `json:"place"`
}

type unitRequest struct {
	Unit string `json:"unit"`
}

// PostAPISearch handles POST /api/search with body {"place": "..."}.
func (h *Handler) PostAPISearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	if err := h.record(h.weatherService.FullRefresh(r.Context(), body.Place)); err != nil {
		writeRefreshError(w, r, err)
		return
	}
	h.writeSnapshot(w)
}

// PostAPIUnits handles POST /api/units with body {"unit": "standard|metric|imperial"}.
func (h *Handler) PostAPIUnits(w http.ResponseWriter, r *http.Request) {
	var body unitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}
	if err := h.record(h.weatherService.UnitRefresh(r.Context(), body.Unit)); err != nil {
		writeRefreshError(w, r, err)
		return
	}
	h.writeSnapshot(w)
}

func (h *Handler) writeSnapshot(w http.ResponseWriter) {
	snap, state := h.weatherService.Snapshot()
	writeJSON(w, http.StatusOK, snapshotResponse{
		State:    state.String(),
		Snapshot: snap,
		Units:    units.All(),
	})
}

// record counts the refresh outcome for health and returns err unchanged.
// Rejected input is not counted.
func (h *Handler) record(err error) error {
	switch {
	case err == nil:
		h.outcomes.Record(traffic.Success)
	case classify(err).status >= http.StatusInternalServerError:
		h.outcomes.Record(traffic.Failure)
	}
	return err
}

// recordDenied counts a rate-limited action.
func (h *Handler) recordDenied() {
	h.outcomes.Record(traffic.Denied)
}

// setFlash queues msg for the next dashboard view. A non-empty place is put
// back into the search box so the user can correct it.
func (h *Handler) setFlash(msg, place string) {
	h.flashMu.Lock()
	defer h.flashMu.Unlock()
	h.flash = render.Options{Flash: msg, Place: place}
}

func (h *Handler) takeFlash() render.Options {
	h.flashMu.Lock()
	defer h.flashMu.Unlock()
	opts := h.flash
	h.flash = render.Options{}
	return opts
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, checks := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	_, state := h.weatherService.Snapshot()
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-dashboard",
		"version":   "dev",
		"snapshot":  state.String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptime"] = time.Since(h.healthConfig.StartTime).Round(time.Second).String()
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down > cache unreachable >
// overloaded > refresh failure rate > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) (healthResult, map[string]string) {
	checks := make(map[string]string)
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, lifecycle.Reason()}, checks
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}
	if h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(ctx); err != nil {
			checks["cache"] = "unhealthy"
			return healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable"}, checks
		}
		checks["cache"] = "healthy"
	}
	if h.healthConfig.Window <= 0 {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}

	counts := h.outcomes.Counts(h.healthConfig.Window)
	if pct := h.healthConfig.OverloadDeniedPct; pct > 0 && counts.Denied > 0 && counts.DeniedPct() >= float64(pct) {
		checks["rate_limit"] = "saturated"
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}, checks
	}
	if pct := h.healthConfig.DegradedFailurePct; pct > 0 && counts.Failure > 0 && counts.FailurePct() >= float64(pct) {
		checks["refresh"] = "failing"
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}, checks
	}
	checks["refresh"] = "healthy"
	return healthResult{"healthy", http.StatusOK, ""}, checks
}

// refreshError is the client-facing view of a pipeline failure.
type refreshError struct {
	status  int
	code    string
	message string
	flash   string
}

// classify maps a pipeline error to its HTTP status, error code and user-facing text.
func classify(err error) refreshError {
	switch {
	case errors.Is(err, validation.ErrEmptyInput):
		return refreshError{http.StatusBadRequest, "EMPTY_INPUT", "place name is required", "Enter a location to search."}
	case errors.Is(err, units.ErrUnknownUnit):
		return refreshError{http.StatusBadRequest, "UNKNOWN_UNIT", "unit must be one of standard, metric, imperial", "Unknown unit system."}
	case errors.Is(err, client.ErrLocationNotFound):
		return refreshError{http.StatusNotFound, "LOCATION_NOT_FOUND", "location not found", "Location not found."}
	case errors.Is(err, store.ErrStorage):
		return refreshError{http.StatusInternalServerError, "STORAGE_ERROR", "unable to save weather data", "Weather was loaded but could not be saved."}
	default:
		return refreshError{http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data", "Weather service is unavailable. Try again later."}
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationIDFromContext(r.Context()),
		},
	})
}

// writeRefreshError writes the error envelope for a failed refresh. The underlying
// error is logged at DEBUG; the service has already logged it at WARN.
func writeRefreshError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	writeError(w, r, e.status, e.code, e.message)
	observability.LoggerFromContext(r.Context(), nil).Debug("refresh error", zap.String("code", e.code), zap.Error(err))
}
