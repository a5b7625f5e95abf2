package http

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// RouterConfig holds the optional cross-cutting settings for NewRouter.
type RouterConfig struct {
	// RateLimiter guards the action routes; nil disables limiting.
	RateLimiter *rate.Limiter
	// AllowedOrigins for CORS on /api. Empty disables cross-origin access.
	AllowedOrigins []string
}

// NewRouter wires every dashboard route with its middleware.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	limit := RateLimitMiddleware(cfg.RateLimiter, h.recordDenied)

	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)

	r.HandleFunc("/", h.GetDashboard).Methods(http.MethodGet)
	r.Handle("/search", limit(http.HandlerFunc(h.PostSearch))).Methods(http.MethodPost)
	r.Handle("/units", limit(http.HandlerFunc(h.PostUnits))).Methods(http.MethodPost)
	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	// go-chi/cors treats an empty origin list as allow-all, so it is only
	// mounted when origins are configured.
	api := r.PathPrefix("/api").Subrouter()
	methods := func(m string) []string { return []string{m} }
	if len(cfg.AllowedOrigins) > 0 {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
			ExposedHeaders: []string{"X-Correlation-ID"},
			MaxAge:         300,
		}))
		methods = func(m string) []string { return []string{m, http.MethodOptions} }
	}
	api.HandleFunc("/snapshot", h.GetSnapshot).Methods(methods(http.MethodGet)...)
	api.Handle("/search", limit(http.HandlerFunc(h.PostAPISearch))).Methods(methods(http.MethodPost)...)
	api.Handle("/units", limit(http.HandlerFunc(h.PostAPIUnits))).Methods(methods(http.MethodPost)...)

	return r
}
