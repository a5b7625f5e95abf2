package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// Refresh kinds used in logs and metrics.
const (
	KindInit = "init"
	KindFull = "full"
	KindUnit = "unit"
)

// WeatherService runs the acquisition pipeline: fetch from the provider,
// project into the store, persist. Lookups run strictly in sequence, the
// forecast always after the place it belongs to is known.
type WeatherService struct {
	client          client.WeatherClient
	store           *store.Store
	defaultLocation string
	logger          *zap.Logger
}

// NewWeatherService creates a WeatherService. defaultLocation is loaded by Init
// when nothing usable was persisted.
func NewWeatherService(client client.WeatherClient, store *store.Store, defaultLocation string, logger *zap.Logger) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		client:          client,
		store:           store,
		defaultLocation: defaultLocation,
		logger:          logger,
	}
}

// Init restores the persisted snapshot and, if nothing was loaded, performs a
// full refresh for the default location. A restore failure is logged and the
// store is treated as empty.
func (s *WeatherService) Init(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx, s.logger)

	found, err := s.store.Restore(ctx)
	if err != nil {
		logger.Warn("restore failed, starting empty",
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err),
		)
	}
	if s.store.IsPopulated() {
		observability.RecordRefresh(KindInit, nil)
		logger.Info("snapshot restored", zap.String("state", s.store.State().String()))
		return nil
	}

	logger.Info("no usable snapshot, loading default location",
		zap.Bool("record_found", found),
		zap.String("location", s.defaultLocation),
	)
	err = s.FullRefresh(ctx, s.defaultLocation)
	observability.RecordRefresh(KindInit, err)
	return err
}

// FullRefresh looks up place, then the forecast for its coordinates, then
// applies both and persists. If either lookup fails the store is not touched
// and nothing is persisted.
func (s *WeatherService) FullRefresh(ctx context.Context, place string) error {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, s.logger).With(zap.String("place", place))
	unit := s.store.Unit()

	current, err := s.client.FetchCurrent(ctx, place, unit)
	if err != nil {
		return s.fail(logger, KindFull, fmt.Errorf("fetch current for %q: %w", place, err))
	}
	if m := current.Missing(); m != "" {
		return s.fail(logger, KindFull, fmt.Errorf("%w: current conditions missing %s", client.ErrMalformedResponse, m))
	}

	forecast, err := s.client.FetchForecast(ctx, current.Coord, unit)
	if err != nil {
		return s.fail(logger, KindFull, fmt.Errorf("fetch forecast for %q: %w", place, err))
	}
	if m := forecast.Missing(); m != "" {
		return s.fail(logger, KindFull, fmt.Errorf("%w: forecast missing %s", client.ErrMalformedResponse, m))
	}

	if err := s.store.ApplyCurrent(current); err != nil {
		return s.fail(logger, KindFull, err)
	}
	if err := s.store.ApplyForecast(forecast); err != nil {
		return s.fail(logger, KindFull, err)
	}
	if err := s.store.Persist(ctx); err != nil {
		return s.fail(logger, KindFull, err)
	}

	observability.RecordRefresh(KindFull, nil)
	logger.Info("full refresh complete",
		zap.String("location", current.Name),
		zap.String("unit", unit.System.String()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// UnitRefresh switches the unit system. With a cached location it re-fetches
// the forecast in the new unit and only then commits unit and forecast
// together; on failure both stay as they were. Without a cached location the
// unit is stored and persisted with no lookup.
func (s *WeatherService) UnitRefresh(ctx context.Context, system string) error {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, s.logger).With(zap.String("system", system))

	unit, err := units.Lookup(system)
	if err != nil {
		return s.fail(logger, KindUnit, err)
	}

	coords := s.store.Coords()
	if coords == nil {
		s.store.SetUnit(unit)
		if err := s.store.Persist(ctx); err != nil {
			return s.fail(logger, KindUnit, err)
		}
		observability.RecordRefresh(KindUnit, nil)
		logger.Info("unit changed with no location loaded; search first to fetch weather")
		return nil
	}

	forecast, err := s.client.FetchForecast(ctx, coords, unit)
	if err != nil {
		return s.fail(logger, KindUnit, fmt.Errorf("fetch forecast in %s: %w", unit.System, err))
	}
	if err := s.store.SwitchUnit(unit, forecast); err != nil {
		return s.fail(logger, KindUnit, err)
	}
	if err := s.store.Persist(ctx); err != nil {
		return s.fail(logger, KindUnit, err)
	}

	observability.RecordRefresh(KindUnit, nil)
	logger.Info("unit refresh complete", zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *WeatherService) fail(logger *zap.Logger, kind string, err error) error {
	observability.RecordRefresh(kind, err)
	logger.Warn("refresh failed",
		zap.String("kind", kind),
		zap.String("category", string(client.CategorizeError(err))),
		zap.Error(err),
	)
	return err
}

// Snapshot returns a copy of the current snapshot and its state.
func (s *WeatherService) Snapshot() (models.Snapshot, store.State) {
	snap := s.store.Snapshot()
	return snap, store.StateOf(snap)
}
