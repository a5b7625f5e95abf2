package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// DefaultKey is the slot key used when none is configured.
const DefaultKey = "weatherData"

// ErrStorage marks a slot read/write failure or an unreadable persisted record.
var ErrStorage = cache.ErrStorage

// State summarizes how much of the snapshot has been loaded.
type State int

const (
	StateEmpty State = iota
	StatePartiallyLoaded
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartiallyLoaded:
		return "partially_loaded"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store owns the in-memory snapshot and its persisted copy in a cache slot.
// Methods are safe for concurrent use; overlapping writers are last-write-wins.
type Store struct {
	mu     sync.RWMutex
	snap   models.Snapshot
	slot   cache.Cache
	key    string
	logger *zap.Logger
}

// New returns an empty store using the default unit profile.
func New(slot cache.Cache, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		snap:   models.Snapshot{Unit: units.Default()},
		slot:   slot,
		key:    key,
		logger: logger,
	}
}

// Restore loads the persisted record, if any, and merges it into the snapshot.
// It reports whether a record was found. A record that cannot be decoded leaves
// the snapshot untouched and returns an error matching ErrStorage.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	start := time.Now()
	defer func() {
		observability.StoreOperationDuration.WithLabelValues("restore").Observe(time.Since(start).Seconds())
	}()

	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		observability.StoreOperationsTotal.WithLabelValues("restore", "error").Inc()
		return false, fmt.Errorf("%w: read %q: %w", ErrStorage, s.key, err)
	}
	if !ok {
		observability.StoreOperationsTotal.WithLabelValues("restore", "miss").Inc()
		return false, nil
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		observability.StoreOperationsTotal.WithLabelValues("restore", "error").Inc()
		return false, err
	}

	s.mu.Lock()
	err = rec.mergeInto(&s.snap)
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		observability.StoreOperationsTotal.WithLabelValues("restore", "error").Inc()
		return false, err
	}

	observability.StoreOperationsTotal.WithLabelValues("restore", "hit").Inc()
	s.logger.Debug("snapshot restored", zap.String("key", s.key), zap.String("state", state.String()))
	return true, nil
}

// Persist overwrites the slot with the current snapshot.
func (s *Store) Persist(ctx context.Context) error {
	start := time.Now()
	defer func() {
		observability.StoreOperationDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds())
	}()

	s.mu.RLock()
	raw, err := encodeRecord(s.snap)
	s.mu.RUnlock()
	if err != nil {
		observability.StoreOperationsTotal.WithLabelValues("persist", "error").Inc()
		return fmt.Errorf("%w: encode snapshot: %w", ErrStorage, err)
	}

	if err := s.slot.Set(ctx, s.key, raw); err != nil {
		observability.StoreOperationsTotal.WithLabelValues("persist", "error").Inc()
		return fmt.Errorf("%w: write %q: %w", ErrStorage, s.key, err)
	}
	observability.StoreOperationsTotal.WithLabelValues("persist", "success").Inc()
	return nil
}

// IsPopulated reports whether any lookup result has been loaded.
func (s *Store) IsPopulated() bool {
	return s.State() != StateEmpty
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return StateOf(s.snap)
}

// StateOf derives the state of a snapshot from which groups it holds.
func StateOf(snap models.Snapshot) State {
	switch {
	case snap.Place == nil && snap.Forecast == nil:
		return StateEmpty
	case snap.Place != nil && snap.Forecast != nil:
		return StateReady
	default:
		return StatePartiallyLoaded
	}
}

// Snapshot returns a deep copy of the current snapshot.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

func (s *Store) Unit() units.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Unit
}

// Coords returns the cached coordinates, or nil before the first current-conditions apply.
func (s *Store) Coords() *models.Coords {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Place == nil {
		return nil
	}
	c := s.snap.Place.Coords
	return &c
}

// SetUnit replaces the unit profile only.
func (s *Store) SetUnit(p units.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Unit = p
}

// ApplyCurrent projects a current-conditions payload onto the place fields.
// An incomplete payload is rejected before anything changes.
func (s *Store) ApplyCurrent(p models.CurrentPayload) error {
	if m := p.Missing(); m != "" {
		return fmt.Errorf("%w: current conditions missing %s", client.ErrMalformedResponse, m)
	}

	place := &models.Place{
		Location: p.Name,
		Country:  p.Sys.Country,
		Coords:   *p.Coord,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Place = place
	return nil
}

// ApplyForecast replaces the forecast subtree with a projection of p.
// An incomplete payload is rejected before anything changes.
func (s *Store) ApplyForecast(p models.ForecastPayload) error {
	if m := p.Missing(); m != "" {
		return fmt.Errorf("%w: forecast missing %s", client.ErrMalformedResponse, m)
	}

	f := projectForecast(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Forecast = f
	return nil
}

// SwitchUnit commits a unit profile together with a forecast fetched in that
// unit, so readers never see one without the other. An incomplete payload is
// rejected and neither field changes.
func (s *Store) SwitchUnit(unit units.Profile, p models.ForecastPayload) error {
	if m := p.Missing(); m != "" {
		return fmt.Errorf("%w: forecast missing %s", client.ErrMalformedResponse, m)
	}

	f := projectForecast(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Unit = unit
	s.snap.Forecast = f
	return nil
}

// projectForecast assumes p.Missing() == "".
func projectForecast(p models.ForecastPayload) *models.Forecast {
	cur := p.Current
	today := p.Daily[0]

	f := &models.Forecast{
		Temp:        cur.Temp,
		FeelsLike:   cur.FeelsLike,
		TempMin:     today.Temp.Min,
		TempMax:     today.Temp.Max,
		Humidity:    cur.Humidity,
		RainChance:  p.Hourly[0].Pop,
		Sunrise:     today.Sunrise,
		Sunset:      today.Sunset,
		Icon:        cur.Weather[0].Icon,
		Description: cur.Weather[0].Description,
		Wind:        models.Wind{Speed: cur.WindSpeed, Deg: cur.WindDeg},
	}

	hourly := p.Hourly
	if len(hourly) > models.MaxHourly {
		hourly = hourly[:models.MaxHourly]
	}
	f.Hourly = make([]models.HourEntry, 0, len(hourly))
	for _, h := range hourly {
		f.Hourly = append(f.Hourly, models.HourEntry{
			Time: h.Dt,
			Icon: models.FirstIcon(h.Weather),
			Temp: h.Temp,
		})
	}

	daily := p.Daily
	if len(daily) > models.MaxDaily {
		daily = daily[:models.MaxDaily]
	}
	f.Daily = make([]models.DayEntry, 0, len(daily))
	for _, d := range daily {
		f.Daily = append(f.Daily, models.DayEntry{
			Time:       d.Dt,
			Icon:       models.FirstIcon(d.Weather),
			TempMin:    d.Temp.Min,
			TempMax:    d.Temp.Max,
			RainChance: d.Pop,
			Humidity:   d.Humidity,
		})
	}
	return f
}
