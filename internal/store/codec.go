package store

import (
	"encoding/json"
	"fmt"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// recordVersion is written with every persisted record. Records without a
// version field are treated as version 0 and read the same way.
const recordVersion = 1

// record is the persisted layout. Pointer fields distinguish "absent" from
// "zero" so a restore only overrides what the record actually carries.
type record struct {
	Version int            `json:"version"`
	Unit    *units.Profile `json:"unit,omitempty"`

	Location *string        `json:"location,omitempty"`
	Country  *string        `json:"country,omitempty"`
	Coords   *models.Coords `json:"coords,omitempty"`

	Temp        *float64            `json:"temp,omitempty"`
	FeelsLike   *float64            `json:"feelsLike,omitempty"`
	TempMin     *float64            `json:"tempMin,omitempty"`
	TempMax     *float64            `json:"tempMax,omitempty"`
	Humidity    *int                `json:"humidity,omitempty"`
	RainChance  *float64            `json:"rainChance,omitempty"`
	Sunrise     *int64              `json:"sunrise,omitempty"`
	Sunset      *int64              `json:"sunset,omitempty"`
	Icon        *string             `json:"icon,omitempty"`
	Description *string             `json:"description,omitempty"`
	Wind        *models.Wind        `json:"wind,omitempty"`
	Hourly      *[]models.HourEntry `json:"hourly,omitempty"`
	Daily       *[]models.DayEntry  `json:"daily,omitempty"`
}

func encodeRecord(s models.Snapshot) ([]byte, error) {
	unit := s.Unit
	rec := record{Version: recordVersion, Unit: &unit}

	if p := s.Place; p != nil {
		location, country, coords := p.Location, p.Country, p.Coords
		rec.Location = &location
		rec.Country = &country
		rec.Coords = &coords
	}

	if f := s.Forecast.Clone(); f != nil {
		rec.Temp = &f.Temp
		rec.FeelsLike = &f.FeelsLike
		rec.TempMin = &f.TempMin
		rec.TempMax = &f.TempMax
		rec.Humidity = &f.Humidity
		rec.RainChance = &f.RainChance
		rec.Sunrise = &f.Sunrise
		rec.Sunset = &f.Sunset
		rec.Icon = &f.Icon
		rec.Description = &f.Description
		rec.Wind = &f.Wind
		hourly, daily := f.Hourly, f.Daily
		if hourly == nil {
			hourly = []models.HourEntry{}
		}
		if daily == nil {
			daily = []models.DayEntry{}
		}
		rec.Hourly = &hourly
		rec.Daily = &daily
	}

	return json.Marshal(rec)
}

func decodeRecord(raw []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, fmt.Errorf("%w: decode record: %w", ErrStorage, err)
	}
	if rec.Version < 0 || rec.Version > recordVersion {
		return record{}, fmt.Errorf("%w: unsupported record version %d", ErrStorage, rec.Version)
	}
	return rec, nil
}

func (r record) hasPlace() bool {
	return r.Location != nil || r.Country != nil || r.Coords != nil
}

func (r record) hasForecast() bool {
	return r.Temp != nil || r.FeelsLike != nil || r.TempMin != nil || r.TempMax != nil ||
		r.Humidity != nil || r.RainChance != nil || r.Sunrise != nil || r.Sunset != nil ||
		r.Icon != nil || r.Description != nil || r.Wind != nil || r.Hourly != nil || r.Daily != nil
}

// mergeInto overlays the groups present in r onto s. Absent groups keep
// their current values; within a present group absent fields become zero.
// The unit is resolved through the registry so suffixes are always canonical.
// On error s is left unchanged.
func (r record) mergeInto(s *models.Snapshot) error {
	unit := s.Unit
	if r.Unit != nil {
		p, err := units.Lookup(string(r.Unit.System))
		if err != nil {
			return fmt.Errorf("%w: persisted unit: %w", ErrStorage, err)
		}
		unit = p
	}

	place := s.Place
	if r.hasPlace() {
		place = &models.Place{
			Location: deref(r.Location),
			Country:  deref(r.Country),
			Coords:   deref(r.Coords),
		}
	}

	forecast := s.Forecast
	if r.hasForecast() {
		forecast = &models.Forecast{
			Temp:        deref(r.Temp),
			FeelsLike:   deref(r.FeelsLike),
			TempMin:     deref(r.TempMin),
			TempMax:     deref(r.TempMax),
			Humidity:    deref(r.Humidity),
			RainChance:  deref(r.RainChance),
			Sunrise:     deref(r.Sunrise),
			Sunset:      deref(r.Sunset),
			Icon:        deref(r.Icon),
			Description: deref(r.Description),
			Wind:        deref(r.Wind),
			Hourly:      truncate(deref(r.Hourly), models.MaxHourly),
			Daily:       truncate(deref(r.Daily), models.MaxDaily),
		}
	}

	s.Unit = unit
	s.Place = place
	s.Forecast = forecast
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
