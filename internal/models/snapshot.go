package models

import "github.com/kjstillabower/weather-dashboard/internal/units"

// Hourly and daily window sizes kept from a forecast response.
const (
	MaxHourly = 24
	MaxDaily  = 7
)

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is the part of a snapshot projected from a current-conditions lookup.
type Place struct {
	Location string `json:"location"`
	Country  string `json:"country"`
	Coords   Coords `json:"coords"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

type HourEntry struct {
	Time int64   `json:"time"`
	Icon string  `json:"icon"`
	Temp float64 `json:"temp"`
}

type DayEntry struct {
	Time       int64   `json:"time"`
	Icon       string  `json:"icon"`
	TempMin    float64 `json:"tempMin"`
	TempMax    float64 `json:"tempMax"`
	RainChance float64 `json:"rainChance"`
	Humidity   int     `json:"humidity"`
}

// Forecast is the part of a snapshot projected from a forecast lookup.
// It is always replaced as a whole.
type Forecast struct {
	Temp        float64     `json:"temp"`
	FeelsLike   float64     `json:"feelsLike"`
	TempMin     float64     `json:"tempMin"`
	TempMax     float64     `json:"tempMax"`
	Humidity    int         `json:"humidity"`
	RainChance  float64     `json:"rainChance"`
	Sunrise     int64       `json:"sunrise"`
	Sunset      int64       `json:"sunset"`
	Icon        string      `json:"icon"`
	Description string      `json:"description"`
	Wind        Wind        `json:"wind"`
	Hourly      []HourEntry `json:"hourly"`
	Daily       []DayEntry  `json:"daily"`
}

// Snapshot is the last-known weather for the loaded location.
// Place and Forecast stay nil until the matching lookup has succeeded once.
type Snapshot struct {
	Unit     units.Profile `json:"unit"`
	Place    *Place        `json:"place,omitempty"`
	Forecast *Forecast     `json:"forecast,omitempty"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Unit: s.Unit}
	if s.Place != nil {
		p := *s.Place
		out.Place = &p
	}
	if s.Forecast != nil {
		out.Forecast = s.Forecast.Clone()
	}
	return out
}

// Clone returns a deep copy of f.
func (f *Forecast) Clone() *Forecast {
	if f == nil {
		return nil
	}
	c := *f
	if f.Hourly != nil {
		c.Hourly = append([]HourEntry(nil), f.Hourly...)
	}
	if f.Daily != nil {
		c.Daily = append([]DayEntry(nil), f.Daily...)
	}
	return &c
}
