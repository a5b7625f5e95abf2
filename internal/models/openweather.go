package models

// CurrentPayload is the subset of the OpenWeatherMap "current weather by name"
// response the dashboard reads.
type CurrentPayload struct {
	Name  string     `json:"name"`
	Coord *Coords    `json:"coord"`
	Sys   CurrentSys `json:"sys"`
}

type CurrentSys struct {
	Country string `json:"country"`
}

type WeatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// ForecastPayload is the subset of the OpenWeatherMap one-call response
// (minutely and alerts excluded) the dashboard reads.
type ForecastPayload struct {
	Lat            float64            `json:"lat"`
	Lon            float64            `json:"lon"`
	Timezone       string             `json:"timezone"`
	TimezoneOffset int                `json:"timezone_offset"`
	Current        *CurrentConditions `json:"current"`
	Hourly         []HourlyItem       `json:"hourly"`
	Daily          []DailyItem        `json:"daily"`
}

type CurrentConditions struct {
	Dt        int64              `json:"dt"`
	Temp      float64            `json:"temp"`
	FeelsLike float64            `json:"feels_like"`
	Humidity  int                `json:"humidity"`
	WindSpeed float64            `json:"wind_speed"`
	WindDeg   float64            `json:"wind_deg"`
	Weather   []WeatherCondition `json:"weather"`
}

type HourlyItem struct {
	Dt      int64              `json:"dt"`
	Temp    float64            `json:"temp"`
	Pop     float64            `json:"pop"`
	Weather []WeatherCondition `json:"weather"`
}

type DailyItem struct {
	Dt       int64              `json:"dt"`
	Sunrise  int64              `json:"sunrise"`
	Sunset   int64              `json:"sunset"`
	Temp     DailyTemp          `json:"temp"`
	Pop      float64            `json:"pop"`
	Humidity int                `json:"humidity"`
	Weather  []WeatherCondition `json:"weather"`
}

type DailyTemp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FirstIcon returns the icon of the first condition, or "" when there is none.
func FirstIcon(conds []WeatherCondition) string {
	if len(conds) == 0 {
		return ""
	}
	return conds[0].Icon
}

// Missing names the first required field absent from p, or "" when p is complete.
func (p CurrentPayload) Missing() string {
	if p.Coord == nil {
		return "coord"
	}
	return ""
}

// Missing names the first required field absent from p, or "" when p is complete.
// The dashboard reads current.weather[0], daily[0] and hourly[0], so all must exist.
func (p ForecastPayload) Missing() string {
	switch {
	case p.Current == nil:
		return "current"
	case len(p.Current.Weather) == 0:
		return "current.weather"
	case len(p.Daily) == 0:
		return "daily"
	case len(p.Hourly) == 0:
		return "hourly"
	}
	return ""
}
