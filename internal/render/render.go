package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// DefaultIconBaseURL serves the provider's condition icons.
const DefaultIconBaseURL = "http://openweathermap.org/img/wn"

//go:embed templates/*.html
var templateFS embed.FS

// Options carries per-request inputs that are not part of the snapshot.
type Options struct {
	// Flash is shown above the dashboard, typically the last action's error.
	Flash string
	// Place pre-fills the search box.
	Place string
}

type UnitOption struct {
	System  string
	Label   string
	Checked bool
}

type Header struct {
	Location    string
	Country     string
	Temp        string
	Description string
	IconURL     string
}

type InfoPair struct {
	Title   string
	Content string
}

type HourView struct {
	Time    string
	IconURL string
	Temp    string
}

type DayView struct {
	Date       string
	IconURL    string
	Temp       string
	RainChance string
	Humidity   string
}

// View is the fully formatted page model handed to the template.
type View struct {
	Flash  string
	Place  string
	State  string
	Ready  bool
	Units  []UnitOption
	Header Header
	Info   []InfoPair
	Hourly []HourView
	Daily  []DayView
}

// Renderer turns snapshots into the dashboard page.
type Renderer struct {
	tmpl     *template.Template
	iconBase string
	loc      *time.Location
}

// New parses the embedded templates. Times are shown in loc (UTC if nil).
func New(iconBase string, loc *time.Location) (*Renderer, error) {
	if iconBase == "" {
		iconBase = DefaultIconBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{
		tmpl:     tmpl,
		iconBase: strings.TrimRight(iconBase, "/"),
		loc:      loc,
	}, nil
}

// IconURL returns the 2x image URL for a provider icon code.
func (r *Renderer) IconURL(icon string) string {
	return fmt.Sprintf("%s/%s@2x.png", r.iconBase, icon)
}

// Dashboard writes the full page for snap.
func (r *Renderer) Dashboard(w io.Writer, snap models.Snapshot, opts Options) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", r.BuildView(snap, opts))
}

// BuildView formats snap for display. Weather regions are filled only when
// both the place and the forecast are loaded.
func (r *Renderer) BuildView(snap models.Snapshot, opts Options) View {
	state := store.StateOf(snap)
	v := View{
		Flash: opts.Flash,
		Place: opts.Place,
		State: state.String(),
		Ready: state == store.StateReady,
		Units: unitOptions(snap.Unit),
	}
	if !v.Ready {
		return v
	}

	u := snap.Unit
	p, f := snap.Place, snap.Forecast

	v.Header = Header{
		Location:    strings.ToUpper(p.Location),
		Country:     p.Country,
		Temp:        Temp(f.Temp, u),
		Description: f.Description,
		IconURL:     r.IconURL(f.Icon),
	}

	v.Info = []InfoPair{
		{Title: "SUNRISE", Content: ClockTime(f.Sunrise, r.loc)},
		{Title: "SUNSET", Content: ClockTime(f.Sunset, r.loc)},
		{Title: "CHANCE OF RAIN", Content: PercentFloor(f.RainChance)},
		{Title: "HUMIDITY", Content: Humidity(f.Humidity)},
		{Title: "MAX", Content: Temp(f.TempMax, u)},
		{Title: "MIN", Content: Temp(f.TempMin, u)},
		{Title: "WIND", Content: Wind(f.Wind.Speed, u)},
		{Title: "FEELS LIKE", Content: Temp(f.FeelsLike, u)},
	}

	for i, h := range f.Hourly {
		if i == models.MaxHourly {
			break
		}
		v.Hourly = append(v.Hourly, HourView{
			Time:    ClockTime(h.Time, r.loc),
			IconURL: r.IconURL(h.Icon),
			Temp:    Temp(h.Temp, u),
		})
	}

	for i, d := range f.Daily {
		if i == models.MaxDaily {
			break
		}
		v.Daily = append(v.Daily, DayView{
			Date:       DayMonth(d.Time, r.loc) + " – " + Weekday(d.Time, r.loc),
			IconURL:    r.IconURL(d.Icon),
			Temp:       TempRange(d.TempMin, d.TempMax, u),
			RainChance: PercentRound(d.RainChance),
			Humidity:   Humidity(d.Humidity),
		})
	}
	return v
}

func unitOptions(active units.Profile) []UnitOption {
	all := units.All()
	out := make([]UnitOption, 0, len(all))
	for _, p := range all {
		out = append(out, UnitOption{
			System:  p.System.String(),
			Label:   "°" + p.TempSuffix,
			Checked: p.System == active.System,
		})
	}
	return out
}
