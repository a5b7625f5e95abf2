package render

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// Round rounds half-way values toward positive infinity, so -2.5 becomes -2.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Temp formats a temperature as a rounded whole number with the unit's suffix, e.g. "5 °C".
func Temp(v float64, u units.Profile) string {
	return fmt.Sprintf("%d °%s", Round(v), u.TempSuffix)
}

// TempRange formats a daily low and high, e.g. "1 / 7 °C".
func TempRange(lo, hi float64, u units.Profile) string {
	return fmt.Sprintf("%d / %d °%s", Round(lo), Round(hi), u.TempSuffix)
}

// Wind formats a speed rounded to one decimal with the unit's wind suffix, e.g. "4.6 m/s".
func Wind(speed float64, u units.Profile) string {
	v := math.Floor(speed*10+0.5) / 10
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + u.WindSuffix
}

// PercentFloor formats a 0..1 fraction as a truncated percentage.
func PercentFloor(frac float64) string {
	return fmt.Sprintf("%d %%", int(math.Floor(frac*100)))
}

// PercentRound formats a 0..1 fraction as a rounded percentage.
func PercentRound(frac float64) string {
	return fmt.Sprintf("%d %%", Round(frac*100))
}

func Humidity(h int) string {
	return fmt.Sprintf("%d %%", h)
}

// ClockTime formats a unix timestamp as HH.MM in loc.
func ClockTime(unix int64, loc *time.Location) string {
	return time.Unix(unix, 0).In(loc).Format("15.04")
}

// DayMonth formats a unix timestamp as D.M. in loc, e.g. "19.10.".
func DayMonth(unix int64, loc *time.Location) string {
	t := time.Unix(unix, 0).In(loc)
	return fmt.Sprintf("%d.%d.", t.Day(), int(t.Month()))
}

// Weekday returns the English weekday name of a unix timestamp in loc.
func Weekday(unix int64, loc *time.Location) string {
	return time.Unix(unix, 0).In(loc).Weekday().String()
}
