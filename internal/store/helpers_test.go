package store

import (
	"context"
	"errors"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

var errSlotDown = errors.New("slot down")

// failingSlot fails every read and/or write.
type failingSlot struct {
	failGet bool
	failSet bool
	sets    int
}

func (f *failingSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errSlotDown
	}
	return nil, false, nil
}

func (f *failingSlot) Set(ctx context.Context, key string, value []byte) error {
	f.sets++
	if f.failSet {
		return errSlotDown
	}
	return nil
}

func currentPayload(name, country string, lat, lon float64) models.CurrentPayload {
	return models.CurrentPayload{
		Name:  name,
		Coord: &models.Coords{Lat: lat, Lon: lon},
		Sys:   models.CurrentSys{Country: country},
	}
}

// forecastPayload builds a complete payload with n hourly and d daily entries.
func forecastPayload(temp float64, n, d int) models.ForecastPayload {
	p := models.ForecastPayload{
		Current: &models.CurrentConditions{
			Temp:      temp,
			FeelsLike: temp - 3,
			Humidity:  81,
			WindSpeed: 4.56,
			WindDeg:   200,
			Weather:   []models.WeatherCondition{{Description: "broken clouds", Icon: "04d"}},
		},
	}
	for i := 0; i < n; i++ {
		p.Hourly = append(p.Hourly, models.HourlyItem{
			Dt:      1700000000 + int64(i)*3600,
			Temp:    temp + float64(i),
			Pop:     0.25,
			Weather: []models.WeatherCondition{{Icon: "10d"}},
		})
	}
	for i := 0; i < d; i++ {
		p.Daily = append(p.Daily, models.DailyItem{
			Dt:       1700000000 + int64(i)*86400,
			Sunrise:  1699990000,
			Sunset:   1700020000,
			Temp:     models.DailyTemp{Min: 1.1, Max: 6.4},
			Pop:      0.4,
			Humidity: 70 + i,
			Weather:  []models.WeatherCondition{{Icon: "01d"}},
		})
	}
	return p
}
