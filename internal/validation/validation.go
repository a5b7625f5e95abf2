package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// ErrEmptyInput is returned when a lookup is attempted without the input it needs.
var ErrEmptyInput = errors.New("empty input")

// ErrMissingCoords is returned when a forecast lookup has no usable coordinates.
// It matches ErrEmptyInput under errors.Is.
var ErrMissingCoords = fmt.Errorf("%w: missing coordinates", ErrEmptyInput)

// Place trims the input and rejects a blank place name.
// Anything else is passed to the provider as-is.
func Place(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: place name is required", ErrEmptyInput)
	}
	return s, nil
}

// Coords rejects nil or non-finite coordinates.
func Coords(c *models.Coords) error {
	if c == nil {
		return ErrMissingCoords
	}
	if !finite(c.Lat) || !finite(c.Lon) {
		return ErrMissingCoords
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
