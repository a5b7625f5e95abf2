package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned when a measurement system identifier matches no profile.
var ErrUnknownUnit = errors.New("unknown unit system")

// System identifies a measurement system understood by the weather provider.
type System string

const (
	SystemStandard System = "standard"
	SystemMetric   System = "metric"
	SystemImperial System = "imperial"
)

// Profile bundles a measurement system with the suffixes used to display it.
type Profile struct {
	System     System `json:"system"`
	TempSuffix string `json:"tempSuffix"`
	WindSuffix string `json:"windSuffix"`
}

var (
	Standard = Profile{System: SystemStandard, TempSuffix: "K", WindSuffix: "m/s"}
	Metric   = Profile{System: SystemMetric, TempSuffix: "C", WindSuffix: "m/s"}
	Imperial = Profile{System: SystemImperial, TempSuffix: "F", WindSuffix: "mph"}
)

var registry = []Profile{Standard, Metric, Imperial}

// Default returns the profile used before the user picks one.
func Default() Profile {
	return Standard
}

// All returns every known profile in display order.
func All() []Profile {
	out := make([]Profile, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the profile for a system identifier such as "metric".
// Case and surrounding whitespace are ignored.
func Lookup(system string) (Profile, error) {
	s := System(strings.ToLower(strings.TrimSpace(system)))
	for _, p := range registry {
		if p.System == s {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownUnit, system)
}

// IsZero reports whether p is the zero Profile (no system set).
func (p Profile) IsZero() bool {
	return p.System == ""
}

func (s System) String() string {
	return string(s)
}
