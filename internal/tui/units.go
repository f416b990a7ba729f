package tui

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"runlytics/internal/config"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	if u.IsMiles() {
		return humanize.FormatFloat("#,###.#", meters/metersPerMile) + " mi"
	}
	return humanize.FormatFloat("#,###.#", meters/metersPerKm) + " km"
}

// FormatPace formats a pace stored in seconds per km in the user's
// preferred unit. A non-positive pace renders as "-".
func (u Units) FormatPace(secPerKm float64) string {
	if secPerKm <= 0 {
		return "-"
	}
	pace := secPerKm
	if u.cfg.PaceUnit == "min/mi" {
		pace = secPerKm * metersPerMile / metersPerKm
	}

	total := int(pace + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatPaceWithUnit formats pace with the unit label
func (u Units) FormatPaceWithUnit(secPerKm float64) string {
	pace := u.FormatPace(secPerKm)
	if pace == "-" {
		return pace
	}
	return pace + "/" + u.paceDistance()
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// PaceLabel returns the pace unit label ("min/mi" or "min/km")
func (u Units) PaceLabel() string {
	if u.cfg.PaceUnit == "min/mi" {
		return "min/mi"
	}
	return "min/km"
}

func (u Units) paceDistance() string {
	if u.cfg.PaceUnit == "min/mi" {
		return "mi"
	}
	return "km"
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

// formatDuration renders whole seconds as "1h 02m" or "42m 10s"
func formatDuration(seconds float64) string {
	s := int(seconds + 0.5)
	h := s / 3600
	m := (s % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%dm %02ds", m, s%60)
}

// formatRaceTime renders a race result as h:mm:ss or m:ss
func formatRaceTime(seconds float64) string {
	s := int(seconds + 0.5)
	h := s / 3600
	m := (s % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s%60)
	}
	return fmt.Sprintf("%d:%02d", m, s%60)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
