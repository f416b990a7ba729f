package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#7C3AED")
	good    = lipgloss.Color("#10B981")
	caution = lipgloss.Color("#F59E0B")
	bad     = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")
	bright  = lipgloss.Color("#F9FAFB")
)

var (
	plain = lipgloss.NewStyle()
	bold  = plain.Bold(true)

	headerStyle = bold.Foreground(bright).Background(accent).Padding(0, 1).MarginBottom(1)

	navStyle         = plain.Foreground(muted).MarginBottom(1)
	navActiveStyle   = bold.Foreground(accent)
	navInactiveStyle = plain.Foreground(muted)

	cardStyle      = plain.Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(1, 2)
	cardTitleStyle = bold.Foreground(accent).MarginBottom(1)
	sectionStyle   = bold.Foreground(good)

	metricLabelStyle = plain.Foreground(muted).Width(20)
	metricValueStyle = bold.Foreground(bright)

	tableHeaderStyle = bold.Foreground(accent).Padding(0, 1)
	tableRowStyle    = plain.Padding(0, 1)

	statusStyle  = plain.Foreground(muted).MarginTop(1)
	errorStyle   = plain.Foreground(bad)
	successStyle = plain.Foreground(good)
	warningStyle = plain.Foreground(caution)

	helpKeyStyle  = bold.Foreground(accent)
	helpDescStyle = plain.Foreground(muted)
)

// Heart-rate zone colors, easy to hard
var zoneColors = [...]lipgloss.Color{"#60A5FA", "#10B981", "#FACC15", "#F59E0B", "#EF4444"}

// zoneStyle colors a zone label. Zones outside 1..5 render muted.
func zoneStyle(zone int) lipgloss.Style {
	if zone < 1 || zone > len(zoneColors) {
		return plain.Foreground(muted)
	}
	return bold.Foreground(zoneColors[zone-1])
}

// RenderMetric lays out a label, a value and an optional change marker.
// Markers starting with + or ↑ render green, - or ↓ red.
func RenderMetric(label, value, change string) string {
	changeStyle := plain.Foreground(muted)
	if strings.HasPrefix(change, "+") || strings.HasPrefix(change, "↑") {
		changeStyle = plain.Foreground(good)
	} else if strings.HasPrefix(change, "-") || strings.HasPrefix(change, "↓") {
		changeStyle = plain.Foreground(bad)
	}

	return metricLabelStyle.Render(label) + metricValueStyle.Render(value) + changeStyle.Render(" "+change)
}

// RenderProgressBar draws share (0..1) of width cells filled
func RenderProgressBar(share float64, width int) string {
	filled := min(max(int(share*float64(width)), 0), width)
	return plain.Foreground(good).Render(strings.Repeat("█", filled)) +
		plain.Foreground(muted).Render(strings.Repeat("░", width-filled))
}
