package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
	"runlytics/internal/store"
)

// ZonesModel shows heart-rate zone rollups per week or month
type ZonesModel struct {
	analytics   Analytics
	units       Units
	now         func() time.Time
	granularity analysis.Granularity
	rollups     []store.ZoneRollup
	viewport    viewport.Model
	loading     bool
	err         error
	ready       bool
}

// NewZonesModel creates a new zones model
func NewZonesModel(analytics Analytics, units Units, now func() time.Time, width, height int) ZonesModel {
	m := ZonesModel{
		analytics:   analytics,
		units:       units,
		now:         now,
		granularity: analysis.Week,
		loading:     true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}

	return m
}

// Init initializes the zones screen
func (m ZonesModel) Init() tea.Cmd {
	return m.loadRollups
}

type zonesLoadedMsg struct {
	granularity analysis.Granularity
	rollups     []store.ZoneRollup
	err         error
}

func (m ZonesModel) loadRollups() tea.Msg {
	now := m.now()
	rollups, err := m.analytics.GetZoneStats(context.Background(), service.DateRange{
		Start: now.Add(-service.DefaultQueryRange),
		End:   now,
	}, m.granularity)
	return zonesLoadedMsg{granularity: m.granularity, rollups: rollups, err: err}
}

// Update handles messages
func (m ZonesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case zonesLoadedMsg:
		if msg.granularity != m.granularity {
			// Stale answer from before a toggle
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		m.rollups = msg.rollups
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if !m.loading {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadRollups
		case "g":
			if m.granularity == analysis.Week {
				m.granularity = analysis.Month
			} else {
				m.granularity = analysis.Week
			}
			m.loading = true
			return m, m.loadRollups
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the zones screen
func (m ZonesModel) View() string {
	if m.loading {
		return "\n  Loading zone rollups..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  g: week/month  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ZonesModel) renderContent() string {
	by := "Week"
	if m.granularity == analysis.Month {
		by = "Month"
	}
	title := cardTitleStyle.Render("Heart-Rate Zones by " + by + " (last 90 days)")

	if len(m.rollups) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "No runs with heart rate in this range.")
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-9s  %-4s  %4s  %9s  %9s  %10s  %7s  %6s  %5s",
		"Period", "Zone", "Runs", "Time", "Distance", "Pace", "Cadence", "Stride", "HR"))
	rows := []string{title, header}

	prev := ""
	for _, r := range m.rollups {
		period := r.Period
		if period == prev {
			period = ""
		}
		prev = r.Period

		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-9s  %s  %4d  %9s  %9s  %10s  %7s  %6s  %5s",
			period,
			zoneStyle(r.Zone).Render(fmt.Sprintf("Z%-3d", r.Zone)),
			r.ActivityCount,
			formatDuration(float64(r.TotalDuration)),
			m.units.FormatDistance(r.TotalDistance),
			m.units.FormatPaceWithUnit(r.AvgPace),
			optional("%.0f", r.AvgCadence),
			optional("%.2fm", r.AvgStride),
			optional("%.0f", r.AvgHeartRate),
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// optional formats v, or "-" when the mean had no samples
func optional(format string, v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf(format, v)
}
