package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
)

// PaceZonesModel buckets recent laps into the pace zones of the current
// fitness score.
type PaceZonesModel struct {
	analytics Analytics
	units     Units
	now       func() time.Time
	bands     []analysis.PaceZoneBand
	loading   bool
	noFitness bool
	err       error
}

// NewPaceZonesModel creates a new pace zones model
func NewPaceZonesModel(analytics Analytics, units Units, now func() time.Time) PaceZonesModel {
	return PaceZonesModel{
		analytics: analytics,
		units:     units,
		now:       now,
		loading:   true,
	}
}

// Init initializes the pace zones screen
func (m PaceZonesModel) Init() tea.Cmd {
	return m.loadBands
}

type paceZonesLoadedMsg struct {
	bands []analysis.PaceZoneBand
	err   error
}

func (m PaceZonesModel) loadBands() tea.Msg {
	now := m.now()
	bands, err := m.analytics.GetPaceZoneStats(context.Background(), 0, service.DateRange{
		Start: now.Add(-service.DefaultQueryRange),
		End:   now,
	})
	return paceZonesLoadedMsg{bands: bands, err: err}
}

// Update handles messages
func (m PaceZonesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case paceZonesLoadedMsg:
		m.loading = false
		m.noFitness = errors.Is(msg.err, service.ErrNoFitness)
		if !m.noFitness {
			m.err = msg.err
		}
		m.bands = msg.bands
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			m.err = nil
			return m, m.loadBands
		}
	}
	return m, nil
}

// View renders the pace zones screen
func (m PaceZonesModel) View() string {
	if m.loading {
		return "\n  Loading pace zones..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.noFitness {
		return "\n  Pace zones need a fitness score. Record a run with heart rate first."
	}

	title := cardTitleStyle.Render("Pace Zones (laps, last 90 days)")
	header := tableHeaderStyle.Render(fmt.Sprintf("%-4s  %-15s  %4s  %9s  %9s  %10s  %5s",
		"Zone", "Range ("+m.units.PaceLabel()+")", "Laps", "Time", "Distance", "Avg pace", "HR"))
	rows := []string{title, header}

	var total float64
	for _, b := range m.bands {
		total += b.TotalDuration
	}

	for _, b := range m.bands {
		share := 0.0
		if total > 0 {
			share = b.TotalDuration / total
		}
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%s  %-15s  %4d  %9s  %9s  %10s  %5s  %s",
			zoneStyle(b.Zone).Render(fmt.Sprintf("Z%-3d", b.Zone)),
			m.units.FormatPace(b.PaceMin)+" - "+m.units.FormatPace(b.PaceMax),
			b.LapCount,
			formatDuration(b.TotalDuration),
			m.units.FormatDistance(b.TotalDistance),
			m.units.FormatPace(b.AvgPace),
			optional("%.0f", b.AvgHeartRate),
			RenderProgressBar(share, 20),
		)))
	}

	help := statusStyle.Render("Press 'r' to refresh")
	card := cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.JoinVertical(lipgloss.Left, card, help)
}
