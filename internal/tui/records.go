package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
)

// RecordsModel is the personal records screen model
type RecordsModel struct {
	analytics Analytics
	units     Units
	data      *service.PersonalRecordsResult
	viewport  viewport.Model
	loading   bool
	err       error
	ready     bool
}

// NewRecordsModel creates a new records model
func NewRecordsModel(analytics Analytics, units Units, width, height int) RecordsModel {
	m := RecordsModel{
		analytics: analytics,
		units:     units,
		loading:   true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}

	return m
}

// Init initializes the records screen
func (m RecordsModel) Init() tea.Cmd {
	return m.loadRecords
}

type recordsLoadedMsg struct {
	data *service.PersonalRecordsResult
	err  error
}

func (m RecordsModel) loadRecords() tea.Msg {
	data, err := m.analytics.GetPersonalRecords(context.Background(), analysis.TimeWindow{})
	return recordsLoadedMsg{data: data, err: err}
}

// Update handles messages
func (m RecordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
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
			return m, m.loadRecords
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the records screen
func (m RecordsModel) View() string {
	if m.loading {
		return "\n  Loading personal records..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m RecordsModel) renderContent() string {
	if m.data == nil {
		return "No personal records yet. Sync or import some runs first."
	}

	title := cardTitleStyle.Render("Personal Records (all time)")
	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %9s  %10s  %-16s", "Distance", "Time", "Pace", "When"))
	rows := []string{title, header}

	for _, r := range m.data.Records {
		if r.Effort == nil {
			rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %9s  %10s  %-16s", r.Target.Label, "-", "-", "")))
			continue
		}
		pace := analysis.PacePerKm(r.Target.Meters, r.Effort.DurationSeconds)
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %9s  %10s  %-16s",
			r.Target.Label,
			successStyle.Render(formatRaceTime(r.Effort.DurationSeconds)),
			m.units.FormatPaceWithUnit(pace),
			humanize.Time(r.Effort.AchievedAt),
		)))
	}

	if lr := m.data.LongestRun; lr != nil {
		rows = append(rows, "",
			RenderMetric("Longest run", m.units.FormatDistance(lr.Meters), ""),
			RenderMetric("Run on", lr.AchievedAt.Format("Mon Jan 2, 2006"), ""),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
