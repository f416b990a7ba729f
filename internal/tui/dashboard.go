package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"runlytics/internal/analysis"
	"runlytics/internal/service"
	"runlytics/internal/store"
)

// trendSpan is how far back the dashboard chart reaches
const trendSpan = 26 * 7 * 24 * time.Hour

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	analytics Analytics
	units     Units
	now       func() time.Time
	data      *dashboardData
	loading   bool
	err       error
}

type dashboardData struct {
	fitness *service.CurrentFitness // nil when no recent scored run
	form    *service.TrainingForm
	trend   []store.FitnessTrendPoint
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(analytics Analytics, units Units, now func() time.Time) DashboardModel {
	return DashboardModel{
		analytics: analytics,
		units:     units,
		now:       now,
		loading:   true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m DashboardModel) loadData() tea.Msg {
	ctx := context.Background()
	now := m.now()
	data := &dashboardData{}

	fitness, err := m.analytics.GetCurrentFitness(ctx)
	if err != nil && !errors.Is(err, service.ErrNoFitness) {
		return dashboardDataMsg{err: err}
	}
	data.fitness = fitness

	form, err := m.analytics.GetTrainingForm(ctx, service.DateRange{
		Start: now.Add(-service.DefaultQueryRange),
		End:   now,
	})
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	data.form = form

	trend, err := m.analytics.GetFitnessTrend(ctx, service.DateRange{
		Start: now.Add(-trendSpan),
		End:   now,
	}, analysis.Week)
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	data.trend = trend

	return dashboardDataMsg{data: data}
}

type dashboardDataMsg struct {
	data *dashboardData
	err  error
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.data == nil || (m.data.fitness == nil && len(m.data.trend) == 0) {
		return "\n  No runs yet. Press 's' to sync with Strava or run 'runlytics ingest <dir>'."
	}

	var sections []string

	// Top row: current fitness and training form side by side
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderFitnessCard(), "  ", m.renderFormCard())
	sections = append(sections, topRow)

	if len(m.data.trend) > 2 {
		sections = append(sections, m.renderChart())
	}

	if m.data.fitness != nil && len(m.data.fitness.Predictions) > 0 {
		sections = append(sections, m.renderPredictions())
	}

	help := statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for zone rollups")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderFitnessCard() string {
	title := cardTitleStyle.Render("Current Fitness")

	f := m.data.fitness
	if f == nil {
		body := statusStyle.Render("No scored run in the last six weeks")
		return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
	}

	lines := []string{
		RenderMetric("VDOT", fmt.Sprintf("%.1f", f.Score), m.fitnessTrend()),
		RenderMetric("Level", f.Label, ""),
		RenderMetric("Measured", humanize.RelTime(f.MeasuredAt, m.now(), "ago", "from now"), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(38).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// fitnessTrend compares the last two weekly averages
func (m DashboardModel) fitnessTrend() string {
	n := len(m.data.trend)
	if n < 2 {
		return ""
	}
	delta := m.data.trend[n-1].AvgFitness - m.data.trend[n-2].AvgFitness
	switch {
	case delta > 0.05:
		return fmt.Sprintf("↑ %.1f", delta)
	case delta < -0.05:
		return fmt.Sprintf("↓ %.1f", -delta)
	}
	return "→"
}

func (m DashboardModel) renderFormCard() string {
	title := cardTitleStyle.Render("Training Form")

	form := m.data.form
	if form == nil || len(form.Trend) == 0 {
		body := statusStyle.Render("No training load recorded")
		return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
	}

	cur := form.Current
	lines := []string{
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.0f", cur.CTL), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.0f", cur.ATL), ""),
		RenderMetric("Form (TSB)", fmt.Sprintf("%+.0f", cur.TSB), ""),
		"",
		statusStyle.Render(form.Description),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart() string {
	title := cardTitleStyle.Render("VDOT - Weekly Average")

	series := make([]float64, 0, len(m.data.trend))
	for _, p := range m.data.trend {
		if p.AvgFitness > 0 {
			series = append(series, p.AvgFitness)
		}
	}
	if len(series) < 2 {
		return ""
	}

	graph := asciigraph.Plot(series,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(1),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderPredictions() string {
	title := cardTitleStyle.Render("Race Predictions")

	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %9s  %10s", "Race", "Time", "Pace"))
	rows := []string{header}
	for _, p := range m.data.fitness.Predictions {
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-10s  %9s  %10s",
			p.TargetName,
			formatRaceTime(float64(p.PredictedSeconds)),
			m.units.FormatPaceWithUnit(p.PacePerKm),
		)))
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}
