package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// HelpModel is the static help screen
type HelpModel struct{}

func NewHelpModel() HelpModel { return HelpModel{} }

func (m HelpModel) Init() tea.Cmd { return nil }

func (m HelpModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return m, nil }

type helpGroup struct {
	title string
	items [][2]string
}

var keyGroups = []helpGroup{
	{"Screens", [][2]string{
		{"1", "dashboard"},
		{"2", "heart-rate zone rollups"},
		{"3", "personal records"},
		{"4", "pace zones"},
		{"5, s", "sync with Strava"},
		{"?", "this help"},
		{"esc", "back"},
		{"q", "quit"},
	}},
	{"On every data screen", [][2]string{
		{"r", "reload"},
		{"j/k, arrows", "scroll"},
	}},
	{"Zones", [][2]string{
		{"g", "switch between weekly and monthly periods"},
	}},
	{"Sync", [][2]string{
		{"s, enter", "start a sync"},
	}},
}

var metricGlossary = [][2]string{
	{"VDOT", "fitness score from a run's pace, duration and heart rate; higher is fitter"},
	{"HR zone", "a run's average heart rate as a share of max HR, split at 70, 80, 87 and 93%"},
	{"Pace zone", "one of five training paces derived from VDOT, easy to repetition"},
	{"CTL", "fitness: 42-day weighted average of daily training load"},
	{"ATL", "fatigue: 7-day weighted average of daily training load"},
	{"TSB", "form: CTL minus ATL, positive when fresh"},
}

// View lists the key bindings and what each metric means
func (m HelpModel) View() string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Keys"))
	for _, g := range keyGroups {
		b.WriteString("\n\n" + sectionStyle.Render(g.title))
		for _, item := range g.items {
			b.WriteString("\n  " + helpKeyStyle.Width(14).Render(item[0]) + helpDescStyle.Render(item[1]))
		}
	}

	b.WriteString("\n\n" + sectionStyle.Render("Metrics"))
	for _, item := range metricGlossary {
		b.WriteString("\n  " + helpKeyStyle.Width(14).Render(item[0]) + helpDescStyle.Render(item[1]))
	}
	return b.String()
}
