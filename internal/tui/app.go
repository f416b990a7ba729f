package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"runlytics/internal/analysis"
	"runlytics/internal/config"
	"runlytics/internal/service"
	"runlytics/internal/store"
)

// Analytics is the query side the screens render
type Analytics interface {
	GetZoneStats(ctx context.Context, r service.DateRange, g analysis.Granularity) ([]store.ZoneRollup, error)
	GetFitnessTrend(ctx context.Context, r service.DateRange, g analysis.Granularity) ([]store.FitnessTrendPoint, error)
	GetPersonalRecords(ctx context.Context, w analysis.TimeWindow) (*service.PersonalRecordsResult, error)
	GetPaceZoneStats(ctx context.Context, fitnessScore float64, r service.DateRange) ([]analysis.PaceZoneBand, error)
	GetCurrentFitness(ctx context.Context) (*service.CurrentFitness, error)
	GetTrainingForm(ctx context.Context, r service.DateRange) (*service.TrainingForm, error)
}

// Syncer pulls new runs from Strava
type Syncer interface {
	SyncAll(ctx context.Context, progress chan<- service.SyncProgress) (*service.SyncResult, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// Rebuilder refreshes the precomputed rollups after a sync stored backfill
type Rebuilder interface {
	RebuildIfStale(ctx context.Context) (*store.RollupBuild, error)
}

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenZones
	ScreenRecords
	ScreenPaceZones
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard  DashboardModel
	zones      ZonesModel
	records    RecordsModel
	paceZones  PaceZonesModel
	syncScreen SyncModel
	help       HelpModel

	analytics Analytics
	rebuilder Rebuilder
	units     Units
	now       func() time.Time

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App. syncer and rebuilder may be nil; the sync
// screen then explains how to enable Strava.
func NewApp(analytics Analytics, syncer Syncer, rebuilder Rebuilder, display config.DisplayConfig) *App {
	units := NewUnits(display)
	a := &App{
		screen:     ScreenDashboard,
		analytics:  analytics,
		rebuilder:  rebuilder,
		units:      units,
		now:        time.Now,
		syncScreen: NewSyncModel(syncer),
		help:       NewHelpModel(),
	}
	a.dashboard = NewDashboardModel(analytics, units, a.now)
	a.zones = NewZonesModel(analytics, units, a.now, 0, 0)
	a.records = NewRecordsModel(analytics, units, 0, 0)
	a.paceZones = NewPaceZonesModel(analytics, units, a.now)
	return a
}

// Init loads the dashboard and brings the rollups up to date
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.dashboard.Init(), a.rebuildIfStale)
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless in sync mode)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = NewDashboardModel(a.analytics, a.units, a.now)
				return a, a.dashboard.Init()
			case "2":
				a.screen = ScreenZones
				a.zones = NewZonesModel(a.analytics, a.units, a.now, a.width, a.height)
				return a, a.zones.Init()
			case "3":
				a.screen = ScreenRecords
				a.records = NewRecordsModel(a.analytics, a.units, a.width, a.height)
				return a, a.records.Init()
			case "4":
				a.screen = ScreenPaceZones
				a.paceZones = NewPaceZonesModel(a.analytics, a.units, a.now)
				return a, a.paceZones.Init()
			case "5", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
				}
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Scrolling screens size their viewports even when hidden.
		var m tea.Model
		m, _ = a.zones.Update(msg)
		a.zones = m.(ZonesModel)
		m, _ = a.records.Update(msg)
		a.records = m.(RecordsModel)
		return a, nil

	case SyncCompleteMsg:
		a.status = msg.status()
		a.screen = ScreenDashboard
		a.dashboard = NewDashboardModel(a.analytics, a.units, a.now)
		return a, tea.Batch(a.dashboard.Init(), a.rebuildIfStale)

	case rebuildDoneMsg:
		switch {
		case msg.err != nil:
			a.status = "Rollup rebuild failed: " + msg.err.Error()
		case msg.build != nil:
			a.status = "Rollups rebuilt"
		}
		return a, nil
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenZones:
		var m tea.Model
		m, cmd = a.zones.Update(msg)
		a.zones = m.(ZonesModel)
	case ScreenRecords:
		var m tea.Model
		m, cmd = a.records.Update(msg)
		a.records = m.(RecordsModel)
	case ScreenPaceZones:
		var m tea.Model
		m, cmd = a.paceZones.Update(msg)
		a.paceZones = m.(PaceZonesModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

type rebuildDoneMsg struct {
	build *store.RollupBuild
	err   error
}

func (a *App) rebuildIfStale() tea.Msg {
	if a.rebuilder == nil {
		return nil
	}
	build, err := a.rebuilder.RebuildIfStale(context.Background())
	return rebuildDoneMsg{build: build, err: err}
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenZones:
		content = a.zones.View()
	case ScreenRecords:
		content = a.records.View()
	case ScreenPaceZones:
		content = a.paceZones.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Runlytics")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Zones", ScreenZones},
		{"3", "Records", ScreenRecords},
		{"4", "Pace Zones", ScreenPaceZones},
		{"5", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct {
	Result *service.SyncResult
}

func (m SyncCompleteMsg) status() string {
	if m.Result == nil {
		return ""
	}
	if m.Result.Backfilled > 0 {
		return "Sync stored older runs; refreshing rollups..."
	}
	return "Sync complete"
}
