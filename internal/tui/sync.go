package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"runlytics/internal/service"
)

// SyncModel runs a Strava sync and shows its progress
type SyncModel struct {
	syncer   Syncer
	run      *syncRun
	syncing  bool
	progress service.SyncProgress
	result   *service.SyncResult
	err      error
}

// NewSyncModel returns the sync screen. A nil syncer disables syncing.
func NewSyncModel(syncer Syncer) SyncModel {
	return SyncModel{syncer: syncer}
}

func (m SyncModel) Init() tea.Cmd { return nil }

// SyncDoneMsg carries the outcome of a sync
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// syncRun connects one SyncAll call to the update loop. SyncAll closes
// progress before it returns, after which the outcome arrives on done.
type syncRun struct {
	progress chan service.SyncProgress
	done     chan SyncDoneMsg
}

func (r *syncRun) next() tea.Msg {
	if p, ok := <-r.progress; ok {
		return syncProgressMsg(p)
	}
	return <-r.done
}

func (m SyncModel) start() (SyncModel, tea.Cmd) {
	run := &syncRun{
		progress: make(chan service.SyncProgress, 8),
		done:     make(chan SyncDoneMsg, 1),
	}
	go func(s Syncer) {
		result, err := s.SyncAll(context.Background(), run.progress)
		run.done <- SyncDoneMsg{Result: result, Err: err}
	}(m.syncer)

	m.run = run
	m.syncing = true
	m.progress = service.SyncProgress{}
	m.result, m.err = nil, nil
	return m, run.next
}

func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case syncProgressMsg:
		m.progress = service.SyncProgress(msg)
		return m, m.run.next

	case SyncDoneMsg:
		m.syncing = false
		m.run = nil
		m.result, m.err = msg.Result, msg.Err
		if msg.Err != nil {
			return m, nil
		}
		return m, func() tea.Msg { return SyncCompleteMsg{Result: msg.Result} }

	case tea.KeyMsg:
		if m.syncing || m.syncer == nil {
			return m, nil
		}
		if k := msg.String(); k == "s" || k == "enter" {
			return m.start()
		}
	}
	return m, nil
}

func (m SyncModel) View() string {
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Strava Sync") + "\n")

	switch {
	case m.syncer == nil:
		b.WriteString("\n  Strava is not configured.\n")
		b.WriteString(statusStyle.Render("  Set strava.client_id and strava.client_secret in the config file, then run 'runlytics sync' once to log in."))
	case m.syncing:
		b.WriteString(m.viewProgress())
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("\n  Sync failed: %v", m.err)) + "\n")
		b.WriteString(m.viewSummary())
		b.WriteString(statusStyle.Render("  s or enter: retry"))
	default:
		short, daily := m.syncer.RateLimitStatus()
		b.WriteString("\n  Fetches runs started since the last sync, downloads their laps\n")
		b.WriteString("  and scores them. Older runs found on the way are backfilled.\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("  Requests left: %d this window, %d today", short, daily)) + "\n")
		b.WriteString(statusStyle.Render("  s or enter: start"))
	}
	return b.String()
}

func (m SyncModel) viewProgress() string {
	p := m.progress
	switch {
	case p.Phase == "laps" && p.Total > 0:
		line := fmt.Sprintf("\n  Downloading laps  %s  %d/%d\n", RenderProgressBar(float64(p.Completed)/float64(p.Total), 30), p.Completed, p.Total)
		if p.CurrentActivity != "" {
			line += statusStyle.Render("  "+truncateName(p.CurrentActivity, 50)) + "\n"
		}
		return line
	case p.Phase == "activities" && p.Total > 0:
		return fmt.Sprintf("\n  Listing activities... %s found\n", humanize.Comma(int64(p.Total)))
	}
	return "\n  Contacting Strava...\n"
}

func (m SyncModel) viewSummary() string {
	r := m.result
	if r == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	if r.ActivitiesStored == 0 {
		b.WriteString(statusStyle.Render("  No new runs") + "\n")
	} else {
		b.WriteString(successStyle.Render(fmt.Sprintf("  %s runs, %s laps stored",
			humanize.Comma(int64(r.ActivitiesStored)), humanize.Comma(int64(r.LapsFetched)))) + "\n")
	}
	if r.Backfilled > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("  %d older runs backfilled", r.Backfilled)) + "\n")
	}
	if r.Skipped > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  %d non-run activities skipped", r.Skipped)) + "\n")
	}
	if n := len(r.Errors); n > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("  %d activities failed", n)) + "\n")
	}
	return b.String()
}
