package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"runlytics/internal/api"
	"runlytics/internal/events"
	"runlytics/internal/fitfile"
	"runlytics/internal/service"
	"runlytics/internal/store"
	"runlytics/internal/tui"
)

func runTUI(ctx context.Context, d *deps) error {
	// Sync is optional in the TUI; without credentials the screen says so.
	var syncer tui.Syncer
	if d.cfg.ValidateStrava() == nil {
		svc, err := d.syncService(ctx)
		if err != nil {
			return err
		}
		syncer = svc
	}

	app := tui.NewApp(d.analytics, syncer, d.rollups, d.cfg.Display)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, d *deps, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", d.cfg.Server.Addr, "address to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Catch up on backfill stored while the server was down.
	if _, err := d.rollups.RebuildIfStale(ctx); err != nil {
		d.logger.Error("startup rollup rebuild", "err", err)
	}

	go func() {
		if err := d.rollups.Run(ctx, d.cfg.RebuildInterval()); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("rollup ticker stopped", "err", err)
		}
	}()

	if len(d.cfg.Kafka.Brokers) > 0 {
		sub := events.NewSubscriber(d.cfg.Kafka.Brokers, d.cfg.Kafka.Topic, d.cfg.Kafka.GroupID, d.rollups, d.logger)
		defer sub.Close()
		go func() {
			if err := sub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("event subscriber stopped", "err", err)
			}
		}()
	}

	if d.cfg.Ingest.WatchDir != "" {
		w, err := startWatcher(ctx, d, d.cfg.Ingest.WatchDir)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := api.NewServer(d.analytics, d.rollups, d.logger)
	d.logger.Info("listening", "addr", *addr)
	return srv.Listen(ctx, *addr)
}

func runIngest(ctx context.Context, d *deps, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: runlytics ingest <file|dir> [file|dir ...]")
	}

	var paths []string
	for _, root := range args {
		found, err := fitfile.Collect(root)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		fmt.Println("No .fit files found")
		return nil
	}

	result := d.ingest.ImportFITFiles(ctx, paths)
	printImport(result)
	d.rebuildIfStale(ctx)

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d files failed", len(result.Errors), len(paths))
	}
	return nil
}

func printImport(r *service.ImportResult) {
	fmt.Printf("Imported %s runs (%s skipped, %s backfilled)\n",
		humanize.Comma(int64(r.Stored)), humanize.Comma(int64(r.Skipped)), humanize.Comma(int64(r.Backfilled)))
	for _, err := range r.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	}
}

func runWatch(ctx context.Context, d *deps, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	scan := fs.Bool("scan", true, "import existing files before watching")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := d.cfg.Ingest.WatchDir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	if dir == "" {
		return errors.New("usage: runlytics watch <dir> (or set ingest.watch_dir)")
	}

	if *scan {
		if err := runIngest(ctx, d, []string{dir}); err != nil {
			d.logger.Warn("initial import", "err", err)
		}
	}

	w, err := startWatcher(ctx, d, dir)
	if err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s for new .fit files (ctrl+c to stop)\n", dir)
	<-ctx.Done()
	return nil
}

func startWatcher(ctx context.Context, d *deps, dir string) (*fitfile.Watcher, error) {
	w, err := fitfile.NewWatcher(d.cfg.IngestDebounce(), func(paths []string) {
		result := d.ingest.ImportFITFiles(ctx, paths)
		d.logger.Info("imported fit files",
			"stored", result.Stored,
			"skipped", result.Skipped,
			"backfilled", result.Backfilled,
			"errors", len(result.Errors),
		)
		for _, err := range result.Errors {
			d.logger.Warn("fit import failed", "err", err)
		}
		d.rebuildIfStale(ctx)
	}, d.logger)
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	watched, unwatched, err := w.WatchRecursive(dir)
	if err != nil {
		w.Stop()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	if unwatched > 0 {
		d.logger.Warn("some directories could not be watched", "unwatched", unwatched)
	}
	d.logger.Info("watching fit directory", "dir", dir, "directories", watched)

	w.Start()
	return w, nil
}

func runSync(ctx context.Context, d *deps) error {
	svc, err := d.syncService(ctx)
	if err != nil {
		return err
	}

	progress := make(chan service.SyncProgress, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range progress {
			if p.Total > 0 && p.Phase == "laps" {
				fmt.Printf("\r  laps %d/%d", p.Completed, p.Total)
			}
		}
	}()

	result, err := svc.SyncAll(ctx, progress)
	<-printed
	fmt.Println()
	if result != nil {
		fmt.Printf("Synced %s runs, %s laps (%s backfilled, %s skipped)\n",
			humanize.Comma(int64(result.ActivitiesStored)),
			humanize.Comma(int64(result.LapsFetched)),
			humanize.Comma(int64(result.Backfilled)),
			humanize.Comma(int64(result.Skipped)),
		)
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
	}
	if err != nil {
		return err
	}

	short, daily := svc.RateLimitStatus()
	fmt.Printf("API requests left: %d (15 min), %d (daily)\n", short, daily)

	d.rebuildIfStale(ctx)
	return nil
}

func runRebuild(ctx context.Context, d *deps) error {
	prev, err := d.db.LatestRollupBuild(ctx)
	if err != nil && !errors.Is(err, store.ErrNoRollupBuild) {
		return err
	}

	build, err := d.rollups.Rebuild(ctx, service.TriggerManual)
	if err != nil {
		return err
	}

	fmt.Printf("Rebuilt rollups from %s activities: %d zone rows, %d trend rows in %s\n",
		humanize.Comma(int64(build.ActivityCount)), build.ZoneRows, build.TrendRows,
		build.FinishedAt.Sub(build.StartedAt).Round(time.Millisecond))
	if prev != nil {
		fmt.Printf("Previous build was %s\n", humanize.Time(prev.FinishedAt))
	}
	return nil
}
