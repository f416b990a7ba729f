package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"runlytics/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	cmd := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage(os.Stdout)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil || cfg == nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logOut, closeLog, err := logOutput(cmd)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(logOut, os.Getenv("RUNLYTICS_LOG_LEVEL"))

	d, err := newDeps(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	switch cmd {
	case "tui":
		return runTUI(ctx, d)
	case "serve":
		return runServe(ctx, d, args)
	case "ingest":
		return runIngest(ctx, d, args)
	case "watch":
		return runWatch(ctx, d, args)
	case "sync":
		return runSync(ctx, d)
	case "rebuild":
		return runRebuild(ctx, d)
	}

	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q", cmd)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `runlytics - training analytics for runners

Usage:
  runlytics [tui]               Terminal dashboard (default command)
  runlytics serve [-addr addr]  HTTP API, rollup ticker and event consumer
  runlytics ingest <file|dir>   Import FIT files
  runlytics watch [dir]         Import FIT files as they appear
  runlytics sync                Pull new runs from Strava
  runlytics rebuild             Recompute the precomputed rollups
  runlytics help                Show this help

Environment variables:
  RUNLYTICS_LOG_LEVEL           debug, info, warn or error (default info)
  RUNLYTICS_<SECTION>_<KEY>     Override any config key, e.g. RUNLYTICS_ATHLETE_MAX_HR

Configuration is read from ~/.runlytics/config.json.
`)
}

// loadConfig returns nil without an error when it had to create an example
// config for the user to edit.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Set your athlete max and resting heart rate. Strava credentials are")
		fmt.Println("only needed for 'runlytics sync': https://www.strava.com/settings/api")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		return nil, fmt.Errorf("invalid config at %s/config.json: %w", configDir, err)
	}
	return cfg, nil
}

// logOutput sends logs to stderr, except in the TUI where they would
// corrupt the screen and go to a file in the config directory instead.
func logOutput(cmd string) (io.Writer, func(), error) {
	if cmd != "tui" {
		return os.Stderr, func() {}, nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
