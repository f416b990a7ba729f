package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"runlytics/internal/auth"
	"runlytics/internal/cache"
	"runlytics/internal/config"
	"runlytics/internal/events"
	"runlytics/internal/service"
	"runlytics/internal/store"
	"runlytics/internal/strava"
)

// deps holds the long-lived handles every subcommand shares
type deps struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *store.DB
	redis     *redis.Client
	publisher *events.Publisher

	ingest    *service.IngestService
	analytics *service.AnalyticsService
	rollups   *service.RollupBuilder
}

func newDeps(cfg *config.Config, logger *slog.Logger) (*deps, error) {
	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	d := &deps{cfg: cfg, logger: logger, db: db}
	settings := service.SettingsFromConfig(cfg)

	d.rollups = service.NewRollupBuilder(db, settings, logger)
	opts := []service.Option{service.WithLogger(logger)}

	if client := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); client != nil {
		d.redis = client
		rc := cache.NewRollupCache(client, db, cfg.CacheTTL(), logger)
		opts = append(opts, service.WithPrecomputed(rc))
		d.rollups.WithInvalidator(rc)
		logger.Info("rollup cache enabled", "addr", cfg.Redis.Addr)
	}

	// Leave the interface nil, not a typed nil pointer, when Kafka is off.
	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		d.publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = d.publisher
		logger.Info("activity events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	d.ingest = service.NewIngestService(db, settings, publisher, logger)
	d.analytics = service.NewAnalyticsService(db, settings, opts...)
	return d, nil
}

// Close releases the handles in reverse order of opening
func (d *deps) Close() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			d.logger.Warn("closing event publisher", "err", err)
		}
	}
	if d.redis != nil {
		d.redis.Close()
	}
	d.db.Close()
}

// syncService returns a Strava sync service, running the OAuth browser
// flow first if no token is stored.
func (d *deps) syncService(ctx context.Context) (*service.SyncService, error) {
	if err := d.cfg.ValidateStrava(); err != nil {
		return nil, err
	}

	oauthCfg := auth.NewOAuthConfig(d.cfg.Strava.ClientID, d.cfg.Strava.ClientSecret)

	tokenSource, err := auth.EnsureToken(ctx, d.db, oauthCfg, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("strava authentication: %w", err)
	}

	// Fail early on a revoked token rather than halfway through a sync.
	if _, err := tokenSource.Token(); err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}

	client := strava.NewClient(tokenSource)
	return service.NewSyncService(client, d.db, d.ingest, d.logger), nil
}

// rebuildIfStale runs after commands that may have stored backfilled runs
func (d *deps) rebuildIfStale(ctx context.Context) {
	build, err := d.rollups.RebuildIfStale(ctx)
	if err != nil {
		d.logger.Error("rebuilding stale rollups", "err", err)
		return
	}
	if build != nil {
		fmt.Printf("Rebuilt rollups from %d activities\n", build.ActivityCount)
	}
}
