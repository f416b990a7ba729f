package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListPrecomputedZoneRollups returns precomputed zone rollups of the given
// granularity whose period starts inside r, ordered by period and zone.
func (db *DB) ListPrecomputedZoneRollups(ctx context.Context, r PeriodRange, granularity string) ([]ZoneRollup, error) {
	where, args := r.buildWhere(granularity)
	rows, err := db.QueryContext(ctx, `
		SELECT period, granularity, zone, period_start, activity_count, total_duration,
			total_distance, avg_pace, avg_cadence, avg_stride, avg_heartrate
		FROM zone_rollups
		WHERE `+where+`
		ORDER BY period, zone
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing zone rollups: %w", err)
	}
	defer rows.Close()

	var rollups []ZoneRollup
	for rows.Next() {
		var z ZoneRollup
		var periodStart string
		if err := rows.Scan(
			&z.Period, &z.Granularity, &z.Zone, &periodStart, &z.ActivityCount, &z.TotalDuration,
			&z.TotalDistance, &z.AvgPace, &z.AvgCadence, &z.AvgStride, &z.AvgHeartRate,
		); err != nil {
			return nil, err
		}
		if z.PeriodStart, err = parseTime(periodStart); err != nil {
			return nil, fmt.Errorf("parsing period_start %q: %w", periodStart, err)
		}
		rollups = append(rollups, z)
	}
	return rollups, rows.Err()
}

// ListPrecomputedFitnessTrend returns precomputed fitness trend points of
// the given granularity whose period starts inside r, ordered by period.
func (db *DB) ListPrecomputedFitnessTrend(ctx context.Context, r PeriodRange, granularity string) ([]FitnessTrendPoint, error) {
	where, args := r.buildWhere(granularity)
	rows, err := db.QueryContext(ctx, `
		SELECT period, granularity, period_start, avg_fitness, max_fitness,
			activity_count, total_load, total_distance
		FROM fitness_trend
		WHERE `+where+`
		ORDER BY period
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing fitness trend: %w", err)
	}
	defer rows.Close()

	var points []FitnessTrendPoint
	for rows.Next() {
		var p FitnessTrendPoint
		var periodStart string
		if err := rows.Scan(
			&p.Period, &p.Granularity, &periodStart, &p.AvgFitness, &p.MaxFitness,
			&p.ActivityCount, &p.TotalLoad, &p.TotalDistance,
		); err != nil {
			return nil, err
		}
		if p.PeriodStart, err = parseTime(periodStart); err != nil {
			return nil, fmt.Errorf("parsing period_start %q: %w", periodStart, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ReplaceRollups swaps the full contents of both precomputed tables and
// records the build, all in one transaction.
func (db *DB) ReplaceRollups(ctx context.Context, build RollupBuild, zones []ZoneRollup, trend []FitnessTrendPoint) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM zone_rollups`); err != nil {
		return fmt.Errorf("clearing zone rollups: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fitness_trend`); err != nil {
		return fmt.Errorf("clearing fitness trend: %w", err)
	}

	zoneStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zone_rollups (
			period, granularity, zone, period_start, activity_count, total_duration,
			total_distance, avg_pace, avg_cadence, avg_stride, avg_heartrate, build_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing zone insert: %w", err)
	}
	defer zoneStmt.Close()

	for _, z := range zones {
		if _, err := zoneStmt.ExecContext(ctx,
			z.Period, z.Granularity, z.Zone, formatTime(z.PeriodStart), z.ActivityCount,
			z.TotalDuration, z.TotalDistance, z.AvgPace, z.AvgCadence, z.AvgStride,
			z.AvgHeartRate, build.ID,
		); err != nil {
			return fmt.Errorf("inserting zone rollup %s/%d: %w", z.Period, z.Zone, err)
		}
	}

	trendStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fitness_trend (
			period, granularity, period_start, avg_fitness, max_fitness,
			activity_count, total_load, total_distance, build_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing trend insert: %w", err)
	}
	defer trendStmt.Close()

	for _, p := range trend {
		if _, err := trendStmt.ExecContext(ctx,
			p.Period, p.Granularity, formatTime(p.PeriodStart), p.AvgFitness, p.MaxFitness,
			p.ActivityCount, p.TotalLoad, p.TotalDistance, build.ID,
		); err != nil {
			return fmt.Errorf("inserting trend point %s: %w", p.Period, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rollup_builds (id, started_at, finished_at, activity_count, zone_rows, trend_rows)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		build.ID, formatTime(build.StartedAt), formatTime(build.FinishedAt),
		build.ActivityCount, len(zones), len(trend),
	); err != nil {
		return fmt.Errorf("recording build %s: %w", build.ID, err)
	}

	return tx.Commit()
}

// LatestRollupBuild returns the most recent rollup build
func (db *DB) LatestRollupBuild(ctx context.Context) (*RollupBuild, error) {
	var b RollupBuild
	var started, finished string
	err := db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, activity_count, zone_rows, trend_rows
		FROM rollup_builds
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&b.ID, &started, &finished, &b.ActivityCount, &b.ZoneRows, &b.TrendRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRollupBuild
	}
	if err != nil {
		return nil, err
	}

	if b.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if b.FinishedAt, err = parseTime(finished); err != nil {
		return nil, err
	}
	return &b, nil
}
