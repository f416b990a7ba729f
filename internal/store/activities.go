package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const activityColumns = `id, source, external_id, name, type, start_date, start_date_local,
	distance, moving_time, elapsed_time, average_heartrate, max_heartrate,
	average_pace, average_cadence, average_stride, fitness_score, training_load`

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// UpsertActivity inserts or updates an activity keyed by (source, external_id)
// and returns its row id.
func (db *DB) UpsertActivity(ctx context.Context, a *Activity) (int64, error) {
	id, err := upsertActivity(ctx, db.DB, a)
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

// SaveActivity upserts a and replaces its laps in one transaction, so a
// failed lap write leaves the previous activity row in place.
func (db *DB) SaveActivity(ctx context.Context, a *Activity, laps []Lap) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := upsertActivity(ctx, tx, a)
	if err != nil {
		return 0, err
	}
	if err := replaceLaps(ctx, tx, id, laps); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing activity %s/%s: %w", a.Source, a.ExternalID, err)
	}

	a.ID = id
	for i := range laps {
		laps[i].ActivityID = id
		laps[i].LapIndex = i
	}
	return id, nil
}

func upsertActivity(ctx context.Context, q querier, a *Activity) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO activities (
			source, external_id, name, type, start_date, start_date_local,
			distance, moving_time, elapsed_time, average_heartrate, max_heartrate,
			average_pace, average_cadence, average_stride, fitness_score, training_load,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source, external_id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			average_heartrate = excluded.average_heartrate,
			max_heartrate = excluded.max_heartrate,
			average_pace = excluded.average_pace,
			average_cadence = excluded.average_cadence,
			average_stride = excluded.average_stride,
			fitness_score = excluded.fitness_score,
			training_load = excluded.training_load,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`,
		a.Source, a.ExternalID, a.Name, a.Type,
		formatTime(a.StartDate), a.StartDateLocal.Format(localLayout),
		a.Distance, a.MovingTime, a.ElapsedTime,
		ptrToNullFloat64(a.AverageHeartrate), ptrToNullFloat64(a.MaxHeartrate),
		ptrToNullFloat64(a.AveragePace), ptrToNullFloat64(a.AverageCadence),
		ptrToNullFloat64(a.AverageStride), ptrToNullFloat64(a.FitnessScore),
		ptrToNullFloat64(a.TrainingLoad),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting activity %s/%s: %w", a.Source, a.ExternalID, err)
	}
	return id, nil
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// ListActivities returns the activities matching f ordered by start time
func (db *DB) ListActivities(ctx context.Context, f ActivityFilter) ([]Activity, error) {
	where, args := f.buildWhere("")
	rows, err := db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE `+where+` ORDER BY start_date, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// LatestActivityWithFitness returns the most recent activity matching f
// that carries a fitness score.
func (db *DB) LatestActivityWithFitness(ctx context.Context, f ActivityFilter) (*Activity, error) {
	where, args := f.buildWhere("")
	row := db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities
		WHERE `+where+` AND fitness_score IS NOT NULL
		ORDER BY start_date DESC, id DESC LIMIT 1`,
		args...,
	)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var avgHR, maxHR, pace, cadence, stride, fitness, load sql.NullFloat64

	err := row.Scan(
		&a.ID, &a.Source, &a.ExternalID, &a.Name, &a.Type, &startDate, &startDateLocal,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &avgHR, &maxHR,
		&pace, &cadence, &stride, &fitness, &load,
	)
	if err != nil {
		return nil, err
	}

	if a.StartDate, err = parseTime(startDate); err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	// Local times are stored without an offset; a parse failure falls back to UTC.
	if a.StartDateLocal, err = parseLocal(startDateLocal); err != nil {
		a.StartDateLocal = a.StartDate
	}

	a.AverageHeartrate = nullFloat64ToPtr(avgHR)
	a.MaxHeartrate = nullFloat64ToPtr(maxHR)
	a.AveragePace = nullFloat64ToPtr(pace)
	a.AverageCadence = nullFloat64ToPtr(cadence)
	a.AverageStride = nullFloat64ToPtr(stride)
	a.FitnessScore = nullFloat64ToPtr(fitness)
	a.TrainingLoad = nullFloat64ToPtr(load)

	return &a, nil
}
