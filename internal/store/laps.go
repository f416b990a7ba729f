package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const lapColumns = `activity_id, lap_index, distance, moving_time,
	average_pace, average_heartrate, average_cadence, average_stride`

// ReplaceLaps swaps the full lap set of an activity in one transaction.
// Indexes are renumbered from 0 in the given order.
func (db *DB) ReplaceLaps(ctx context.Context, activityID int64, laps []Lap) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceLaps(ctx, tx, activityID, laps); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceLaps(ctx context.Context, tx querier, activityID int64, laps []Lap) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM laps WHERE activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("deleting laps for %d: %w", activityID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO laps (`+lapColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing lap insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range laps {
		_, err := stmt.ExecContext(ctx,
			activityID, i, l.Distance, l.MovingTime,
			ptrToNullFloat64(l.AveragePace), ptrToNullFloat64(l.AverageHeartrate),
			ptrToNullFloat64(l.AverageCadence), ptrToNullFloat64(l.AverageStride),
		)
		if err != nil {
			return fmt.Errorf("inserting lap %d for %d: %w", i, activityID, err)
		}
	}
	return nil
}

// ListLaps returns the laps of one activity ordered by index
func (db *DB) ListLaps(ctx context.Context, activityID int64) ([]Lap, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+lapColumns+` FROM laps WHERE activity_id = ? ORDER BY lap_index`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing laps for %d: %w", activityID, err)
	}
	defer rows.Close()

	return scanLaps(rows)
}

// ListLapsForActivities returns laps grouped by activity id, each group
// ordered by index. Activities without laps have no entry.
func (db *DB) ListLapsForActivities(ctx context.Context, ids []int64) (map[int64][]Lap, error) {
	result := make(map[int64][]Lap)
	if len(ids) == 0 {
		return result, nil
	}

	// SQLite caps host parameters; chunk to stay well below the limit.
	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}

		rows, err := db.QueryContext(ctx,
			`SELECT `+lapColumns+` FROM laps WHERE activity_id IN (`+placeholders+`)
			ORDER BY activity_id, lap_index`,
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("listing laps: %w", err)
		}

		laps, err := scanLaps(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, l := range laps {
			result[l.ActivityID] = append(result[l.ActivityID], l)
		}
	}

	return result, nil
}

// ListLapsInRange returns the laps of every activity matching f, ordered
// by activity start time and lap index.
func (db *DB) ListLapsInRange(ctx context.Context, f ActivityFilter) ([]Lap, error) {
	where, args := f.buildWhere("a.")
	rows, err := db.QueryContext(ctx, `
		SELECT l.activity_id, l.lap_index, l.distance, l.moving_time,
			l.average_pace, l.average_heartrate, l.average_cadence, l.average_stride
		FROM laps l
		JOIN activities a ON a.id = l.activity_id
		WHERE `+where+`
		ORDER BY a.start_date, l.activity_id, l.lap_index
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing laps in range: %w", err)
	}
	defer rows.Close()

	return scanLaps(rows)
}

func scanLaps(rows *sql.Rows) ([]Lap, error) {
	var laps []Lap
	for rows.Next() {
		var l Lap
		var pace, hr, cadence, stride sql.NullFloat64
		if err := rows.Scan(
			&l.ActivityID, &l.LapIndex, &l.Distance, &l.MovingTime,
			&pace, &hr, &cadence, &stride,
		); err != nil {
			return nil, err
		}
		l.AveragePace = nullFloat64ToPtr(pace)
		l.AverageHeartrate = nullFloat64ToPtr(hr)
		l.AverageCadence = nullFloat64ToPtr(cadence)
		l.AverageStride = nullFloat64ToPtr(stride)
		laps = append(laps, l)
	}
	return laps, rows.Err()
}
