package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Keys of the sync_state table
const (
	// KeyLastStravaSync holds the RFC3339 start time of the newest synced run
	KeyLastStravaSync = "last_strava_sync"
	// KeyRollupsStale holds the unix time a backfilled activity was stored,
	// or is empty once a rebuild has caught up.
	KeyRollupsStale = "rollups_stale"
	// KeyRollupsPending holds the RFC3339 start of the earliest recent
	// activity stored since the last rebuild. Once that start falls out of
	// the freshness window the precomputed rows are missing it.
	KeyRollupsPending = "rollups_pending"
)

// GetSyncState returns the value stored under key, or "" if unset
func (db *DB) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync state %q: %w", key, err)
	}
	return value, nil
}

// SetSyncState upserts key. An empty value clears it.
func (db *DB) SetSyncState(ctx context.Context, key, value string) error {
	if value == "" {
		if _, err := db.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, key); err != nil {
			return fmt.Errorf("clearing sync state %q: %w", key, err)
		}
		return nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing sync state %q: %w", key, err)
	}
	return nil
}
