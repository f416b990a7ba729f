package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// The auth table holds a single row; the app is single-athlete.
const authRowID = 1

// GetAuth returns the stored Strava credentials, or ErrNoAuth
func (db *DB) GetAuth(ctx context.Context) (*Auth, error) {
	var (
		a       Auth
		expires string
	)
	err := db.QueryRowContext(ctx,
		`SELECT athlete_id, access_token, refresh_token, expires_at FROM auth WHERE id = ?`,
		authRowID,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, fmt.Errorf("loading auth: %w", err)
	}

	if a.ExpiresAt, err = parseTime(expires); err != nil {
		return nil, fmt.Errorf("parsing token expiry: %w", err)
	}
	return &a, nil
}

// SaveAuth replaces the stored credentials after a fresh OAuth login
func (db *DB) SaveAuth(ctx context.Context, a *Auth) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		authRowID, a.AthleteID, a.AccessToken, a.RefreshToken, formatTime(a.ExpiresAt))
	if err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}
	return nil
}

// UpdateTokens stores a refreshed token pair. It returns ErrNoAuth when
// no login has been saved yet.
func (db *DB) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		accessToken, refreshToken, formatTime(expiresAt), authRowID)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	if n == 0 {
		return ErrNoAuth
	}
	return nil
}
