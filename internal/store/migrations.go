package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at TEXT NOT NULL, -- RFC3339 UTC
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities, one row per ingested session. fitness_score and
		// training_load are written at ingest time.
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			average_heartrate REAL,
			max_heartrate REAL,
			average_pace REAL,
			average_cadence REAL,
			average_stride REAL,
			fitness_score REAL,
			training_load REAL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (source, external_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type)`,

		// Lap splits, replaced as a full set on re-ingest
		`CREATE TABLE IF NOT EXISTS laps (
			activity_id INTEGER NOT NULL,
			lap_index INTEGER NOT NULL,
			distance REAL NOT NULL,
			moving_time REAL NOT NULL,
			average_pace REAL,
			average_heartrate REAL,
			average_cadence REAL,
			average_stride REAL,
			PRIMARY KEY (activity_id, lap_index),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Precomputed heart-rate zone rollups (batch rebuilt)
		`CREATE TABLE IF NOT EXISTS zone_rollups (
			period TEXT NOT NULL,
			granularity TEXT NOT NULL,
			zone INTEGER NOT NULL CHECK (zone BETWEEN 1 AND 5),
			period_start TEXT NOT NULL,
			activity_count INTEGER NOT NULL,
			total_duration INTEGER NOT NULL,
			total_distance REAL NOT NULL,
			avg_pace REAL NOT NULL,
			avg_cadence REAL NOT NULL,
			avg_stride REAL NOT NULL,
			avg_heartrate REAL NOT NULL,
			build_id TEXT NOT NULL,
			PRIMARY KEY (period, granularity, zone)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_zone_rollups_start ON zone_rollups(granularity, period_start)`,

		// Precomputed fitness trend (batch rebuilt)
		`CREATE TABLE IF NOT EXISTS fitness_trend (
			period TEXT NOT NULL,
			granularity TEXT NOT NULL,
			period_start TEXT NOT NULL,
			avg_fitness REAL NOT NULL,
			max_fitness REAL NOT NULL,
			activity_count INTEGER NOT NULL,
			total_load REAL NOT NULL,
			total_distance REAL NOT NULL,
			build_id TEXT NOT NULL,
			PRIMARY KEY (period, granularity)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_fitness_trend_start ON fitness_trend(granularity, period_start)`,

		// One row per rollup rebuild
		`CREATE TABLE IF NOT EXISTS rollup_builds (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			activity_count INTEGER NOT NULL,
			zone_rows INTEGER NOT NULL,
			trend_rows INTEGER NOT NULL
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
