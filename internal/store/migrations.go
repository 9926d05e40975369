package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Field configurations - one row per committed placement
		`CREATE TABLE IF NOT EXISTS field_configs (
			id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			location_wkt TEXT,
			active INTEGER NOT NULL DEFAULT 0,
			placed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Pitches - every classification the tracker emits
		`CREATE TABLE IF NOT EXISTS pitches (
			id TEXT PRIMARY KEY,
			field_id TEXT REFERENCES field_configs(id) ON DELETE SET NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			plate_x REAL,
			plate_y REAL,
			confidence REAL NOT NULL,
			speed_mph REAL,
			is_strike INTEGER,
			detected_at DATETIME NOT NULL,
			captured_at DATETIME NOT NULL
		)`,

		// Hooks - external executables run for each pitch
		`CREATE TABLE IF NOT EXISTS hooks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			plugin_name TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT 'any' CHECK(outcome IN ('any', 'strike', 'ball', 'unknown')),
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pitches_captured_at ON pitches(captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pitches_field_id ON pitches(field_id)`,
		`CREATE INDEX IF NOT EXISTS idx_field_configs_active ON field_configs(active)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
