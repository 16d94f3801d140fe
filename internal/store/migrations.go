package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per annotated image or video
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL CHECK(kind IN ('image', 'video', 'live')),
			source TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			frames INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Detections table - landmarks found on each frame of a run
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			has_pose INTEGER NOT NULL DEFAULT 0,
			left_hand INTEGER NOT NULL DEFAULT 0,
			right_hand INTEGER NOT NULL DEFAULT 0,
			data TEXT NOT NULL,
			UNIQUE(run_id, frame_index)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detections_run_id ON detections(run_id)`,

		// Thumbnails table - a small JPEG preview of an annotated run
		`CREATE TABLE IF NOT EXISTS thumbnails (
			run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			data BLOB NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
