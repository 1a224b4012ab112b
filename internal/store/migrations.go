package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per program run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			port TEXT NOT NULL,
			baud INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Every byte written to the controller
		`CREATE TABLE IF NOT EXISTS transmissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			count INTEGER NOT NULL CHECK(count BETWEEN 0 AND 5),
			reason TEXT NOT NULL CHECK(reason IN ('change', 'shutdown')),
			sent_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_transmissions_session_id ON transmissions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transmissions_sent_at ON transmissions(sent_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
