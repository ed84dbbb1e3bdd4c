package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Lexicon table - one row per pose file segment, mirrors index.csv
		`CREATE TABLE IF NOT EXISTS lexicon (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			spoken_language TEXT NOT NULL,
			signed_language TEXT NOT NULL,
			start_ms INTEGER NOT NULL DEFAULT 0,
			end_ms INTEGER NOT NULL DEFAULT 0,
			words TEXT NOT NULL,
			glosses TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(path, spoken_language, signed_language, start_ms, end_ms)
		)`,

		// Landmark samples table - facial landmark snapshots recorded per signer
		`CREATE TABLE IF NOT EXISTS landmark_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			signer TEXT NOT NULL,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for gloss resolution
		`CREATE INDEX IF NOT EXISTS idx_lexicon_glosses ON lexicon(glosses)`,
		`CREATE INDEX IF NOT EXISTS idx_lexicon_words ON lexicon(words)`,
		`CREATE INDEX IF NOT EXISTS idx_landmark_samples_signer ON landmark_samples(signer)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
