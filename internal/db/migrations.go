package db

// Migrate runs all database migrations
func (d *DB) Migrate() error {
	return d.WithLock(func() error {
		// Create nodes table
		_, err := d.db.Exec(`
			CREATE TABLE IF NOT EXISTS nodes (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				x REAL NOT NULL DEFAULT 0,
				y REAL NOT NULL DEFAULT 0,
				width REAL NOT NULL DEFAULT 0,
				height REAL NOT NULL DEFAULT 0,
				selected INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return err
		}

		// Create labels table, one heading label per labelled node
		_, err = d.db.Exec(`
			CREATE TABLE IF NOT EXISTS labels (
				id TEXT PRIMARY KEY,
				node_id TEXT NOT NULL UNIQUE,
				text TEXT NOT NULL DEFAULT '',
				FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
			)
		`)
		if err != nil {
			return err
		}

		// Create edges table
		_, err = d.db.Exec(`
			CREATE TABLE IF NOT EXISTS edges (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				source_id TEXT NOT NULL,
				target_id TEXT NOT NULL,
				selected INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (source_id) REFERENCES nodes(id) ON DELETE CASCADE,
				FOREIGN KEY (target_id) REFERENCES nodes(id) ON DELETE CASCADE
			)
		`)
		if err != nil {
			return err
		}

		// Create indexes for better query performance
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)",
			"CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)",
		}

		for _, idx := range indexes {
			if _, err := d.db.Exec(idx); err != nil {
				return err
			}
		}

		return d.migrateViewport()
	})
}

// migrateViewport creates the single-row viewport table if it doesn't exist
func (d *DB) migrateViewport() error {
	exists, err := d.tableExists("viewport")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = d.db.Exec(`
		CREATE TABLE viewport (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			center_x REAL,
			center_y REAL
		)
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec("INSERT INTO viewport (id, center_x, center_y) VALUES (1, NULL, NULL)")
	return err
}
