package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL CHECK(mode IN ('single', 'all')),
    dev INTEGER NOT NULL DEFAULT 0,
    record_id TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'succeeded', 'failed')),
    error TEXT,
    record_count INTEGER DEFAULT 0,
    image_count INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    client TEXT NOT NULL,
    slug TEXT NOT NULL,
    path TEXT NOT NULL,
    audit_count INTEGER DEFAULT 0,
    overall_average REAL DEFAULT 0,
    generated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "track per-report image count",
		Up: func(tx *sql.Tx) error {
			var count int
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM pragma_table_info('reports') WHERE name = 'image_count'",
			).Scan(&count); err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			if _, err := tx.Exec("ALTER TABLE reports ADD COLUMN image_count INTEGER DEFAULT 0"); err != nil {
				return err
			}
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_slug ON reports(slug)")
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
