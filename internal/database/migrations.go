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
CREATE TABLE IF NOT EXISTS news_records (
    country TEXT NOT NULL,
    id INTEGER NOT NULL,
    title TEXT NOT NULL,
    source_name TEXT NOT NULL,
    source_icon TEXT NOT NULL,
    link TEXT NOT NULL,
    thumbnail TEXT NOT NULL,
    published_at TEXT NOT NULL,
    PRIMARY KEY (country, id)
);

CREATE TABLE IF NOT EXISTS record_sets (
    country TEXT PRIMARY KEY,
    record_count INTEGER DEFAULT 0,
    retrieved_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS curations (
    country TEXT NOT NULL,
    sector TEXT NOT NULL,
    summary TEXT NOT NULL,
    articles TEXT NOT NULL,
    curated_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (country, sector)
);

CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT DEFAULT (datetime('now')),
    finished_at TEXT,
    succeeded INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS run_units (
    run_id INTEGER NOT NULL REFERENCES runs(id),
    position INTEGER NOT NULL,
    country TEXT NOT NULL,
    sector TEXT,
    stage TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('ok', 'failed', 'skipped', 'cancelled')),
    summary TEXT,
    error TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_run_units_run ON run_units(run_id);
`)
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
