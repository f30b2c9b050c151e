package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// FileName is the database file kept in the data directory.
const FileName = "cyberbrief.db"

// The web viewer and a scheduled run may hold the file at the same time.
const busyTimeoutMS = 5000

// DB holds the run history and, with the sqlite output backend, the record
// sets and curations.
type DB struct {
	conn *sql.DB
	path string
}

// OpenDir opens FileName inside dataDir, creating the directory if needed.
func OpenDir(dataDir string) (*DB, error) {
	return Open(filepath.Join(dataDir, FileName))
}

// Open creates or opens the database at dbPath and migrates it to the
// latest schema.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema %s: %w", dbPath, err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// dsn applies the pragmas to every pooled connection, not just the first.
func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		dbPath, busyTimeoutMS)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
