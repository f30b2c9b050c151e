package database

import (
	"database/sql"
)

// StartRun records the start of a pipeline run and returns its ID.
func (db *DB) StartRun() (int64, error) {
	result, err := db.conn.Exec("INSERT INTO runs DEFAULT VALUES")
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FinishRun stores the unit outcomes of a run and its totals.
func (db *DB) FinishRun(runID int64, units []RunUnit) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var succeeded, failed, skipped int
	for _, u := range units {
		switch u.Status {
		case "ok":
			succeeded++
		case "failed":
			failed++
		default:
			skipped++
		}
		if _, err := tx.Exec(
			`INSERT INTO run_units (run_id, position, country, sector, stage, status, summary, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, u.Position, u.Country, u.Sector, u.Stage, u.Status, u.Summary, u.Error,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`UPDATE runs SET finished_at = datetime('now'), succeeded = ?, failed = ?, skipped = ?
		WHERE id = ?`, succeeded, failed, skipped, runID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLatestRun returns the most recent run, or nil if none exist.
func (db *DB) GetLatestRun() (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, succeeded, failed, skipped
		FROM runs ORDER BY id DESC LIMIT 1`,
	)

	var r Run
	if err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Succeeded, &r.Failed, &r.Skipped); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetRunUnits returns the units of a run in execution order.
func (db *DB) GetRunUnits(runID int64) ([]RunUnit, error) {
	rows, err := db.conn.Query(
		`SELECT position, country, sector, stage, status, summary, error
		FROM run_units WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []RunUnit
	for rows.Next() {
		var u RunUnit
		if err := rows.Scan(&u.Position, &u.Country, &u.Sector, &u.Stage,
			&u.Status, &u.Summary, &u.Error); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM record_sets", &s.RecordSets},
		{"SELECT COUNT(*) FROM news_records", &s.Records},
		{"SELECT COUNT(*) FROM curations", &s.Curations},
		{"SELECT COUNT(*) FROM run_units WHERE status = 'failed'", &s.FailedUnits},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
