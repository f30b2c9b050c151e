package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// SaveRecords replaces the record set of a country in one transaction.
func (db *DB) SaveRecords(ctx context.Context, country news.Country, records []news.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM news_records WHERE country = ?", string(country)); err != nil {
		return fmt.Errorf("clearing %s records: %w", country, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO news_records
		(country, id, title, source_name, source_icon, link, thumbnail, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, string(country), r.ID, r.Title, r.SourceName,
			r.SourceIcon, r.Link, r.Thumbnail, r.PublishedAt); err != nil {
			return fmt.Errorf("inserting record %d: %w", r.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO record_sets (country, record_count, retrieved_at)
		VALUES (?, ?, datetime('now'))`, string(country), len(records)); err != nil {
		return fmt.Errorf("marking %s retrieved: %w", country, err)
	}

	return tx.Commit()
}

// LoadRecords returns a country's records ordered by id.
func (db *DB) LoadRecords(ctx context.Context, country news.Country) ([]news.Record, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		"SELECT record_count FROM record_sets WHERE country = ?", string(country)).Scan(&n)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("loading %s records: %w", country, news.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, source_name, source_icon, link, thumbnail, published_at
		FROM news_records WHERE country = ? ORDER BY id`, string(country))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]news.Record, 0, n)
	for rows.Next() {
		var r news.Record
		if err := rows.Scan(&r.ID, &r.Title, &r.SourceName, &r.SourceIcon,
			&r.Link, &r.Thumbnail, &r.PublishedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
