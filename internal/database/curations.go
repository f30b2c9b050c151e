package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// SaveCuration inserts or replaces the curation for (country, sector).
func (db *DB) SaveCuration(ctx context.Context, c *news.Curation) error {
	if err := store.CheckSector(c.Sector); err != nil {
		return err
	}
	articles, err := json.Marshal(c.Articles)
	if err != nil {
		return fmt.Errorf("marshaling articles: %w", err)
	}

	curatedAt := c.CuratedAt
	if curatedAt.IsZero() {
		curatedAt = time.Now()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO curations (country, sector, summary, articles, curated_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(c.Country), news.SectorSlug(c.Sector), c.Summary, string(articles),
		curatedAt.UTC().Format(timeLayout),
	)
	return err
}

// LoadCuration returns the curation for (country, sector).
func (db *DB) LoadCuration(ctx context.Context, country news.Country, sector string) (*news.Curation, error) {
	if err := store.CheckSector(sector); err != nil {
		return nil, err
	}
	row := db.conn.QueryRowContext(ctx,
		`SELECT summary, articles, curated_at FROM curations WHERE country = ? AND sector = ?`,
		string(country), news.SectorSlug(sector))

	var summary, articles, curatedAt string
	if err := row.Scan(&summary, &articles, &curatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("loading %s/%s curation: %w", country, sector, news.ErrNotFound)
		}
		return nil, err
	}

	c := &news.Curation{Country: country, Sector: news.SectorSlug(sector), Summary: summary}
	if err := json.Unmarshal([]byte(articles), &c.Articles); err != nil {
		return nil, fmt.Errorf("decoding articles: %w", err)
	}
	if t, err := time.Parse(timeLayout, curatedAt); err == nil {
		c.CuratedAt = t
	}
	return c, nil
}

// ListCurations returns the keys of all stored curations.
func (db *DB) ListCurations(ctx context.Context) ([]store.Key, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT country, sector FROM curations ORDER BY country, sector")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []store.Key
	for rows.Next() {
		var country, sector string
		if err := rows.Scan(&country, &sector); err != nil {
			return nil, err
		}
		keys = append(keys, store.Key{Country: news.Country(country), Sector: sector})
	}
	return keys, rows.Err()
}
