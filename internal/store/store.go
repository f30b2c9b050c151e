// Package store persists retrieved record sets and curations. Every save
// replaces the previous snapshot for the same key.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// Store is implemented by the file, GCS and SQLite backends.
type Store interface {
	SaveRecords(ctx context.Context, country news.Country, records []news.Record) error
	// LoadRecords returns news.ErrNotFound when the country was never retrieved.
	LoadRecords(ctx context.Context, country news.Country) ([]news.Record, error)
	SaveCuration(ctx context.Context, c *news.Curation) error
	LoadCuration(ctx context.Context, country news.Country, sector string) (*news.Curation, error)
	ListCurations(ctx context.Context) ([]Key, error)
}

// Key identifies one curation.
type Key struct {
	Country news.Country
	Sector  string
}

// RecordsName is the object name of a country's full record set.
func RecordsName(country news.Country) string {
	return fmt.Sprintf("all_%s_news.json", country)
}

// CurationName is the object name of a curation.
func CurationName(country news.Country, sector string) string {
	return fmt.Sprintf("%s_%s.json", country, news.SectorSlug(sector))
}

// CheckSector rejects sectors whose slug is empty, since they cannot be
// told apart once stored.
func CheckSector(sector string) error {
	if news.SectorSlug(sector) == "" {
		return fmt.Errorf("%w: sector %q has no letters or digits", news.ErrInvalidInput, sector)
	}
	return nil
}

func curationName(country news.Country, sector string) (string, error) {
	if err := CheckSector(sector); err != nil {
		return "", err
	}
	return CurationName(country, sector), nil
}

// parseCurationName reverses CurationName. Record set names are rejected.
func parseCurationName(name string) (Key, bool) {
	if strings.HasPrefix(name, "all_") || !strings.HasSuffix(name, ".json") {
		return Key{}, false
	}
	base := strings.TrimSuffix(name, ".json")
	for _, c := range news.Countries() {
		prefix := string(c) + "_"
		if strings.HasPrefix(base, prefix) && len(base) > len(prefix) {
			return Key{Country: c, Sector: base[len(prefix):]}, true
		}
	}
	return Key{}, false
}
