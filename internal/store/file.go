package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// FileStore keeps snapshots as JSON files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) SaveRecords(_ context.Context, country news.Country, records []news.Record) error {
	if records == nil {
		records = []news.Record{}
	}
	return s.writeJSON(RecordsName(country), records)
}

func (s *FileStore) LoadRecords(_ context.Context, country news.Country) ([]news.Record, error) {
	var records []news.Record
	if err := s.readJSON(RecordsName(country), &records); err != nil {
		return nil, fmt.Errorf("loading %s records: %w", country, err)
	}
	return records, nil
}

func (s *FileStore) SaveCuration(_ context.Context, c *news.Curation) error {
	name, err := curationName(c.Country, c.Sector)
	if err != nil {
		return err
	}
	return s.writeJSON(name, c)
}

func (s *FileStore) LoadCuration(_ context.Context, country news.Country, sector string) (*news.Curation, error) {
	name, err := curationName(country, sector)
	if err != nil {
		return nil, err
	}
	var c news.Curation
	if err := s.readJSON(name, &c); err != nil {
		return nil, fmt.Errorf("loading %s/%s curation: %w", country, sector, err)
	}
	if c.Country == "" {
		c.Country = country
	}
	if c.Sector == "" {
		c.Sector = news.SectorSlug(sector)
	}
	return &c, nil
}

func (s *FileStore) ListCurations(_ context.Context) ([]Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}
	var keys []Key
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if k, ok := parseCurationName(e.Name()); ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Country != keys[j].Country {
			return keys[i].Country < keys[j].Country
		}
		return keys[i].Sector < keys[j].Sector
	})
	return keys, nil
}

// writeJSON replaces name atomically so readers never see a partial file.
func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return news.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
