package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// GCSStore keeps snapshots as JSON objects in a Cloud Storage bucket, using
// the same object names as FileStore under a prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore connects with application default credentials unless opts
// say otherwise.
func NewGCSStore(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectName(name string) string {
	return path.Join(s.prefix, name)
}

func (s *GCSStore) SaveRecords(ctx context.Context, country news.Country, records []news.Record) error {
	if records == nil {
		records = []news.Record{}
	}
	return s.put(ctx, RecordsName(country), records)
}

func (s *GCSStore) LoadRecords(ctx context.Context, country news.Country) ([]news.Record, error) {
	var records []news.Record
	if err := s.get(ctx, RecordsName(country), &records); err != nil {
		return nil, fmt.Errorf("loading %s records: %w", country, err)
	}
	return records, nil
}

func (s *GCSStore) SaveCuration(ctx context.Context, c *news.Curation) error {
	name, err := curationName(c.Country, c.Sector)
	if err != nil {
		return err
	}
	return s.put(ctx, name, c)
}

func (s *GCSStore) LoadCuration(ctx context.Context, country news.Country, sector string) (*news.Curation, error) {
	name, err := curationName(country, sector)
	if err != nil {
		return nil, err
	}
	var c news.Curation
	if err := s.get(ctx, name, &c); err != nil {
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

func (s *GCSStore) ListCurations(ctx context.Context) ([]Key, error) {
	prefix := s.prefix
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []Key
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		if k, ok := parseCurationName(path.Base(attrs.Name)); ok {
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

func (s *GCSStore) put(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	writer := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("writing object data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}
	return nil
}

func (s *GCSStore) get(ctx context.Context, name string, v any) error {
	reader, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return news.ErrNotFound
		}
		return fmt.Errorf("opening object reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading object data: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
