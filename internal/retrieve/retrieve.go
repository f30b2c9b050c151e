// Package retrieve fetches the day's news for a country and normalizes it
// into records.
package retrieve

import (
	"context"
	"fmt"
	"log"

	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/search"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

// DefaultQuery matches cyber news from the past day.
const DefaultQuery = "cyber when:1d"

// Searcher runs a single news search.
type Searcher interface {
	Search(ctx context.Context, r search.Request) ([]search.Result, error)
}

// Fetcher retrieves and stores the record set of a country.
type Fetcher struct {
	searcher Searcher
	store    store.Store
	query    string
}

// NewFetcher creates a new Fetcher.
func NewFetcher(searcher Searcher, st store.Store, query string) *Fetcher {
	if query == "" {
		query = DefaultQuery
	}
	return &Fetcher{searcher: searcher, store: st, query: query}
}

// Retrieve searches the news for a country, normalizes the results and
// replaces the stored record set.
func (f *Fetcher) Retrieve(ctx context.Context, country string) ([]news.Record, error) {
	c, err := news.ParseCountry(country)
	if err != nil {
		return nil, err
	}

	results, err := f.searcher.Search(ctx, search.Request{Query: f.query, Locale: c.Locale()})
	if err != nil {
		return nil, err
	}

	records, err := Normalize(results)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s results: %w", c, err)
	}
	log.Printf("Retrieved %d of %d results for %s", len(records), len(results), c)

	if err := f.store.SaveRecords(ctx, c, records); err != nil {
		return nil, fmt.Errorf("saving %s records: %w", c, err)
	}
	return records, nil
}

// Normalize keeps results that carry every required field and numbers them
// from 1 in upstream order.
func Normalize(results []search.Result) ([]news.Record, error) {
	records := make([]news.Record, 0, len(results))
	for _, r := range results {
		if !complete(r) {
			continue
		}

		date, err := FormatDate(r.Date)
		if err != nil {
			return nil, err
		}

		records = append(records, news.Record{
			ID:          len(records) + 1,
			Title:       r.Title,
			SourceName:  r.Source.Name,
			SourceIcon:  r.Source.Icon,
			Link:        r.Link,
			Thumbnail:   r.Thumbnail,
			PublishedAt: date,
		})
	}
	return records, nil
}

func complete(r search.Result) bool {
	return r.Source.Name != "" && r.Source.Icon != "" && r.Link != "" &&
		r.Thumbnail != "" && r.Date != ""
}
