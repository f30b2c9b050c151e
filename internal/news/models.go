package news

import (
	"fmt"
	"strings"
	"time"
)

// Record is a normalized news article from one retrieval batch.
type Record struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	SourceName  string `json:"site_name"`
	SourceIcon  string `json:"site_icon"`
	Link        string `json:"link"`
	Thumbnail   string `json:"thumbnail"`
	PublishedAt string `json:"date"`
}

// Query describes one curation request.
type Query struct {
	Country      Country
	Sector       string
	ArticleCount int
}

// Validate checks the query before any network call is made.
func (q Query) Validate() error {
	if _, ok := locales[q.Country]; !ok {
		return fmt.Errorf("%w: unknown country %q", ErrInvalidInput, q.Country)
	}
	if strings.TrimSpace(q.Sector) == "" {
		return fmt.Errorf("%w: sector must not be empty", ErrInvalidInput)
	}
	if SectorSlug(q.Sector) == "" {
		return fmt.Errorf("%w: sector %q has no letters or digits", ErrInvalidInput, q.Sector)
	}
	if q.ArticleCount < 1 {
		return fmt.Errorf("%w: article count must be positive, got %d", ErrInvalidInput, q.ArticleCount)
	}
	return nil
}

// Curation is the curated subset of a country's records for one sector.
type Curation struct {
	Country   Country   `json:"country,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Articles  []Record  `json:"articles"`
	Summary   string    `json:"summary"`
	CuratedAt time.Time `json:"curated_at,omitzero"`
}

// SelectedIDs returns the ids of the curated articles in order.
func (c *Curation) SelectedIDs() []int {
	ids := make([]int, len(c.Articles))
	for i, a := range c.Articles {
		ids[i] = a.ID
	}
	return ids
}

// Title is the id/title projection of a record sent to the model.
type Title struct {
	ID    int    `json:"id"`
	Title string `json:"article"`
}

// Project reduces records to their id and title.
func Project(records []Record) []Title {
	titles := make([]Title, len(records))
	for i, r := range records {
		titles[i] = Title{ID: r.ID, Title: r.Title}
	}
	return titles
}
