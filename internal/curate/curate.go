// Package curate asks a language model to pick and summarize the most
// relevant records of a country for one sector.
package curate

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/TobiSchelling/cyberbrief/internal/llm"
	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

// Curator selects and summarizes records with a completion provider.
type Curator struct {
	store     store.Store
	provider  llm.Provider
	maxTokens int
	timeout   time.Duration
	now       func() time.Time
}

// NewCurator creates a new Curator. A zero timeout leaves the completion
// call bounded only by ctx.
func NewCurator(st store.Store, provider llm.Provider, maxTokens int, timeout time.Duration) *Curator {
	return &Curator{
		store:     st,
		provider:  provider,
		maxTokens: maxTokens,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Curate loads the country's records, has the model select at most
// q.ArticleCount of them for q.Sector and stores the result.
func (c *Curator) Curate(ctx context.Context, q news.Query) (*news.Curation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, err := c.store.LoadRecords(ctx, q.Country)
	if err != nil {
		return nil, fmt.Errorf("loading %s records: %w", q.Country, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s record set is empty", news.ErrNotFound, q.Country)
	}

	prompt, err := BuildPrompt(q, records)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.provider.Generate(callCtx, llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: c.maxTokens,
		Schema:    replySchema,
	})
	if err != nil {
		return nil, err
	}

	reply, err := ParseReply(raw)
	if err != nil {
		return nil, err
	}
	if len(reply.IDs) > q.ArticleCount {
		return nil, &news.ResponseFormatError{
			Raw:    raw,
			Reason: fmt.Sprintf("%d articles selected, at most %d requested", len(reply.IDs), q.ArticleCount),
		}
	}

	articles, err := Select(q.Country, records, reply.IDs)
	if err != nil {
		return nil, err
	}

	cur := &news.Curation{
		Country:   q.Country,
		Sector:    q.Sector,
		Articles:  articles,
		Summary:   reply.Summary,
		CuratedAt: c.now().UTC(),
	}
	if err := c.store.SaveCuration(ctx, cur); err != nil {
		return nil, fmt.Errorf("saving %s/%s curation: %w", q.Country, q.Sector, err)
	}

	log.Printf("Curated %d of %d %s articles for %s", len(articles), len(records), q.Country, q.Sector)
	return cur, nil
}

// Select returns the records with the given ids in record order. Ids absent
// from records are an *news.IntegrityError.
func Select(country news.Country, records []news.Record, ids []int) ([]news.Record, error) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	selected := make([]news.Record, 0, len(ids))
	for _, r := range records {
		if want[r.ID] {
			selected = append(selected, r)
			delete(want, r.ID)
		}
	}

	if len(want) > 0 {
		missing := make([]int, 0, len(want))
		for id := range want {
			missing = append(missing, id)
		}
		slices.Sort(missing)
		return nil, &news.IntegrityError{Country: country, MissingIDs: missing}
	}
	return selected, nil
}
