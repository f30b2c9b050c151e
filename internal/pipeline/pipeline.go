// Package pipeline runs the retrieve and curate stages over every configured
// country and sector and records the outcome of each unit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/TobiSchelling/cyberbrief/internal/database"
	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

// Stage names.
const (
	StageRetrieve = "retrieve"
	StageCurate   = "curate"
)

// Status is the outcome of one unit.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Fetcher retrieves the record set of a country.
type Fetcher interface {
	Retrieve(ctx context.Context, country string) ([]news.Record, error)
}

// Curator curates a country's records for one sector.
type Curator interface {
	Curate(ctx context.Context, q news.Query) (*news.Curation, error)
}

// History records runs. *database.DB implements it.
type History interface {
	StartRun() (int64, error)
	FinishRun(runID int64, units []database.RunUnit) error
}

// UnitResult holds the result of one stage for one country, or one
// (country, sector) pair.
type UnitResult struct {
	Country news.Country
	Sector  string
	Stage   string
	Status  Status
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID int64
	Units []UnitResult
}

// Count returns the number of units with the given status.
func (r *Result) Count(s Status) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

// Err joins the errors of all failed units.
func (r *Result) Err() error {
	var errs []error
	for _, u := range r.Units {
		if u.Status == StatusFailed && u.Err != nil {
			errs = append(errs, u.Err)
		}
	}
	return errors.Join(errs...)
}

// Plan is the batch to run.
type Plan struct {
	Countries    []news.Country
	Sectors      []string
	ArticleCount int
}

// Pipeline orchestrates the retrieve and curate stages.
type Pipeline struct {
	fetcher Fetcher
	curator Curator
	store   store.Store
	history History
	debug   bool
}

// New creates a new pipeline. history may be nil.
func New(fetcher Fetcher, curator Curator, st store.Store, history History, debug bool) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		curator: curator,
		store:   st,
		history: history,
		debug:   debug,
	}
}

// Run retrieves each country and curates it for every sector. A failed
// retrieval skips that country's sectors; a failed curation does not affect
// the others. Once ctx is done the remaining units are marked cancelled.
func (p *Pipeline) Run(ctx context.Context, plan Plan) *Result {
	r := &Result{}

	if p.history != nil {
		id, err := p.history.StartRun()
		if err != nil {
			log.Printf("Warning: could not record run start: %v", err)
		}
		r.RunID = id
	}

	for i, country := range plan.Countries {
		log.Printf("Country %d/%d: %s", i+1, len(plan.Countries), country)

		if err := ctx.Err(); err != nil {
			r.Units = append(r.Units, cancelled(country, "", StageRetrieve, err))
			for _, sector := range plan.Sectors {
				r.Units = append(r.Units, cancelled(country, sector, StageCurate, err))
			}
			continue
		}

		step := p.runRetrieve(ctx, country)
		r.Units = append(r.Units, step)
		if step.Status == StatusCancelled {
			for _, sector := range plan.Sectors {
				r.Units = append(r.Units, cancelled(country, sector, StageCurate, step.Err))
			}
			continue
		}
		if step.Status != StatusOK {
			for _, sector := range plan.Sectors {
				r.Units = append(r.Units, UnitResult{
					Country: country,
					Sector:  sector,
					Stage:   StageCurate,
					Status:  StatusSkipped,
					Summary: "retrieval failed",
				})
			}
			continue
		}

		for _, sector := range plan.Sectors {
			if err := ctx.Err(); err != nil {
				r.Units = append(r.Units, cancelled(country, sector, StageCurate, err))
				continue
			}
			r.Units = append(r.Units, p.runCurate(ctx, news.Query{
				Country:      country,
				Sector:       sector,
				ArticleCount: plan.ArticleCount,
			}))
		}
	}

	if p.history != nil && r.RunID != 0 {
		if err := p.history.FinishRun(r.RunID, runUnits(r.Units)); err != nil {
			log.Printf("Warning: could not record run %d: %v", r.RunID, err)
		}
	}
	return r
}

// DryRun shows what is stored for the plan without any network calls.
func (p *Pipeline) DryRun(ctx context.Context, plan Plan) *Result {
	r := &Result{}

	for _, country := range plan.Countries {
		unit := UnitResult{Country: country, Stage: StageRetrieve, Status: StatusSkipped}
		records, err := p.store.LoadRecords(ctx, country)
		switch {
		case errors.Is(err, news.ErrNotFound):
			unit.Summary = "[dry-run] no stored records, would retrieve"
		case err != nil:
			unit.Summary = fmt.Sprintf("[dry-run] could not read stored records: %v", err)
		default:
			unit.Summary = fmt.Sprintf("[dry-run] %d records stored, would replace", len(records))
		}
		r.Units = append(r.Units, unit)

		for _, sector := range plan.Sectors {
			unit := UnitResult{Country: country, Sector: sector, Stage: StageCurate, Status: StatusSkipped}
			cur, err := p.store.LoadCuration(ctx, country, sector)
			if err == nil {
				unit.Summary = fmt.Sprintf("[dry-run] curation with %d articles stored, would select up to %d", len(cur.Articles), plan.ArticleCount)
			} else {
				unit.Summary = fmt.Sprintf("[dry-run] would select up to %d articles", plan.ArticleCount)
			}
			r.Units = append(r.Units, unit)
		}
	}

	return r
}

func (p *Pipeline) runRetrieve(ctx context.Context, country news.Country) UnitResult {
	records, err := p.fetcher.Retrieve(ctx, string(country))
	if err != nil {
		log.Printf("Retrieving %s failed: %v", country, err)
		status := StatusFailed
		if ctx.Err() != nil {
			status = StatusCancelled
		}
		return UnitResult{Country: country, Stage: StageRetrieve, Status: status, Err: err}
	}
	p.debugf("retrieved %d records for %s", len(records), country)
	return UnitResult{
		Country: country,
		Stage:   StageRetrieve,
		Status:  StatusOK,
		Summary: fmt.Sprintf("Stored %d records", len(records)),
	}
}

func (p *Pipeline) runCurate(ctx context.Context, q news.Query) UnitResult {
	cur, err := p.curator.Curate(ctx, q)
	if err != nil {
		log.Printf("Curating %s/%s failed: %v", q.Country, q.Sector, err)
		status := StatusFailed
		if ctx.Err() != nil {
			status = StatusCancelled
		}
		return UnitResult{Country: q.Country, Sector: q.Sector, Stage: StageCurate, Status: status, Err: err}
	}
	p.debugf("curated %s/%s: ids %v", q.Country, q.Sector, cur.SelectedIDs())
	return UnitResult{
		Country: q.Country,
		Sector:  q.Sector,
		Stage:   StageCurate,
		Status:  StatusOK,
		Summary: fmt.Sprintf("Selected %d articles", len(cur.Articles)),
	}
}

func cancelled(country news.Country, sector, stage string, err error) UnitResult {
	return UnitResult{Country: country, Sector: sector, Stage: stage, Status: StatusCancelled, Err: err}
}

func (p *Pipeline) debugf(format string, args ...any) {
	if p.debug {
		log.Printf("DEBUG "+format, args...)
	}
}

func runUnits(units []UnitResult) []database.RunUnit {
	out := make([]database.RunUnit, len(units))
	for i, u := range units {
		ru := database.RunUnit{
			Position: i + 1,
			Country:  string(u.Country),
			Stage:    u.Stage,
			Status:   string(u.Status),
		}
		if u.Sector != "" {
			sector := u.Sector
			ru.Sector = &sector
		}
		if u.Summary != "" {
			summary := u.Summary
			ru.Summary = &summary
		}
		if u.Err != nil {
			msg := u.Err.Error()
			ru.Error = &msg
		}
		out[i] = ru
	}
	return out
}
