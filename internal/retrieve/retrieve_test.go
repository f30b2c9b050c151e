package retrieve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/search"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

// fakeSearcher implements Searcher for testing.
type fakeSearcher struct {
	results []search.Result
	err     error
	calls   []search.Request
}

func (f *fakeSearcher) Search(_ context.Context, r search.Request) ([]search.Result, error) {
	f.calls = append(f.calls, r)
	return f.results, f.err
}

func result(title string) search.Result {
	var r search.Result
	r.Title = title
	r.Source.Name = "The Straits Times"
	r.Source.Icon = "https://st.example/icon.png"
	r.Link = "https://st.example/" + title
	r.Thumbnail = "https://st.example/thumb.jpg"
	r.Date = "11/3/2024, 09:15 AM, +0000 UTC"
	return r
}

func openTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}

func TestNormalizeDropsIncompleteResults(t *testing.T) {
	noThumb := result("no-thumbnail")
	noThumb.Thumbnail = ""
	noIcon := result("no-icon")
	noIcon.Source.Icon = ""
	noName := result("no-name")
	noName.Source.Name = ""
	noLink := result("no-link")
	noLink.Link = ""
	noDate := result("no-date")
	noDate.Date = ""

	records, err := Normalize([]search.Result{
		result("first"), noThumb, noIcon, result("second"), noName, noLink, noDate, result("third"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"first", "second", "third"} {
		if records[i].Title != want {
			t.Errorf("record %d: expected %q, got %q", i, want, records[i].Title)
		}
		if records[i].ID != i+1 {
			t.Errorf("record %d: expected id %d, got %d", i, i+1, records[i].ID)
		}
	}
	for _, r := range records {
		if r.Thumbnail == "" || r.SourceIcon == "" {
			t.Errorf("incomplete record leaked through: %+v", r)
		}
	}
}

func TestNormalizeFormatsDate(t *testing.T) {
	records, err := Normalize([]search.Result{result("a")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].PublishedAt != "03/11/2024, 05:15 PM" {
		t.Errorf("unexpected date %q", records[0].PublishedAt)
	}
}

func TestNormalizeFailsOnDateDrift(t *testing.T) {
	r := result("a")
	r.Date = "2024-11-03T09:15:00Z"
	if _, err := Normalize([]search.Result{r}); err == nil {
		t.Error("expected error for unexpected date format")
	}
}

func TestRetrieveStoresRecords(t *testing.T) {
	st := openTestStore(t)
	searcher := &fakeSearcher{results: []search.Result{result("a"), result("b")}}
	f := NewFetcher(searcher, st, "")

	records, err := f.Retrieve(context.Background(), "singapore")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("expected 1 search, got %d", len(searcher.calls))
	}
	if searcher.calls[0].Locale != "SG" || searcher.calls[0].Query != DefaultQuery {
		t.Errorf("unexpected search request %+v", searcher.calls[0])
	}

	stored, err := st.LoadRecords(context.Background(), news.Singapore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 stored records, got %d", len(stored))
	}
}

func TestRetrieveOverwrites(t *testing.T) {
	st := openTestStore(t)
	searcher := &fakeSearcher{results: []search.Result{result("a"), result("b"), result("c")}}
	f := NewFetcher(searcher, st, "")
	if _, err := f.Retrieve(context.Background(), "malaysia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	searcher.results = []search.Result{result("d")}
	if _, err := f.Retrieve(context.Background(), "malaysia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := st.LoadRecords(context.Background(), news.Malaysia)
	if len(stored) != 1 || stored[0].Title != "d" || stored[0].ID != 1 {
		t.Errorf("expected the second run to replace the first, got %+v", stored)
	}
}

func TestRetrieveInvalidCountry(t *testing.T) {
	searcher := &fakeSearcher{}
	f := NewFetcher(searcher, openTestStore(t), "")

	_, err := f.Retrieve(context.Background(), "indonesia")
	if !errors.Is(err, news.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(searcher.calls) != 0 {
		t.Error("expected no search for an invalid country")
	}
}

func TestRetrievePropagatesUpstreamError(t *testing.T) {
	st := openTestStore(t)
	upstream := &news.UpstreamError{Service: "serpapi", StatusCode: 500, Err: errors.New("boom")}
	f := NewFetcher(&fakeSearcher{err: upstream}, st, "")

	_, err := f.Retrieve(context.Background(), "singapore")
	var got *news.UpstreamError
	if !errors.As(err, &got) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}

	if _, err := st.LoadRecords(context.Background(), news.Singapore); !errors.Is(err, news.ErrNotFound) {
		t.Errorf("expected nothing stored after a failed search, got %v", err)
	}
}
