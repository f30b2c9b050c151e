package curate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/cyberbrief/internal/llm"
	"github.com/TobiSchelling/cyberbrief/internal/news"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

type fakeProvider struct {
	reply string
	err   error
	calls []llm.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, r llm.Request) (string, error) {
	f.calls = append(f.calls, r)
	return f.reply, f.err
}

func testRecords() []news.Record {
	var records []news.Record
	for i, title := range []string{
		"Bank outage blamed on ransomware",
		"MAS issues new cyber hygiene notice",
		"Telco confirms data leak",
		"Global phishing wave hits retailers",
		"Hospital systems restored after attack",
		"New zero-day in VPN appliances",
	} {
		records = append(records, news.Record{
			ID:          i + 1,
			Title:       title,
			SourceName:  "Source",
			SourceIcon:  "https://example.com/icon.png",
			Link:        "https://example.com/a",
			Thumbnail:   "https://example.com/t.jpg",
			PublishedAt: "03/11/2024, 05:15 PM",
		})
	}
	return records
}

func setupCurator(t *testing.T, reply string) (*Curator, *fakeProvider, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := st.SaveRecords(context.Background(), news.Singapore, testRecords()); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	p := &fakeProvider{reply: reply}
	c := NewCurator(st, p, 1024, time.Minute)
	c.now = func() time.Time { return time.Date(2024, 11, 3, 9, 15, 0, 0, time.UTC) }
	return c, p, st
}

func financeQuery(n int) news.Query {
	return news.Query{Country: news.Singapore, Sector: "Finance", ArticleCount: n}
}

func TestCurateSelectsInRecordOrder(t *testing.T) {
	for _, reply := range []string{
		`{"articles": [2, 5], "summary": "Two stories."}`,
		`{"articles": [5, 2], "summary": "Two stories."}`,
	} {
		c, _, st := setupCurator(t, reply)
		cur, err := c.Curate(context.Background(), financeQuery(8))
		if err != nil {
			t.Fatalf("Curate(%s): %v", reply, err)
		}

		ids := cur.SelectedIDs()
		if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
			t.Errorf("reply %s: ids = %v, want [2 5]", reply, ids)
		}
		if cur.Articles[1].Title != "Hospital systems restored after attack" {
			t.Errorf("article 5 title = %q", cur.Articles[1].Title)
		}
		if cur.Summary != "Two stories." {
			t.Errorf("summary = %q", cur.Summary)
		}

		saved, err := st.LoadCuration(context.Background(), news.Singapore, "Finance")
		if err != nil {
			t.Fatalf("LoadCuration: %v", err)
		}
		if len(saved.Articles) != 2 {
			t.Errorf("saved %d articles, want 2", len(saved.Articles))
		}
	}
}

func TestCurateRequest(t *testing.T) {
	c, p, _ := setupCurator(t, `{"articles": [1], "summary": "s"}`)
	if _, err := c.Curate(context.Background(), financeQuery(3)); err != nil {
		t.Fatalf("Curate: %v", err)
	}

	if len(p.calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(p.calls))
	}
	req := p.calls[0]
	if req.Schema == nil {
		t.Error("expected a JSON schema in the request")
	}
	if req.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", req.MaxTokens)
	}
	for _, want := range []string{
		"select the 3 articles",
		"from singapore in the Finance sector",
		"less than 150 words",
		`{"id":2,"article":"MAS issues new cyber hygiene notice"}`,
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(req.Prompt, "https://example.com") {
		t.Error("prompt should only carry ids and titles")
	}
}

func TestCurateTruncatedReply(t *testing.T) {
	raw := `{"articles": [1, 2], "summ`
	c, _, st := setupCurator(t, raw)

	_, err := c.Curate(context.Background(), financeQuery(8))
	var rfe *news.ResponseFormatError
	if !errors.As(err, &rfe) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
	if rfe.Raw != raw {
		t.Errorf("Raw = %q, want %q", rfe.Raw, raw)
	}
	if !strings.Contains(err.Error(), raw) {
		t.Error("error message should contain the raw reply")
	}

	if _, err := st.LoadCuration(context.Background(), news.Singapore, "Finance"); !errors.Is(err, news.ErrNotFound) {
		t.Errorf("nothing should be saved on a bad reply, got %v", err)
	}
}

func TestCurateUnknownID(t *testing.T) {
	c, _, _ := setupCurator(t, `{"articles": [1, 42], "summary": "s"}`)

	_, err := c.Curate(context.Background(), financeQuery(8))
	var ie *news.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if len(ie.MissingIDs) != 1 || ie.MissingIDs[0] != 42 {
		t.Errorf("MissingIDs = %v, want [42]", ie.MissingIDs)
	}
}

func TestCurateTooManyArticles(t *testing.T) {
	c, _, _ := setupCurator(t, `{"articles": [1, 2, 3], "summary": "s"}`)

	_, err := c.Curate(context.Background(), financeQuery(2))
	var rfe *news.ResponseFormatError
	if !errors.As(err, &rfe) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
}

func TestCurateDuplicateIDsCollapse(t *testing.T) {
	c, _, _ := setupCurator(t, `{"articles": [3, "3", 1, 3], "summary": "s"}`)

	cur, err := c.Curate(context.Background(), financeQuery(2))
	if err != nil {
		t.Fatalf("Curate: %v", err)
	}
	ids := cur.SelectedIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("ids = %v, want [1 3]", ids)
	}
}

func TestCurateMissingRecords(t *testing.T) {
	c, p, _ := setupCurator(t, `{"articles": [], "summary": ""}`)

	_, err := c.Curate(context.Background(), news.Query{Country: news.Malaysia, Sector: "Energy", ArticleCount: 5})
	if !errors.Is(err, news.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(p.calls) != 0 {
		t.Error("provider should not be called without records")
	}
}

func TestCurateInvalidQuery(t *testing.T) {
	c, p, _ := setupCurator(t, "")

	for _, q := range []news.Query{
		{Country: "thailand", Sector: "Finance", ArticleCount: 5},
		{Country: news.Singapore, Sector: " ", ArticleCount: 5},
		{Country: news.Singapore, Sector: "Finance", ArticleCount: 0},
	} {
		if _, err := c.Curate(context.Background(), q); !errors.Is(err, news.ErrInvalidInput) {
			t.Errorf("Curate(%+v) = %v, want ErrInvalidInput", q, err)
		}
	}
	if len(p.calls) != 0 {
		t.Error("provider should not be called for invalid queries")
	}
}

func TestCurateUpstreamError(t *testing.T) {
	c, p, _ := setupCurator(t, "")
	p.err = &news.UpstreamError{Service: "gemini", StatusCode: 503, Err: errors.New("overloaded")}

	_, err := c.Curate(context.Background(), financeQuery(8))
	var upstream *news.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestCurateOverwrites(t *testing.T) {
	c, p, st := setupCurator(t, `{"articles": [1], "summary": "first"}`)
	if _, err := c.Curate(context.Background(), financeQuery(8)); err != nil {
		t.Fatalf("Curate: %v", err)
	}
	p.reply = `{"articles": [4, 6], "summary": "second"}`
	if _, err := c.Curate(context.Background(), financeQuery(8)); err != nil {
		t.Fatalf("Curate: %v", err)
	}

	saved, err := st.LoadCuration(context.Background(), news.Singapore, "Finance")
	if err != nil {
		t.Fatalf("LoadCuration: %v", err)
	}
	if saved.Summary != "second" || len(saved.Articles) != 2 {
		t.Errorf("saved = %+v, want second curation", saved)
	}
}

func TestCurateNonASCIISectorsStayDistinct(t *testing.T) {
	c, p, st := setupCurator(t, `{"articles": [1], "summary": "energy"}`)
	ctx := context.Background()

	if _, err := c.Curate(ctx, news.Query{Country: news.Singapore, Sector: "能源", ArticleCount: 3}); err != nil {
		t.Fatalf("Curate: %v", err)
	}
	p.reply = `{"articles": [2], "summary": "health"}`
	if _, err := c.Curate(ctx, news.Query{Country: news.Singapore, Sector: "医疗", ArticleCount: 3}); err != nil {
		t.Fatalf("Curate: %v", err)
	}

	got, err := st.LoadCuration(ctx, news.Singapore, "能源")
	if err != nil {
		t.Fatalf("LoadCuration: %v", err)
	}
	if got.Summary != "energy" || got.Sector != "能源" {
		t.Errorf("energy curation = %q/%q, want energy/能源", got.Summary, got.Sector)
	}

	keys, err := st.ListCurations(ctx)
	if err != nil {
		t.Fatalf("ListCurations: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %+v, want both sectors listed", keys)
	}
}

func TestCuratePunctuationOnlySector(t *testing.T) {
	c, p, _ := setupCurator(t, `{"articles": [1], "summary": "s"}`)

	_, err := c.Curate(context.Background(), news.Query{Country: news.Singapore, Sector: "?!", ArticleCount: 3})
	if !errors.Is(err, news.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(p.calls) != 0 {
		t.Error("provider should not be called for an unusable sector")
	}
}
