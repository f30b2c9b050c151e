package main

import (
	"context"

	"github.com/TobiSchelling/cyberbrief/internal/config"
	"github.com/TobiSchelling/cyberbrief/internal/curate"
	"github.com/TobiSchelling/cyberbrief/internal/database"
	"github.com/TobiSchelling/cyberbrief/internal/llm"
	"github.com/TobiSchelling/cyberbrief/internal/pipeline"
	"github.com/TobiSchelling/cyberbrief/internal/retrieve"
	"github.com/TobiSchelling/cyberbrief/internal/search"
	"github.com/TobiSchelling/cyberbrief/internal/store"
)

// app holds the components built from cfg for one command.
type app struct {
	db       *database.DB
	store    store.Store
	fetcher  *retrieve.Fetcher
	curator  *curate.Curator
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// newApp wires every component. Credentials are checked here, before any
// work starts.
func newApp(ctx context.Context) (*app, error) {
	creds, err := config.LoadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.Options{
		Provider: cfg.Curation.Provider,
		Model:    cfg.Curation.Model,
		APIKey:   creds.CompletionAPIKey,
		BaseURL:  cfg.Curation.BaseURL,
		Timeout:  cfg.Curation.Timeout,
	})
	if err != nil {
		return nil, err
	}

	a, err := newReadOnlyApp(ctx)
	if err != nil {
		return nil, err
	}

	searcher := search.NewClient(cfg.Search.BaseURL, cfg.Search.Engine, creds.SearchAPIKey, cfg.Search.Timeout)
	a.fetcher = retrieve.NewFetcher(searcher, a.store, cfg.Search.Query)
	a.curator = curate.NewCurator(a.store, provider, cfg.Curation.MaxTokens, cfg.Curation.Timeout)
	a.pipeline = pipeline.New(a.fetcher, a.curator, a.store, a.db, cfg.Debug())
	return a, nil
}

// newReadOnlyApp opens storage only. Its pipeline supports DryRun.
func newReadOnlyApp(ctx context.Context) (*app, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	a := &app{db: db, closers: []func() error{db.Close}}

	st, closeStore, err := openStore(ctx, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}
	a.store = st
	a.pipeline = pipeline.New(nil, nil, st, db, cfg.Debug())
	return a, nil
}

// Close releases storage in reverse order of opening.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openDB() (*database.DB, error) {
	return database.OpenDir(cfg.GetDataDir())
}

// openStore returns the snapshot backend selected by output.backend.
func openStore(ctx context.Context, db *database.DB) (store.Store, func() error, error) {
	switch cfg.Output.Backend {
	case "sqlite":
		return db, nil, nil
	case "gcs":
		gs, err := store.NewGCSStore(ctx, cfg.Output.GCSBucket, cfg.Output.GCSPrefix)
		if err != nil {
			return nil, nil, err
		}
		return gs, gs.Close, nil
	default:
		fs, err := store.NewFileStore(cfg.GetDataDir())
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}
