package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Countries) != 2 {
		t.Errorf("expected 2 countries, got %d", len(cfg.Countries))
	}
	if len(cfg.Sectors) != 5 {
		t.Errorf("expected 5 sectors, got %d", len(cfg.Sectors))
	}
	if cfg.ArticleCount != 8 {
		t.Errorf("expected article_count 8, got %d", cfg.ArticleCount)
	}
	if cfg.Curation.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.Curation.Provider)
	}
	if cfg.Search.Query != "cyber when:1d" {
		t.Errorf("expected query 'cyber when:1d', got %q", cfg.Search.Query)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("expected 30s search timeout, got %v", cfg.Search.Timeout)
	}
	if cfg.Curation.Timeout != 2*time.Minute {
		t.Errorf("expected 2m curation timeout, got %v", cfg.Curation.Timeout)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
curation:
  provider: openai
sectors: [healthcare]
article_count: 5
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Curation.Model != "gpt-4o" {
		t.Errorf("expected provider default model 'gpt-4o', got %q", cfg.Curation.Model)
	}
	if cfg.Curation.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("expected OPENAI_API_KEY, got %q", cfg.Curation.APIKeyEnv)
	}
	if len(cfg.Sectors) != 1 || cfg.Sectors[0] != "healthcare" {
		t.Errorf("expected sectors [healthcare], got %v", cfg.Sectors)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Search.APIKeyEnv != "SERPAPI_API_KEY" {
		t.Errorf("expected default search key env, got %q", cfg.Search.APIKeyEnv)
	}
	if cfg.Output.Backend != "files" {
		t.Errorf("expected files backend, got %q", cfg.Output.Backend)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"provider":   "curation:\n  provider: cohere\n",
		"backend":    "output:\n  backend: s3\n",
		"gcs bucket": "output:\n  backend: gcs\n",
		"count":      "article_count: 0\n",
	}
	for name, data := range tests {
		if _, err := parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sectors) == 0 {
		t.Error("expected sectors to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestLoadCredentials(t *testing.T) {
	chdirForTest(t, t.TempDir())
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	creds, err := LoadCredentials(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.SearchAPIKey != "serp-key" || creds.CompletionAPIKey != "google-key" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func TestLoadCredentialsFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}
	t.Setenv("SERPAPI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("SERPAPI_API_KEY")
	os.Unsetenv("GOOGLE_API_KEY")

	env := "SERPAPI_API_KEY=serp-from-file\nGOOGLE_API_KEY=google-from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}

	creds, err := LoadCredentials(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.SearchAPIKey != "serp-from-file" || creds.CompletionAPIKey != "google-from-file" {
		t.Errorf("unexpected credentials %+v", creds)
	}
}

func TestLoadCredentialsMalformedDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}
	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=value\n"), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}

	_, err = LoadCredentials(cfg)
	if err == nil {
		t.Fatal("expected an error for a malformed .env")
	}
	var missing *MissingCredentialError
	if errors.As(err, &missing) {
		t.Errorf("malformed .env reported as missing credential: %v", err)
	}
	if !strings.Contains(err.Error(), ".env") {
		t.Errorf("error %q should name the .env file", err)
	}
}

func TestLoadCredentialsMissing(t *testing.T) {
	chdirForTest(t, t.TempDir())
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err = LoadCredentials(cfg)
	var missing *MissingCredentialError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingCredentialError, got %v", err)
	}
	if missing.Env != "GOOGLE_API_KEY" {
		t.Errorf("expected GOOGLE_API_KEY, got %q", missing.Env)
	}

	t.Setenv("SERPAPI_API_KEY", "")
	_, err = LoadCredentials(cfg)
	if !errors.As(err, &missing) || missing.Env != "SERPAPI_API_KEY" {
		t.Errorf("expected missing SERPAPI_API_KEY, got %v", err)
	}
}

func TestOllamaNeedsNoCompletionKey(t *testing.T) {
	chdirForTest(t, t.TempDir())
	cfg, err := parse([]byte("curation:\n  provider: ollama\n"))
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	t.Setenv("SERPAPI_API_KEY", "serp-key")

	creds, err := LoadCredentials(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.CompletionAPIKey != "" {
		t.Errorf("expected no completion key, got %q", creds.CompletionAPIKey)
	}
}
