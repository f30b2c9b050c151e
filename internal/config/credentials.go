package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Credentials holds the API keys read from the environment at startup.
type Credentials struct {
	SearchAPIKey     string
	CompletionAPIKey string
}

// MissingCredentialError reports an unset environment variable.
type MissingCredentialError struct {
	Env     string
	Purpose string
}

func (e *MissingCredentialError) Error() string {
	return e.Env + ": " + e.Purpose + " API key is required; set it in the environment or a .env file"
}

// LoadCredentials reads every API key the configuration needs.
// A .env file in the working directory is loaded first if present; one that
// exists but cannot be read or parsed is an error.
func LoadCredentials(cfg *Config) (*Credentials, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	creds := &Credentials{
		SearchAPIKey: os.Getenv(cfg.Search.APIKeyEnv),
	}
	if creds.SearchAPIKey == "" {
		return nil, &MissingCredentialError{Env: cfg.Search.APIKeyEnv, Purpose: "search"}
	}

	if cfg.Curation.APIKeyEnv != "" {
		creds.CompletionAPIKey = os.Getenv(cfg.Curation.APIKeyEnv)
		if creds.CompletionAPIKey == "" {
			return nil, &MissingCredentialError{Env: cfg.Curation.APIKeyEnv, Purpose: cfg.Curation.Provider}
		}
	}

	return creds, nil
}
