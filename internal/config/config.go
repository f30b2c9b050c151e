package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Countries    []string `yaml:"countries"`
	Sectors      []string `yaml:"sectors"`
	ArticleCount int      `yaml:"article_count"`
	Search       Search   `yaml:"search"`
	Curation     Curation `yaml:"curation"`
	Output       Output   `yaml:"output"`
	Server       Server   `yaml:"server"`
	Schedule     Schedule `yaml:"schedule"`
	Logging      Logging  `yaml:"logging"`
}

type Search struct {
	BaseURL   string        `yaml:"base_url"`
	Engine    string        `yaml:"engine"`
	Query     string        `yaml:"query"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Curation struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Output struct {
	Backend   string `yaml:"backend"`
	DataDir   string `yaml:"data_dir"`
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Schedule struct {
	Cron string `yaml:"cron"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Provider defaults keyed by curation.provider.
var providerDefaults = map[string]struct {
	model     string
	apiKeyEnv string
}{
	"gemini":    {"gemini-1.5-flash", "GOOGLE_API_KEY"},
	"openai":    {"gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"claude-haiku-4-5", "ANTHROPIC_API_KEY"},
	"ollama":    {"qwen2.5:7b", ""},
}

// ConfigDir returns the XDG config directory for cyberbrief.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "cyberbrief")
}

// DataDir returns the XDG data directory for cyberbrief.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "cyberbrief")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/cyberbrief/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'cyberbrief init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Countries:    []string{"singapore", "malaysia"},
		Sectors:      []string{"finance", "it", "nonprofit", "food_and_beverage", "media"},
		ArticleCount: 8,
		Search: Search{
			BaseURL:   "https://serpapi.com/search",
			Engine:    "google_news",
			Query:     "cyber when:1d",
			APIKeyEnv: "SERPAPI_API_KEY",
			Timeout:   30 * time.Second,
		},
		Curation: Curation{
			Provider:  "gemini",
			MaxTokens: 1024,
			Timeout:   120 * time.Second,
		},
		Output:   Output{Backend: "files", GCSPrefix: "cyberbrief/"},
		Server:   Server{Port: 8000},
		Schedule: Schedule{Cron: "0 7 * * *"},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if d, ok := providerDefaults[cfg.Curation.Provider]; ok {
		if cfg.Curation.Model == "" {
			cfg.Curation.Model = d.model
		}
		if cfg.Curation.APIKeyEnv == "" {
			cfg.Curation.APIKeyEnv = d.apiKeyEnv
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := providerDefaults[c.Curation.Provider]; !ok {
		return fmt.Errorf("unknown curation provider %q (want gemini, openai, anthropic or ollama)", c.Curation.Provider)
	}
	switch c.Output.Backend {
	case "files", "sqlite":
	case "gcs":
		if c.Output.GCSBucket == "" {
			return fmt.Errorf("output.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown output backend %q (want files, sqlite or gcs)", c.Output.Backend)
	}
	if c.ArticleCount < 1 {
		return fmt.Errorf("article_count must be positive, got %d", c.ArticleCount)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.Logging.Level == "DEBUG"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
