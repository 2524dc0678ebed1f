// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is populated from defaults, an optional TOML file, a .env file and
// finally AXIOM_* environment variables.
type Config struct {
	Server     ServerConfig   `toml:"server"`
	Database   DatabaseConfig `toml:"database"`
	Redis      RedisConfig    `toml:"redis"`
	Cache      CacheConfig    `toml:"cache"`
	Gemini     ProviderConfig `toml:"gemini"`
	Perplexity ProviderConfig `toml:"perplexity"`
	Fetch      FetchConfig    `toml:"fetch"`
	Browser    BrowserConfig  `toml:"browser"`
	Research   ResearchConfig `toml:"research"`
	Archive    ArchiveConfig  `toml:"archive"`
	Refresh    RefreshConfig  `toml:"refresh"`
	LogLevel   string         `toml:"log_level"`
	LogFormat  string         `toml:"log_format"`
}

// Duration decodes TOML strings such as "45s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	APIKeys         []string `toml:"api_keys"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN         string `toml:"dsn"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Name        string `toml:"name"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	SSLMode     string `toml:"ssl_mode"`
	MaxConns    int    `toml:"max_conns"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
	TLS      bool   `toml:"tls"`
	Prefix   string `toml:"prefix"`
}

// CacheConfig selects where successful source results are kept.
type CacheConfig struct {
	// Backend is one of "file", "redis" or "none".
	Backend string   `toml:"backend"`
	Path    string   `toml:"path"`
	TTL     Duration `toml:"ttl"`
}

// ProviderConfig is shared by the text-generation providers.
type ProviderConfig struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type FetchConfig struct {
	Timeout      Duration `toml:"timeout"`
	UserAgents   []string `toml:"user_agents"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

// BrowserConfig enables headless Chrome for marketplace pages that only
// render their results with script.
type BrowserConfig struct {
	Enabled  bool     `toml:"enabled"`
	ExecPath string   `toml:"exec_path"`
	Timeout  Duration `toml:"timeout"`
	Settle   Duration `toml:"settle"`
}

type ResearchConfig struct {
	// Primaries run concurrently; valid names are estimate,
	// retrieval_structured and direct_page.
	Primaries []string `toml:"primaries"`
	// Fallback runs when primaries yield too little; empty disables it.
	Fallback        string   `toml:"fallback"`
	MinObservations int      `toml:"min_observations"`
	RequestBudget   Duration `toml:"request_budget"`
	// ScrapeBudget bounds a manual two-URL scrape end to end.
	ScrapeBudget Duration `toml:"scrape_budget"`
}

type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

type RefreshConfig struct {
	Enabled   bool     `toml:"enabled"`
	Schedule  string   `toml:"schedule"`
	MaxAge    Duration `toml:"max_age"`
	BatchSize int      `toml:"batch_size"`
	Workers   int      `toml:"workers"`
}

// Defaults returns a Config populated with the production defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{90 * time.Second},
			ShutdownTimeout: Duration{20 * time.Second},
		},
		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			Name:        "axiom",
			User:        "axiom",
			SSLMode:     "disable",
			MaxConns:    10,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			Prefix:   "axiom:",
		},
		Cache: CacheConfig{
			Backend: "file",
			Path:    "data/source_cache.json",
			TTL:     Duration{24 * time.Hour},
		},
		Gemini: ProviderConfig{
			Model:   "gemini-2.0-flash",
			Timeout: Duration{45 * time.Second},
		},
		Perplexity: ProviderConfig{
			Model:   "sonar",
			Timeout: Duration{45 * time.Second},
		},
		Fetch: FetchConfig{
			Timeout:      Duration{10 * time.Second},
			MaxBodyBytes: 4 << 20,
		},
		Browser: BrowserConfig{
			Timeout: Duration{12 * time.Second},
			Settle:  Duration{2 * time.Second},
		},
		Research: ResearchConfig{
			Primaries:       []string{StrategyDirectPage},
			Fallback:        StrategyRetrievalText,
			MinObservations: 3,
			RequestBudget:   Duration{60 * time.Second},
			ScrapeBudget:    Duration{60 * time.Second},
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Prefix: "snapshots",
		},
		Refresh: RefreshConfig{
			Schedule:  "@every 6h",
			MaxAge:    Duration{7 * 24 * time.Hour},
			BatchSize: 25,
			Workers:   2,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// MaxBrowserTimeout keeps a rendered page fetch within the same bound as a
// plain network fetch plus settle time.
const MaxBrowserTimeout = 12 * time.Second

// Strategy names accepted in ResearchConfig.
const (
	StrategyEstimate            = "estimate"
	StrategyRetrievalText       = "retrieval_text"
	StrategyRetrievalStructured = "retrieval_structured"
	StrategyDirectPage          = "direct_page"
)

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
	validBackends   = map[string]bool{"file": true, "redis": true, "none": true}
	validPrimaries  = map[string]bool{StrategyEstimate: true, StrategyRetrievalStructured: true, StrategyDirectPage: true}
	validFallbacks  = map[string]bool{"": true, StrategyRetrievalText: true, StrategyEstimate: true}
)

// NeedsGemini reports whether any configured research strategy calls
// Gemini. Manual scrapes always extract with Gemini, so Validate requires
// the key regardless.
func (c *Config) NeedsGemini() bool {
	for _, p := range c.Research.Primaries {
		if p == StrategyEstimate || p == StrategyDirectPage {
			return true
		}
	}
	return c.Research.Fallback == StrategyEstimate
}

// NeedsPerplexity reports whether any configured strategy calls Perplexity.
func (c *Config) NeedsPerplexity() bool {
	for _, p := range c.Research.Primaries {
		if p == StrategyRetrievalStructured {
			return true
		}
	}
	return c.Research.Fallback == StrategyRetrievalText
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: text, json)", c.LogFormat))
	}

	if c.Server.Addr == "" {
		errs = append(errs, "server: addr must not be empty")
	}
	if len(c.Server.APIKeys) == 0 {
		errs = append(errs, "server: at least one api key is required")
	}
	if c.Server.WriteTimeout.Duration > 0 && c.Server.WriteTimeout.Duration <= c.Research.RequestBudget.Duration {
		errs = append(errs, "server: write_timeout must exceed research.request_budget")
	}
	if c.Server.WriteTimeout.Duration > 0 && c.Server.WriteTimeout.Duration <= c.Research.ScrapeBudget.Duration {
		errs = append(errs, "server: write_timeout must exceed research.scrape_budget")
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		errs = append(errs, "database: dsn or host is required")
	}

	if !validBackends[c.Cache.Backend] {
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: file, redis, none)", c.Cache.Backend))
	}
	if c.Cache.Backend == "file" && c.Cache.Path == "" {
		errs = append(errs, "cache: path is required for the file backend")
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr is required for the redis cache backend")
	}

	if len(c.Research.Primaries) == 0 {
		errs = append(errs, "research: at least one primary strategy is required")
	}
	for _, p := range c.Research.Primaries {
		if !validPrimaries[p] {
			errs = append(errs, fmt.Sprintf("research: unknown primary strategy %q", p))
		}
	}
	if !validFallbacks[c.Research.Fallback] {
		errs = append(errs, fmt.Sprintf("research: unknown fallback strategy %q", c.Research.Fallback))
	}
	if c.Research.MinObservations <= 0 {
		errs = append(errs, "research: min_observations must be positive")
	}
	if c.Research.RequestBudget.Duration <= 0 {
		errs = append(errs, "research: request_budget must be positive")
	}
	if c.Research.ScrapeBudget.Duration <= 0 {
		errs = append(errs, "research: scrape_budget must be positive")
	}
	if c.Gemini.APIKey == "" {
		errs = append(errs, "gemini: api_key is required (manual scrapes extract with gemini)")
	}
	if c.NeedsPerplexity() && c.Perplexity.APIKey == "" {
		errs = append(errs, "perplexity: api_key is required by the configured strategies")
	}
	if c.Fetch.Timeout.Duration <= 0 {
		errs = append(errs, "fetch: timeout must be positive")
	}
	if c.Browser.Enabled && c.Browser.Timeout.Duration > MaxBrowserTimeout {
		errs = append(errs, fmt.Sprintf("browser: timeout must not exceed %s", MaxBrowserTimeout))
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket is required when enabled")
		}
		if c.Archive.Region == "" {
			errs = append(errs, "archive: region is required when enabled")
		}
	}

	if c.Refresh.Enabled && c.Refresh.Schedule == "" {
		errs = append(errs, "refresh: schedule is required when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
