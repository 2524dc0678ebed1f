package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Server.APIKeys = []string{"k1"}
	cfg.Gemini.APIKey = "g"
	cfg.Perplexity.APIKey = "p"
	return cfg
}

func TestDefaults_ValidWithKeys(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if cfg.Fetch.Timeout.Duration != 10*time.Second || cfg.Research.RequestBudget.Duration != 60*time.Second {
		t.Errorf("unexpected timeouts %v %v", cfg.Fetch.Timeout, cfg.Research.RequestBudget)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no api keys", func(c *Config) { c.Server.APIKeys = nil }, "api key"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }, "backend"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Redis.Addr = "" }, "redis"},
		{"unknown primary", func(c *Config) { c.Research.Primaries = []string{"psychic"} }, "primary"},
		{"fallback as primary only", func(c *Config) { c.Research.Fallback = StrategyRetrievalStructured }, "fallback"},
		{"missing gemini key", func(c *Config) { c.Gemini.APIKey = "" }, "gemini"},
		{"missing perplexity key", func(c *Config) { c.Perplexity.APIKey = "" }, "perplexity"},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }, "bucket"},
		{"write timeout too short", func(c *Config) { c.Server.WriteTimeout = Duration{30 * time.Second} }, "write_timeout"},
		{"no database", func(c *Config) { c.Database.Host = "" }, "database"},
		{"gemini key needed for manual scrape", func(c *Config) {
			c.Gemini.APIKey = ""
			c.Research.Primaries = []string{StrategyRetrievalStructured}
			c.Research.Fallback = StrategyRetrievalText
		}, "gemini"},
		{"scrape budget too long", func(c *Config) { c.Research.ScrapeBudget = Duration{2 * time.Minute} }, "scrape_budget"},
		{"zero scrape budget", func(c *Config) { c.Research.ScrapeBudget = Duration{} }, "scrape_budget"},
		{"slow browser", func(c *Config) { c.Browser.Enabled = true; c.Browser.Timeout = Duration{25 * time.Second} }, "browser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidate_PerplexityOptional(t *testing.T) {
	cfg := validConfig()
	cfg.Perplexity.APIKey = ""
	cfg.Research.Primaries = []string{StrategyEstimate}
	cfg.Research.Fallback = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("perplexity key should not be required: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "axiom.toml")
	content := `
log_level = "debug"

[server]
addr = ":9090"
api_keys = ["from-file"]

[cache]
backend = "redis"
ttl = "2h"

[research]
primaries = ["estimate", "direct_page"]
request_budget = "50s"
scrape_budget = "40s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AXIOM_API_KEYS", "a, b ,")
	t.Setenv("AXIOM_GEMINI_API_KEY", "gem")
	t.Setenv("AXIOM_RESEARCH_MIN_OBSERVATIONS", "5")
	t.Setenv("AXIOM_FETCH_TIMEOUT", "bogus")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Server.Addr != ":9090" {
		t.Errorf("file values not applied: %+v", cfg.Server)
	}
	if strings.Join(cfg.Server.APIKeys, ",") != "a,b" {
		t.Errorf("APIKeys = %v", cfg.Server.APIKeys)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.TTL.Duration != 2*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Research.MinObservations != 5 || cfg.Research.RequestBudget.Duration != 50*time.Second {
		t.Errorf("research = %+v", cfg.Research)
	}
	if cfg.Research.ScrapeBudget.Duration != 40*time.Second {
		t.Errorf("scrape budget = %v", cfg.Research.ScrapeBudget)
	}
	if cfg.Gemini.APIKey != "gem" {
		t.Errorf("gemini key not overridden")
	}
	if cfg.Fetch.Timeout.Duration != 10*time.Second {
		t.Errorf("unparseable override should keep default, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("untouched default lost: %d", cfg.Database.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr == "" {
		t.Error("defaults not applied")
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "hunter2"
	out := Redacted(&cfg)
	if out.Gemini.APIKey != "***" || out.Database.Password != "***" || out.Server.APIKeys[0] != "***" {
		t.Errorf("secrets not redacted: %+v", out)
	}
	if cfg.Server.APIKeys[0] != "k1" {
		t.Error("Redacted mutated the original")
	}
	if out.Redis.Password != "" {
		t.Error("empty secrets should stay empty")
	}
}
