package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges an optional TOML file at path over the defaults, loads .env
// when present, and applies AXIOM_* overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "AXIOM_LOG_LEVEL")
	setStr(&cfg.LogFormat, "AXIOM_LOG_FORMAT")

	setStr(&cfg.Server.Addr, "AXIOM_SERVER_ADDR")
	setStringSlice(&cfg.Server.APIKeys, "AXIOM_API_KEYS")
	setDuration(&cfg.Server.WriteTimeout, "AXIOM_SERVER_WRITE_TIMEOUT")

	setStr(&cfg.Database.DSN, "AXIOM_DATABASE_URL")
	setStr(&cfg.Database.Host, "AXIOM_DATABASE_HOST")
	setInt(&cfg.Database.Port, "AXIOM_DATABASE_PORT")
	setStr(&cfg.Database.Name, "AXIOM_DATABASE_NAME")
	setStr(&cfg.Database.User, "AXIOM_DATABASE_USER")
	setStr(&cfg.Database.Password, "AXIOM_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "AXIOM_DATABASE_SSL_MODE")
	setBool(&cfg.Database.AutoMigrate, "AXIOM_DATABASE_AUTO_MIGRATE")

	setStr(&cfg.Redis.Addr, "AXIOM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AXIOM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AXIOM_REDIS_DB")
	setBool(&cfg.Redis.TLS, "AXIOM_REDIS_TLS")

	setStr(&cfg.Cache.Backend, "AXIOM_CACHE_BACKEND")
	setStr(&cfg.Cache.Path, "AXIOM_CACHE_PATH")
	setDuration(&cfg.Cache.TTL, "AXIOM_CACHE_TTL")

	setStr(&cfg.Gemini.APIKey, "AXIOM_GEMINI_API_KEY")
	setStr(&cfg.Gemini.Model, "AXIOM_GEMINI_MODEL")
	setStr(&cfg.Perplexity.APIKey, "AXIOM_PERPLEXITY_API_KEY")
	setStr(&cfg.Perplexity.Model, "AXIOM_PERPLEXITY_MODEL")

	setDuration(&cfg.Fetch.Timeout, "AXIOM_FETCH_TIMEOUT")
	setBool(&cfg.Browser.Enabled, "AXIOM_BROWSER_ENABLED")
	setStr(&cfg.Browser.ExecPath, "AXIOM_BROWSER_EXEC_PATH")
	setDuration(&cfg.Browser.Timeout, "AXIOM_BROWSER_TIMEOUT")

	setStringSlice(&cfg.Research.Primaries, "AXIOM_RESEARCH_PRIMARIES")
	setStr(&cfg.Research.Fallback, "AXIOM_RESEARCH_FALLBACK")
	setInt(&cfg.Research.MinObservations, "AXIOM_RESEARCH_MIN_OBSERVATIONS")
	setDuration(&cfg.Research.RequestBudget, "AXIOM_RESEARCH_REQUEST_BUDGET")
	setDuration(&cfg.Research.ScrapeBudget, "AXIOM_RESEARCH_SCRAPE_BUDGET")

	setBool(&cfg.Archive.Enabled, "AXIOM_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "AXIOM_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "AXIOM_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "AXIOM_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "AXIOM_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "AXIOM_ARCHIVE_SECRET_KEY")

	setBool(&cfg.Refresh.Enabled, "AXIOM_REFRESH_ENABLED")
	setStr(&cfg.Refresh.Schedule, "AXIOM_REFRESH_SCHEDULE")
	setDuration(&cfg.Refresh.MaxAge, "AXIOM_REFRESH_MAX_AGE")
}

// Each helper only mutates dst when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
