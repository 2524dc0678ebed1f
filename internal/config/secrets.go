package config

// Redacted returns a copy of cfg safe to log.
func Redacted(cfg *Config) Config {
	out := *cfg
	out.Server.APIKeys = make([]string, len(cfg.Server.APIKeys))
	for i := range out.Server.APIKeys {
		out.Server.APIKeys[i] = "***"
	}
	redact(&out.Database.DSN)
	redact(&out.Database.Password)
	redact(&out.Redis.Password)
	redact(&out.Gemini.APIKey)
	redact(&out.Perplexity.APIKey)
	redact(&out.Archive.AccessKey)
	redact(&out.Archive.SecretKey)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
