package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/guarzo/axiom/internal/cache"
	"github.com/guarzo/axiom/internal/config"
	"github.com/guarzo/axiom/internal/fetch"
	"github.com/guarzo/axiom/internal/llm"
	"github.com/guarzo/axiom/internal/pricesource"
)

type nopFetcher struct{}

func (nopFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Page, error) {
	return &fetch.Page{URL: rawURL}, nil
}

func sourceNames(srcs []pricesource.Source) []string {
	var names []string
	for _, s := range srcs {
		names = append(names, s.Name())
	}
	return names
}

func TestBuildSources(t *testing.T) {
	gens := generators{
		gemini:     &llm.MockGenerator{ProviderName: "Gemini"},
		perplexity: &llm.MockGenerator{ProviderName: "Perplexity", WithSearch: true},
	}

	tests := []struct {
		name         string
		cfg          config.ResearchConfig
		wantPrimary  []string
		wantFallback string
	}{
		{
			name:         "defaults",
			cfg:          config.Defaults().Research,
			wantPrimary:  []string{"GunBroker", "eBay"},
			wantFallback: "Perplexity",
		},
		{
			name:         "estimate and structured",
			cfg:          config.ResearchConfig{Primaries: []string{"estimate", "retrieval_structured", "estimate"}},
			wantPrimary:  []string{"Gemini", "Perplexity"},
			wantFallback: "",
		},
		{
			name:         "fallback only",
			cfg:          config.ResearchConfig{Fallback: "estimate"},
			wantFallback: "Gemini",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primaries, fallback, err := buildSources(tt.cfg, gens, nopFetcher{}, pricesource.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(sourceNames(primaries), ","); got != strings.Join(tt.wantPrimary, ",") {
				t.Errorf("primaries = %s, want %v", got, tt.wantPrimary)
			}
			gotFallback := ""
			if fallback != nil {
				gotFallback = fallback.Name()
			}
			if gotFallback != tt.wantFallback {
				t.Errorf("fallback = %q, want %q", gotFallback, tt.wantFallback)
			}
		})
	}
}

func TestBuildSources_Errors(t *testing.T) {
	onlyGemini := generators{gemini: &llm.MockGenerator{ProviderName: "Gemini"}}

	tests := []struct {
		name string
		cfg  config.ResearchConfig
		gens generators
	}{
		{"unknown primary", config.ResearchConfig{Primaries: []string{"telepathy"}}, onlyGemini},
		{"unknown fallback", config.ResearchConfig{Fallback: "guess"}, onlyGemini},
		{"missing provider", config.ResearchConfig{Primaries: []string{"retrieval_structured"}}, onlyGemini},
		{"missing fallback provider", config.ResearchConfig{Fallback: "retrieval_text"}, onlyGemini},
		{"nothing configured", config.ResearchConfig{}, onlyGemini},
		{"retrieval without search", config.ResearchConfig{Fallback: "retrieval_text"}, generators{
			gemini:     &llm.MockGenerator{ProviderName: "Gemini"},
			perplexity: &llm.MockGenerator{ProviderName: "Perplexity"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := buildSources(tt.cfg, tt.gens, nopFetcher{}, pricesource.Options{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCacheSources(t *testing.T) {
	store, err := cache.NewFileStore(t.TempDir() + "/cache.json")
	if err != nil {
		t.Fatal(err)
	}
	primary := &pricesource.MockSource{SourceName: "A", Observations: []float64{100}}
	fallback := &pricesource.MockSource{SourceName: "B", Observations: []float64{200}}

	primaries, fb := cacheSources([]pricesource.Source{primary}, fallback, store, time.Hour, nil)
	for i := 0; i < 2; i++ {
		primaries[0].Fetch(context.Background(), "Marlin 783")
		fb.Fetch(context.Background(), "Marlin 783")
	}
	if len(primary.Calls()) != 1 || len(fallback.Calls()) != 1 {
		t.Errorf("calls = %d/%d, want 1/1", len(primary.Calls()), len(fallback.Calls()))
	}

	_, fb = cacheSources(nil, nil, store, time.Hour, nil)
	if fb != nil {
		t.Error("nil fallback should stay nil")
	}
}

func TestOpenCache(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cache.Backend = "none"
	store, closer, err := openCache(context.Background(), &cfg)
	if err != nil || store != nil || closer != nil {
		t.Errorf("none backend = %v %v %v", store, closer != nil, err)
	}

	cfg.Cache.Backend = "file"
	cfg.Cache.Path = t.TempDir() + "/c.json"
	store, _, err = openCache(context.Background(), &cfg)
	if err != nil || store == nil {
		t.Errorf("file backend = %v %v", store, err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON output, got %q", out)
	}

	buf.Reset()
	NewLogger(&buf, "bogus", "text").Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}
