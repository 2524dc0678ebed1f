package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestGeminiClient_Generate(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("missing api key")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"285, 310"},{"text":", 275"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "test-model", Timeout: 5 * time.Second}, nil)
	resp, err := client.Generate(context.Background(), Request{Prompt: "price of a thing", JSON: true, System: "analyst"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "285, 310, 275" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("JSON request should set response mime type")
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "analyst" {
		t.Errorf("system instruction not sent")
	}
	if client.Retrieval() {
		t.Error("gemini client has no retrieval")
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate_limited", http.StatusTooManyRequests, `{}`, ErrRateLimited},
		{"no_candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
		{"empty_parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewGeminiClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
			_, err := client.Generate(context.Background(), Request{Prompt: "x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	_, err := NewGeminiClient(Config{}, nil).Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPerplexityClient_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer pk" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Sold for 350 and 400"}}],"citations":["https://www.gunbroker.com/item/1"]}`))
	}))
	defer server.Close()

	client := NewPerplexityClient(Config{APIKey: "pk", BaseURL: server.URL}, nil)
	resp, err := client.Generate(context.Background(), Request{System: "sys", Prompt: "find prices"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Sold for 350 and 400" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if !reflect.DeepEqual(resp.Citations, []string{"https://www.gunbroker.com/item/1"}) {
		t.Errorf("unexpected citations %v", resp.Citations)
	}
	if got.Model != defaultPerplexityModel || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("unexpected request %+v", got)
	}
	if !client.Retrieval() {
		t.Error("perplexity client is retrieval-augmented")
	}
}

func TestPerplexityClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewPerplexityClient(Config{APIKey: "pk", BaseURL: server.URL}, nil).Generate(context.Background(), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestMockGenerator_RecordsRequests(t *testing.T) {
	m := &MockGenerator{Text: "300"}
	_, _ = m.Generate(context.Background(), Request{Prompt: "a"})
	_, _ = m.Generate(context.Background(), Request{Prompt: "b"})
	if n := len(m.Requests()); n != 2 {
		t.Errorf("expected 2 recorded requests, got %d", n)
	}
}
