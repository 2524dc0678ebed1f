// Package llm holds the text-generation providers the price sources call.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotConfigured = errors.New("provider not configured")
	ErrRateLimited   = errors.New("provider rate limited")
	ErrEmptyResponse = errors.New("provider returned no text")
)

// Request is a single prompt.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider to constrain output to JSON when it supports it.
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Response is the provider's text plus any retrieval citations.
type Response struct {
	Text      string
	Citations []string
}

// Generator produces text for a prompt.
type Generator interface {
	Name() string
	// Retrieval reports whether the provider grounds answers in live search.
	Retrieval() bool
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config holds credentials and endpoints for one provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}
