package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/guarzo/axiom/internal/ratelimit"
)

const (
	defaultPerplexityURL   = "https://api.perplexity.ai"
	defaultPerplexityModel = "sonar"
)

// PerplexityClient calls a search-grounded chat completion endpoint.
type PerplexityClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	limits  *ratelimit.Registry
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// NewPerplexityClient creates a retrieval-augmented client.
func NewPerplexityClient(cfg Config, limits *ratelimit.Registry) *PerplexityClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPerplexityURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultPerplexityModel
	}
	return &PerplexityClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: cfg.Timeout},
		limits:  limits,
	}
}

func (p *PerplexityClient) Name() string    { return "Perplexity" }
func (p *PerplexityClient) Retrieval() bool { return true }

// Generate runs one search-grounded completion. JSON is requested through
// the prompt; the caller extracts the value from the text.
func (p *PerplexityClient) Generate(ctx context.Context, req Request) (Response, error) {
	if p.apiKey == "" {
		return Response{}, fmt.Errorf("perplexity: %w", ErrNotConfigured)
	}
	if err := p.limits.Wait(ctx, ratelimit.Perplexity); err != nil {
		return Response{}, err
	}

	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("perplexity: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("perplexity: creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("perplexity: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, fmt.Errorf("perplexity: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("perplexity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("perplexity: parsing response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return Response{}, fmt.Errorf("perplexity: %w", ErrEmptyResponse)
	}
	return Response{Text: out.Choices[0].Message.Content, Citations: out.Citations}, nil
}
