// Package fetch retrieves marketplace pages for price extraction.
package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/guarzo/axiom/internal/ratelimit"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 4 << 20
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var ErrBadStatus = errors.New("unexpected HTTP status")

// Page is a retrieved document.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// Fetcher retrieves a URL. Implementations apply their own per-call timeout.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Config controls the HTTP fetcher.
type Config struct {
	Timeout      time.Duration
	UserAgents   []string
	UseRandomUA  bool
	MaxBodyBytes int64
}

// HTTPFetcher fetches pages with browser-like headers and decodes
// gzip, deflate and brotli bodies.
type HTTPFetcher struct {
	config Config
	client *http.Client
	limits *ratelimit.Registry
}

// NewHTTPFetcher creates a fetcher. limits may be nil.
func NewHTTPFetcher(config Config, limits *ratelimit.Registry) *HTTPFetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = []string{defaultUserAgent}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &HTTPFetcher{
		config: config,
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		limits: limits,
	}
}

// Fetch retrieves rawURL within the configured timeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	if err := f.limits.Wait(ctx, ProviderForHost(u.Host)); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	f.setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBadStatus, u.Host, resp.StatusCode)
	}

	reader, err := decodedBody(resp)
	if err != nil {
		return nil, fmt.Errorf("decoding %s body: %w", u.Host, err)
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", u.Host, err)
	}

	return &Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

func (f *HTTPFetcher) setBrowserHeaders(req *http.Request) {
	userAgent := f.config.UserAgents[0]
	if f.config.UseRandomUA && len(f.config.UserAgents) > 1 {
		userAgent = f.config.UserAgents[rand.Intn(len(f.config.UserAgents))]
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Referer", "https://www.google.com/")
}

// decodedBody wraps the response body according to Content-Encoding.
// Unknown encodings fall back to the raw body.
func decodedBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// ProviderForHost maps a host to its rate limit bucket.
func ProviderForHost(host string) string {
	host = strings.ToLower(host)
	switch {
	case strings.HasSuffix(host, "gunbroker.com"):
		return ratelimit.GunBroker
	case strings.Contains(host, "ebay."):
		return ratelimit.EBay
	default:
		return ratelimit.Manual
	}
}
