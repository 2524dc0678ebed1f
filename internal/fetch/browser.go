package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/guarzo/axiom/internal/ratelimit"
)

// MaxBrowserTimeout caps a rendered fetch at a plain fetch's timeout plus
// time for scripts to settle.
const MaxBrowserTimeout = DefaultTimeout + 2*time.Second

// BrowserConfig controls the headless browser fetcher.
type BrowserConfig struct {
	ExecPath  string
	UserAgent string
	Timeout   time.Duration
	// Settle is how long to wait after load for client-side rendering.
	Settle time.Duration
}

// BrowserFetcher renders pages in headless Chrome. Some marketplaces only
// render sold listings client-side, so a plain GET sees an empty shell.
type BrowserFetcher struct {
	config BrowserConfig
	limits *ratelimit.Registry
	logger *slog.Logger
}

// NewBrowserFetcher creates a fetcher that launches Chrome per request. It
// shares the per-host limits with the HTTP fetcher; limits may be nil.
func NewBrowserFetcher(config BrowserConfig, limits *ratelimit.Registry, logger *slog.Logger) *BrowserFetcher {
	if config.Timeout <= 0 || config.Timeout > MaxBrowserTimeout {
		config.Timeout = MaxBrowserTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserFetcher{config: config, limits: limits, logger: logger}
}

// Fetch navigates to rawURL and returns the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	if err := b.limits.Wait(ctx, ProviderForHost(u.Host)); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.config.UserAgent),
	)
	if b.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.config.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
	}
	if b.config.Settle > 0 {
		actions = append(actions, chromedp.Sleep(b.config.Settle))
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", rawURL, err)
	}
	b.logger.Debug("BrowserFetcher: rendered page", "url", rawURL, "bytes", len(html))

	return &Page{
		URL:         rawURL,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(html),
		FetchedAt:   time.Now(),
	}, nil
}
