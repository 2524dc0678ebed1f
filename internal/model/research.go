package model

import "time"

// SourceResult is what a single price source produced for one request.
type SourceResult struct {
	SourceName   string    `json:"source_name"`
	Strategy     string    `json:"strategy"`
	Observations []float64 `json:"observations"`
	Succeeded    bool      `json:"succeeded"`
	// Contributors names the marketplaces inside a multi-marketplace response
	// that yielded at least one observation.
	Contributors []string `json:"contributors,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	Err          string   `json:"error,omitempty"`
}

// AggregateEstimate is the reduced view of all observations for an item.
type AggregateEstimate struct {
	Average             float64  `json:"average"`
	Low                 float64  `json:"low"`
	High                float64  `json:"high"`
	SampleCount         int      `json:"sample_count"`
	ContributingSources []string `json:"contributing_sources"`
}

// ScrapeAudit is the provenance written back to the item after a
// successful research or scrape. It is never read back for computation.
type ScrapeAudit struct {
	ItemID     string
	SourceURL1 string
	SourceURL2 string
	RawPrices  []float64
	ScrapedAt  time.Time
	Status     ScrapeStatus
	PriceLow   float64
	PriceHigh  float64
	// Strategy tags which extraction generation produced RawPrices.
	Strategy string
}
