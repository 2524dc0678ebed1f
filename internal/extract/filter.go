// Package extract turns provider text and fetched pages into price
// observations. Every strategy has a named bound so the acceptance window
// is visible at the call site.
package extract

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	ErrNoMatches     = errors.New("no price values found")
	ErrNoJSON        = errors.New("no JSON value found in response")
	ErrMalformedJSON = errors.New("malformed JSON in response")
)

// Bounds is an exclusive acceptance window for a single observation.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether Min < v < Max.
func (b Bounds) Contains(v float64) bool {
	return v > b.Min && v < b.Max
}

var (
	// EstimateBounds is tight because knowledge-only estimates are the most
	// speculative.
	EstimateBounds = Bounds{Min: 50, Max: 10000}
	// RetrievalTextBounds admits higher-value items referenced by retrieved text.
	RetrievalTextBounds = Bounds{Min: 10, Max: 100000}
	// StructuredBounds applies to typed JSON numbers from structured or
	// page-extraction responses.
	StructuredBounds = Bounds{Min: 5, Max: 100000}
)

// MaxTokenMatches caps how many accepted tokens a free-text response yields.
const MaxTokenMatches = 20

// priceToken matches integers of 2-5 digits with optional cents.
var priceToken = regexp.MustCompile(`\b(\d{2,5}(?:\.\d{2})?)\b`)

// Filter converts provider output into observations.
type Filter interface {
	Extract(text string) ([]float64, error)
}

// NumericTokenFilter pulls bare numeric tokens out of free text.
type NumericTokenFilter struct {
	Bounds Bounds
	Limit  int
}

// NewNumericTokenFilter returns a token filter capped at MaxTokenMatches.
func NewNumericTokenFilter(b Bounds) NumericTokenFilter {
	return NumericTokenFilter{Bounds: b, Limit: MaxTokenMatches}
}

// Extract returns accepted tokens in order of appearance.
func (f NumericTokenFilter) Extract(text string) ([]float64, error) {
	var out []float64
	for _, m := range priceToken.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || !f.Bounds.Contains(v) {
			continue
		}
		out = append(out, v)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMatches
	}
	return out, nil
}
