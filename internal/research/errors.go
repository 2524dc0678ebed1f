package research

import (
	"errors"

	"github.com/guarzo/axiom/internal/pricesource"
)

var (
	// ErrSourceUnavailable and ErrExtraction are recovered inside a source
	// and only ever appear in a SourceResult's diagnostic text.
	ErrSourceUnavailable = pricesource.ErrSourceUnavailable
	ErrExtraction        = pricesource.ErrExtraction

	// ErrInsufficientData means no source produced a single observation.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrPrimaryFetch means the required URL of a manual scrape could not
	// be retrieved.
	ErrPrimaryFetch = errors.New("primary url fetch failed")
)
