package research

import (
	"context"
	"fmt"

	"github.com/guarzo/axiom/internal/model"
)

// AuditWriter stores scrape provenance on an item.
type AuditWriter interface {
	WriteScrapeAudit(ctx context.Context, audit model.ScrapeAudit) error
}

// Persist is the single write-back step after aggregation. It only writes
// successful results; its error never invalidates the estimate already
// computed.
func Persist(ctx context.Context, w AuditWriter, audit model.ScrapeAudit) error {
	switch audit.Status {
	case model.ScrapeSuccess, model.ScrapePartial:
	default:
		return nil
	}
	if err := w.WriteScrapeAudit(ctx, audit); err != nil {
		return fmt.Errorf("persisting audit for item %s: %w", audit.ItemID, err)
	}
	return nil
}
