package bid

import (
	"context"
	"errors"
	"fmt"

	"github.com/guarzo/axiom/internal/model"
)

// ErrNoFeeConfig means the item has no fee config and none is marked default.
var ErrNoFeeConfig = errors.New("no fee config for item and no default")

// FeeRecords reads the records a fee chain is assembled from.
type FeeRecords interface {
	Auction(ctx context.Context, id string) (model.Auction, error)
	FeeConfig(ctx context.Context, id string) (model.FeeConfig, error)
	// DefaultFeeConfig reports found=false when no row is marked default.
	DefaultFeeConfig(ctx context.Context) (cfg model.FeeConfig, found bool, err error)
}

// Resolver builds the FeeChain for an item.
type Resolver struct {
	records FeeRecords
}

func NewResolver(records FeeRecords) *Resolver {
	return &Resolver{records: records}
}

// Resolve takes platform fee and shipping from the item's fee config (or
// the default one) and buyer's premium and tax from its auction.
func (r *Resolver) Resolve(ctx context.Context, item model.Item) (model.FeeChain, error) {
	auction, err := r.records.Auction(ctx, item.AuctionID)
	if err != nil {
		return model.FeeChain{}, fmt.Errorf("loading auction %s: %w", item.AuctionID, err)
	}

	var fc model.FeeConfig
	if item.FeeConfigID != nil && *item.FeeConfigID != "" {
		fc, err = r.records.FeeConfig(ctx, *item.FeeConfigID)
		if err != nil {
			return model.FeeChain{}, fmt.Errorf("loading fee config %s: %w", *item.FeeConfigID, err)
		}
	} else {
		var found bool
		fc, found, err = r.records.DefaultFeeConfig(ctx)
		if err != nil {
			return model.FeeChain{}, fmt.Errorf("loading default fee config: %w", err)
		}
		if !found {
			return model.FeeChain{}, ErrNoFeeConfig
		}
	}

	return model.FeeChain{
		PlatformFeePct:  fc.PlatformFee,
		ShippingCost:    fc.ShippingCost,
		BuyerPremiumPct: auction.BuyerPremium,
		StateTaxPct:     auction.StateTax,
		PlatformName:    fc.PlatformName,
	}, nil
}
