package model

// FeeChain is every cost between the hammer price and resale proceeds.
type FeeChain struct {
	PlatformFeePct  float64 `json:"platform_fee"`
	ShippingCost    float64 `json:"shipping_cost"`
	BuyerPremiumPct float64 `json:"buyer_premium"`
	StateTaxPct     float64 `json:"state_tax"`
	PlatformName    string  `json:"platform_name,omitempty"`
}

// OverheadMultiplier is the factor applied to a hammer price to get the
// total paid at checkout.
func (f FeeChain) OverheadMultiplier() float64 {
	return (1 + f.BuyerPremiumPct) * (1 + f.StateTaxPct)
}

// BidResult is one condition row of a bid sheet.
type BidResult struct {
	Condition            Condition `json:"condition"`
	OverrideApplied      bool      `json:"override_applied"`
	ConditionResaleValue float64   `json:"condition_resale_value"`
	EffectiveResale      float64   `json:"effective_resale"`
	NetRevenue           float64   `json:"net_revenue"`
	TargetBid            float64   `json:"target_bid"`
	BreakEvenBid         float64   `json:"break_even_bid"`
}

// NoMargin reports that fees exceed resale value at the desired profit.
func (b BidResult) NoMargin() bool { return b.TargetBid < 0 }

// NoCeiling reports that no hammer price breaks even.
func (b BidResult) NoCeiling() bool { return b.BreakEvenBid < 0 }
