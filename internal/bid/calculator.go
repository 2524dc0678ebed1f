// Package bid turns a market value into condition-specific target and
// break-even bids.
package bid

import (
	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/stats"
)

// Input is everything a bid sheet depends on.
type Input struct {
	MarketValue      float64
	EnhancementValue float64
	Fees             model.FeeChain
	// ConditionPercents missing a condition fall back to the defaults.
	ConditionPercents map[model.Condition]float64
	// Overrides replace marketValue*pct for a condition.
	Overrides     map[model.Condition]float64
	DesiredProfit float64
}

// Calculate returns one row per condition in NIB, Excellent, Fair, Poor
// order, or nil when there is no market value to work from. It is pure.
func Calculate(in Input) []model.BidResult {
	if in.MarketValue <= 0 {
		return nil
	}

	defaults := model.DefaultSettings().ConditionPercents
	overhead := in.Fees.OverheadMultiplier()

	rows := make([]model.BidResult, 0, len(model.Conditions))
	for _, c := range model.Conditions {
		pct, ok := in.ConditionPercents[c]
		if !ok {
			pct = defaults[c]
		}

		row := model.BidResult{Condition: c, ConditionResaleValue: in.MarketValue * pct}
		if v, ok := in.Overrides[c]; ok {
			row.ConditionResaleValue = v
			row.OverrideApplied = true
		}
		row.EffectiveResale = row.ConditionResaleValue + in.EnhancementValue
		row.NetRevenue = row.EffectiveResale*(1-in.Fees.PlatformFeePct) - in.Fees.ShippingCost
		row.BreakEvenBid = row.NetRevenue / overhead
		row.TargetBid = (row.NetRevenue - in.DesiredProfit) / overhead
		rows = append(rows, row)
	}
	return rows
}

// Rounded returns a copy of rows rounded to cents for display.
func Rounded(rows []model.BidResult) []model.BidResult {
	out := make([]model.BidResult, len(rows))
	for i, r := range rows {
		r.ConditionResaleValue = stats.Round2(r.ConditionResaleValue)
		r.EffectiveResale = stats.Round2(r.EffectiveResale)
		r.NetRevenue = stats.Round2(r.NetRevenue)
		r.TargetBid = stats.Round2(r.TargetBid)
		r.BreakEvenBid = stats.Round2(r.BreakEvenBid)
		out[i] = r
	}
	return out
}
