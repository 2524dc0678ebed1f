package model

import "time"

// Condition is the physical condition grade used to scale the NIB market value.
type Condition string

const (
	ConditionNIB       Condition = "NIB"
	ConditionExcellent Condition = "Excellent"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// Conditions lists every condition in display order. Bid sheets are always
// produced in this order.
var Conditions = []Condition{ConditionNIB, ConditionExcellent, ConditionFair, ConditionPoor}

type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemTarget  ItemStatus = "target"
	ItemWatch   ItemStatus = "watch"
	ItemPass    ItemStatus = "pass"
	ItemWon     ItemStatus = "won"
	ItemLost    ItemStatus = "lost"
)

// ScrapeStatus records how an item's market value was last obtained.
type ScrapeStatus string

const (
	ScrapeManual  ScrapeStatus = "manual"
	ScrapeSuccess ScrapeStatus = "success"
	ScrapePartial ScrapeStatus = "partial"
	ScrapeFailed  ScrapeStatus = "failed"
)

// Auction holds the buyer-side overhead shared by every lot in a sale.
type Auction struct {
	ID           string
	Name         string
	AuctionDate  *time.Time
	Location     string
	BuyerPremium float64 // fraction, 0.18 = 18%
	StateTax     float64 // fraction
	IsActive     bool
	CreatedAt    time.Time
}

// FeeConfig describes the resale platform costs.
type FeeConfig struct {
	ID           string
	PlatformName string
	PlatformFee  float64 // fraction of sale price
	ShippingCost float64
	IsDefault    bool
	CreatedAt    time.Time
}

// Item is one auction lot. The record is owned by the store; the pricing
// core reads it and writes back market data and audit fields only.
type Item struct {
	ID               string
	AuctionID        string
	LotNumber        string
	Name             string
	Description      string
	Category         string
	BaseMarketValue  float64
	EnhancementValue float64
	FeeConfigID      *string
	Status           ItemStatus
	Notes            string
	PriceLow         *float64
	PriceHigh        *float64

	// Overrides replace the condition percentage entirely for a condition.
	Overrides map[Condition]float64

	SourceURL1       string
	SourceURL2       string
	RawScrapedPrices []float64
	ScrapedAt        *time.Time
	ScrapeStatus     ScrapeStatus
	CreatedAt        time.Time
}

// Settings are the operator-wide bid parameters.
type Settings struct {
	DesiredProfit     float64
	ConditionPercents map[Condition]float64
}

// DefaultSettings mirrors the seeded settings rows.
func DefaultSettings() Settings {
	return Settings{
		DesiredProfit: 50,
		ConditionPercents: map[Condition]float64{
			ConditionNIB:       1.00,
			ConditionExcellent: 0.80,
			ConditionFair:      0.60,
			ConditionPoor:      0.40,
		},
	}
}
