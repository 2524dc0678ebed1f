package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/axiom/internal/model"
)

// TestDataFactory generates auction records for tests. The same seed
// yields the same sequence.
type TestDataFactory struct {
	rand *rand.Rand
}

// NewTestDataFactory seeds from the clock when seed is zero.
func NewTestDataFactory(seed int64) *TestDataFactory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TestDataFactory{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// ID returns a random UUID drawn from the factory's source.
func (f *TestDataFactory) ID() string {
	var b [16]byte
	f.rand.Read(b[:])
	id, _ := uuid.FromBytes(b[:])
	// stamp version 4 / RFC 4122 variant so uuid.Parse accepts it as such
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}

// ItemName picks a plausible lot description.
func (f *TestDataFactory) ItemName() string {
	names := []string{"Marlin 783", "Leupold VX-3HD 4.5-14x40", "Ruger 10/22 Carbine", "Winchester Model 94", "Vortex Crossfire II"}
	return names[f.rand.Intn(len(names))]
}

// Price returns a whole-dollar price between 50 and 2000.
func (f *TestDataFactory) Price() float64 {
	return float64(f.rand.Intn(1951) + 50)
}

// Prices returns n prices.
func (f *TestDataFactory) Prices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f.Price()
	}
	return out
}

// Auction returns an active auction with typical premium and tax.
func (f *TestDataFactory) Auction() model.Auction {
	return model.Auction{
		ID:           f.ID(),
		Name:         fmt.Sprintf("Test Auction %d", f.rand.Intn(1000)),
		BuyerPremium: 0.18,
		StateTax:     0.07,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

// FeeConfig returns a resale platform fee config.
func (f *TestDataFactory) FeeConfig(isDefault bool) model.FeeConfig {
	platforms := []string{"GunBroker", "eBay", "Local"}
	return model.FeeConfig{
		ID:           f.ID(),
		PlatformName: platforms[f.rand.Intn(len(platforms))],
		PlatformFee:  0.13,
		ShippingCost: 15,
		IsDefault:    isDefault,
		CreatedAt:    time.Now().UTC(),
	}
}

// Item returns a pending item in auctionID with a market value set.
func (f *TestDataFactory) Item(auctionID string) model.Item {
	return model.Item{
		ID:              f.ID(),
		AuctionID:       auctionID,
		LotNumber:       fmt.Sprintf("%d", f.rand.Intn(500)+1),
		Name:            f.ItemName(),
		BaseMarketValue: f.Price(),
		Status:          model.ItemPending,
		Overrides:       map[model.Condition]float64{},
		CreatedAt:       time.Now().UTC(),
	}
}
