package postgres

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/testutil"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{"explicit", ClientConfig{DSN: "postgres://u:p@db/axiom"}, "postgres://u:p@db/axiom"},
		{"assembled", ClientConfig{Host: "localhost", User: "axiom", Password: "pw", Database: "axiom"},
			"postgres://axiom:pw@localhost:5432/axiom?sslmode=disable"},
		{"custom port and ssl", ClientConfig{Host: "db", Port: 6543, User: "u", Password: "p", Database: "d", SSLMode: "require"},
			"postgres://u:p@db:6543/d?sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSettings(t *testing.T) {
	got := ParseSettings(map[string]string{
		"desired_profit": "75.00",
		"fair_pct":       "0.5500",
		"poor_pct":       "garbage",
		"excellent_pct":  "-1",
	})
	if got.DesiredProfit != 75 {
		t.Errorf("DesiredProfit = %v", got.DesiredProfit)
	}
	want := map[model.Condition]float64{
		model.ConditionNIB:       1.0,
		model.ConditionExcellent: 0.8,
		model.ConditionFair:      0.55,
		model.ConditionPoor:      0.4,
	}
	for c, v := range want {
		if got.ConditionPercents[c] != v {
			t.Errorf("%s = %v, want %v", c, got.ConditionPercents[c], v)
		}
	}
}

func TestParseSettings_Empty(t *testing.T) {
	got := ParseSettings(nil)
	if got.DesiredProfit != 50 || got.ConditionPercents[model.ConditionNIB] != 1.0 {
		t.Errorf("defaults not applied: %+v", got)
	}
}

func TestPrefixed(t *testing.T) {
	if got := prefixed("i.", "id, name,\n\tstatus"); got != "i.id, i.name, i.status" {
		t.Errorf("prefixed() = %q", got)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(entries))
	}
	for _, e := range entries {
		data, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
			t.Errorf("%s is missing goose annotations", e.Name())
		}
	}
}

// TestStore_Integration needs a disposable database.
func TestStore_Integration(t *testing.T) {
	dsn := testutil.GetTestDatabaseURL()
	if dsn == "" {
		t.Skip("Skipping postgres integration test: AXIOM_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := New(ctx, ClientConfig{DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Migrate(ctx, nil); err != nil {
		t.Fatal(err)
	}

	var auctionID, itemID, manualID string
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO auctions (name, buyer_premium, state_tax) VALUES ('Spring Sale', 0.18, 0.07) RETURNING id`).
		Scan(&auctionID); err != nil {
		t.Fatal(err)
	}
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO items (auction_id, name) VALUES ($1, 'Marlin 783') RETURNING id`, auctionID).
		Scan(&itemID); err != nil {
		t.Fatal(err)
	}
	if err := s.pool.QueryRow(ctx,
		`INSERT INTO items (auction_id, name) VALUES ($1, 'Ruger 10/22') RETURNING id`, auctionID).
		Scan(&manualID); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM auctions WHERE id = $1`, auctionID)
	})

	at := time.Now().Add(-72 * time.Hour).UTC().Truncate(time.Second)
	audit := model.ScrapeAudit{
		ItemID: itemID, SourceURL1: "https://gb.example", RawPrices: []float64{300, 320},
		ScrapedAt: at, Status: model.ScrapeSuccess, PriceLow: 300, PriceHigh: 320, Strategy: "direct_page",
	}
	if err := s.WriteScrapeAudit(ctx, audit); err != nil {
		t.Fatal(err)
	}
	manual := model.ScrapeAudit{
		ItemID: manualID, SourceURL1: "https://gb.example/listing/1", RawPrices: []float64{250},
		ScrapedAt: at, Status: model.ScrapeSuccess, PriceLow: 250, PriceHigh: 250, Strategy: "manual_url",
	}
	if err := s.WriteScrapeAudit(ctx, manual); err != nil {
		t.Fatal(err)
	}

	it, err := s.Item(ctx, itemID)
	if err != nil {
		t.Fatal(err)
	}
	if it.ScrapeStatus != model.ScrapeSuccess || len(it.RawScrapedPrices) != 2 || it.SourceURL2 != "" {
		t.Errorf("audit not stored: %+v", it)
	}
	if it.BaseMarketValue != 0 {
		t.Errorf("audit write must not touch market value, got %v", it.BaseMarketValue)
	}

	stale, err := s.StaleResearched(ctx, time.Now().Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	found, foundManual := false, false
	for _, st := range stale {
		found = found || st.ID == itemID
		foundManual = foundManual || st.ID == manualID
	}
	if !found {
		t.Error("expected automatically researched item to be listed as stale")
	}
	if foundManual {
		t.Error("manually scraped item must not be refreshed")
	}

	if err := s.SetMarketValue(ctx, itemID, 310); err != nil {
		t.Fatal(err)
	}

	missing := uuid.NewString()
	if _, err := s.Item(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Item(missing) err = %v, want ErrNotFound", err)
	}
	err = s.WriteScrapeAudit(ctx, model.ScrapeAudit{ItemID: missing, Status: model.ScrapeSuccess})
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("WriteScrapeAudit(missing) err = %v, want ErrPersistence", err)
	}
}
