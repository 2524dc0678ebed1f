package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guarzo/axiom/internal/model"
)

const itemColumns = `id, auction_id, lot_number, name, description, category,
	base_market_value, enhancement_value, fee_config_id, status, notes,
	price_low, price_high, source_url_1, source_url_2, raw_scraped_prices,
	scraped_at, scrape_status, created_at`

func scanItem(row pgx.Row) (model.Item, error) {
	var (
		it                                model.Item
		lot, desc, cat, notes, url1, url2 *string
		status, scrapeStatus              string
	)
	err := row.Scan(&it.ID, &it.AuctionID, &lot, &it.Name, &desc, &cat,
		&it.BaseMarketValue, &it.EnhancementValue, &it.FeeConfigID, &status, &notes,
		&it.PriceLow, &it.PriceHigh, &url1, &url2, &it.RawScrapedPrices,
		&it.ScrapedAt, &scrapeStatus, &it.CreatedAt)
	if err != nil {
		return model.Item{}, err
	}
	it.LotNumber = deref(lot)
	it.Description = deref(desc)
	it.Category = deref(cat)
	it.Notes = deref(notes)
	it.SourceURL1 = deref(url1)
	it.SourceURL2 = deref(url2)
	it.Status = model.ItemStatus(status)
	it.ScrapeStatus = model.ScrapeStatus(scrapeStatus)
	return it, nil
}

// Item loads one item with its condition overrides.
func (s *Store) Item(ctx context.Context, id string) (model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("postgres: get item %s: %w", id, err)
	}

	it.Overrides, err = s.overrides(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

func (s *Store) overrides(ctx context.Context, itemID string) (map[model.Condition]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT condition, override_value FROM item_condition_overrides WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list overrides for %s: %w", itemID, err)
	}
	defer rows.Close()

	out := make(map[model.Condition]float64)
	for rows.Next() {
		var cond string
		var v float64
		if err := rows.Scan(&cond, &v); err != nil {
			return nil, fmt.Errorf("postgres: scan override: %w", err)
		}
		out[model.Condition(cond)] = v
	}
	return out, rows.Err()
}

// WriteScrapeAudit records research provenance on an item. Market value is
// left alone; a person confirms it separately.
func (s *Store) WriteScrapeAudit(ctx context.Context, a model.ScrapeAudit) error {
	const query = `
		UPDATE items SET
			source_url_1       = NULLIF($2, ''),
			source_url_2       = NULLIF($3, ''),
			raw_scraped_prices = $4,
			scraped_at         = $5,
			scrape_status      = $6,
			price_low          = $7,
			price_high         = $8,
			scrape_strategy    = NULLIF($9, '')
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, a.ItemID, a.SourceURL1, a.SourceURL2, a.RawPrices,
		a.ScrapedAt, string(a.Status), a.PriceLow, a.PriceHigh, a.Strategy)
	if err != nil {
		return fmt.Errorf("%w: write scrape audit for %s: %w", ErrPersistence, a.ItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s: %w", ErrPersistence, a.ItemID, ErrNotFound)
	}
	return nil
}

// SetMarketValue applies a confirmed market value to an item.
func (s *Store) SetMarketValue(ctx context.Context, itemID string, value float64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE items SET base_market_value = $2 WHERE id = $1`, itemID, value)
	if err != nil {
		return fmt.Errorf("%w: set market value for %s: %w", ErrPersistence, itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

// StaleResearched lists items in active auctions whose last automated
// research finished before cutoff. Manual URL scrapes are excluded since
// their URLs came from a person.
func (s *Store) StaleResearched(ctx context.Context, cutoff time.Time, limit int) ([]model.Item, error) {
	query := `
		SELECT ` + prefixed("i.", itemColumns) + `
		FROM items i
		JOIN auctions a ON a.id = i.auction_id
		WHERE a.is_active
		  AND i.scrape_status = 'success'
		  AND i.scraped_at < $1
		  AND COALESCE(i.scrape_strategy, '') <> 'manual_url'
		ORDER BY i.scraped_at ASC
		LIMIT $2`
	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stale items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stale item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Auction loads one auction.
func (s *Store) Auction(ctx context.Context, id string) (model.Auction, error) {
	var (
		a        model.Auction
		location *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, auction_date, location, buyer_premium, state_tax, is_active, created_at
		FROM auctions WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.AuctionDate, &location, &a.BuyerPremium, &a.StateTax, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("postgres: get auction %s: %w", id, err)
	}
	a.Location = deref(location)
	return a, nil
}

const feeColumns = `id, platform_name, platform_fee, shipping_cost, is_default, created_at`

func scanFee(row pgx.Row) (model.FeeConfig, error) {
	var f model.FeeConfig
	err := row.Scan(&f.ID, &f.PlatformName, &f.PlatformFee, &f.ShippingCost, &f.IsDefault, &f.CreatedAt)
	return f, err
}

// FeeConfig loads one fee config.
func (s *Store) FeeConfig(ctx context.Context, id string) (model.FeeConfig, error) {
	f, err := scanFee(s.pool.QueryRow(ctx, `SELECT `+feeColumns+` FROM fee_configs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FeeConfig{}, fmt.Errorf("fee config %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.FeeConfig{}, fmt.Errorf("postgres: get fee config %s: %w", id, err)
	}
	return f, nil
}

// DefaultFeeConfig returns the fee config marked default, if any.
func (s *Store) DefaultFeeConfig(ctx context.Context) (model.FeeConfig, bool, error) {
	f, err := scanFee(s.pool.QueryRow(ctx, `SELECT `+feeColumns+` FROM fee_configs WHERE is_default LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FeeConfig{}, false, nil
	}
	if err != nil {
		return model.FeeConfig{}, false, fmt.Errorf("postgres: get default fee config: %w", err)
	}
	return f, true, nil
}

// Settings loads the operator settings. Missing or unparseable rows keep
// their defaults.
func (s *Store) Settings(ctx context.Context) (model.Settings, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return model.Settings{}, fmt.Errorf("postgres: list settings: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.Settings{}, fmt.Errorf("postgres: scan setting: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.Settings{}, fmt.Errorf("postgres: list settings: %w", err)
	}
	return ParseSettings(kv), nil
}

var conditionKeys = map[model.Condition]string{
	model.ConditionNIB:       "nib_pct",
	model.ConditionExcellent: "excellent_pct",
	model.ConditionFair:      "fair_pct",
	model.ConditionPoor:      "poor_pct",
}

// ParseSettings maps settings rows onto model.Settings.
func ParseSettings(kv map[string]string) model.Settings {
	out := model.DefaultSettings()
	if v, err := strconv.ParseFloat(kv["desired_profit"], 64); err == nil && v >= 0 {
		out.DesiredProfit = v
	}
	for cond, key := range conditionKeys {
		if v, err := strconv.ParseFloat(kv[key], 64); err == nil && v >= 0 {
			out.ConditionPercents[cond] = v
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
