// Package report renders bid sheets for spreadsheet use.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/guarzo/axiom/internal/model"
)

// Sheet is one item's bid sheet.
type Sheet struct {
	LotNumber   string
	ItemName    string
	MarketValue float64
	Rows        []model.BidResult
}

var sheetHeader = []string{
	"lot", "item", "market_value", "condition", "override",
	"resale_value", "net_revenue", "target_bid", "break_even_bid", "flag",
}

// WriteCSV writes the sheet with a header row. Text cells are escaped
// against formula injection; numeric cells are written as plain numbers.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sheetHeader); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, r := range s.Rows {
		record := []string{
			EscapeCell(s.LotNumber),
			EscapeCell(s.ItemName),
			money(s.MarketValue),
			string(r.Condition),
			strconv.FormatBool(r.OverrideApplied),
			money(r.EffectiveResale),
			money(r.NetRevenue),
			bidCell(r.TargetBid, r.NoMargin()),
			bidCell(r.BreakEvenBid, r.NoCeiling()),
			flag(r),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// bidCell leaves a bid empty when no positive bid exists; the flag column
// says why.
func bidCell(v float64, none bool) string {
	if none {
		return ""
	}
	return money(v)
}

func flag(r model.BidResult) string {
	switch {
	case r.NoCeiling():
		return "no_ceiling"
	case r.NoMargin():
		return "no_margin"
	default:
		return ""
	}
}

// EscapeCell prefixes a quote to values a spreadsheet would evaluate as a
// formula. Catalog descriptions such as "-2 mags" or "=SUM()" are common.
func EscapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
		return "'" + value
	}
	return value
}
