package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guarzo/axiom/internal/bid"
	"github.com/guarzo/axiom/internal/model"
	"github.com/guarzo/axiom/internal/report"
	"github.com/guarzo/axiom/internal/research"
)

type handler struct {
	deps           Deps
	logger         *slog.Logger
	persistTimeout time.Duration
}

type autoResearchRequest struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
}

type researchResponse struct {
	Prices       []float64 `json:"prices"`
	Average      float64   `json:"average"`
	Low          float64   `json:"low"`
	High         float64   `json:"high"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	PersistError string    `json:"persist_error,omitempty"`
}

func (h *handler) autoResearch(w http.ResponseWriter, r *http.Request) {
	var req autoResearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemID == "" || req.ItemName == "" {
		writeError(w, http.StatusBadRequest, "item_id and item_name are required")
		return
	}
	if _, ok := h.loadItem(w, r, req.ItemID); !ok {
		return
	}

	out := h.deps.Researcher.Research(r.Context(), req.ItemName)
	resp := researchResponse{
		Prices:  out.Prices,
		Average: out.Estimate.Average,
		Low:     out.Estimate.Low,
		High:    out.Estimate.High,
		Source:  out.Source,
		Status:  string(out.Status),
		Error:   out.Message,
	}
	if out.Succeeded() {
		resp.PersistError = h.persist(r.Context(), out.Audit(req.ItemID))
	}
	writeJSON(w, http.StatusOK, resp)
}

type scrapeRequest struct {
	ItemID string `json:"item_id"`
	URL1   string `json:"url1"`
	URL2   string `json:"url2"`
}

type scrapeResponse struct {
	Prices       []float64 `json:"prices"`
	Average      float64   `json:"average"`
	Low          float64   `json:"low"`
	High         float64   `json:"high"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	URLsScraped  int       `json:"urls_scraped"`
	Snapshots    []string  `json:"snapshots,omitempty"`
	PersistError string    `json:"persist_error,omitempty"`
}

func (h *handler) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.URL1, req.URL2 = strings.TrimSpace(req.URL1), strings.TrimSpace(req.URL2)
	if req.ItemID == "" || req.URL1 == "" {
		writeError(w, http.StatusBadRequest, "item_id and url1 are required")
		return
	}
	for _, u := range []string{req.URL1, req.URL2} {
		if u != "" && !validListingURL(u) {
			writeError(w, http.StatusBadRequest, "urls must be absolute http(s) URLs")
			return
		}
	}
	item, ok := h.loadItem(w, r, req.ItemID)
	if !ok {
		return
	}

	out := h.deps.Scraper.Scrape(r.Context(), research.ScrapeRequest{
		ItemID:   item.ID,
		ItemName: item.Name,
		URL1:     req.URL1,
		URL2:     req.URL2,
	})
	resp := scrapeResponse{
		Prices:      out.Prices,
		Average:     out.Estimate.Average,
		Low:         out.Estimate.Low,
		High:        out.Estimate.High,
		Status:      string(out.Status),
		Error:       out.Message,
		URLsScraped: out.URLsScraped,
		Snapshots:   out.Snapshots,
	}
	if out.Succeeded() {
		resp.PersistError = h.persist(r.Context(), out.Audit(item.ID))
	}
	writeJSON(w, http.StatusOK, resp)
}

type marketValueRequest struct {
	Value *float64 `json:"value"`
}

func (h *handler) setMarketValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var req marketValueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil || *req.Value < 0 {
		writeError(w, http.StatusBadRequest, "value must be a non-negative number")
		return
	}

	if err := h.deps.Store.SetMarketValue(r.Context(), id, *req.Value); err != nil {
		if h.isNotFound(err) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("Server: set market value failed", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update market value")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_id": id, "base_market_value": *req.Value})
}

type bidRow struct {
	model.BidResult
	NoMargin  bool `json:"no_margin"`
	NoCeiling bool `json:"no_ceiling"`
}

type bidsResponse struct {
	ItemID        string         `json:"item_id"`
	Status        string         `json:"status"`
	MarketValue   float64        `json:"market_value"`
	Enhancement   float64        `json:"enhancement_value"`
	DesiredProfit float64        `json:"desired_profit"`
	Fees          model.FeeChain `json:"fees"`
	Bids          []bidRow       `json:"bids"`
}

func (h *handler) bids(w http.ResponseWriter, r *http.Request) {
	resp, _, ok := h.bidSheet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) bidsCSV(w http.ResponseWriter, r *http.Request) {
	resp, item, ok := h.bidSheet(w, r)
	if !ok {
		return
	}
	sheet := report.Sheet{LotNumber: item.LotNumber, ItemName: item.Name, MarketValue: item.BaseMarketValue}
	for _, row := range resp.Bids {
		sheet.Rows = append(sheet.Rows, row.BidResult)
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, sheet); err != nil {
		h.logger.Error("Server: render bid sheet failed", "item_id", item.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render bid sheet")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "bids-"+item.ID+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// bidSheet loads the item, its settings and fees and computes the rounded
// rows. On failure the error response has already been written.
func (h *handler) bidSheet(w http.ResponseWriter, r *http.Request) (bidsResponse, model.Item, bool) {
	item, ok := h.loadItem(w, r, chi.URLParam(r, "id"))
	if !ok {
		return bidsResponse{}, item, false
	}
	resp := bidsResponse{
		ItemID:      item.ID,
		Status:      "no_data",
		MarketValue: item.BaseMarketValue,
		Enhancement: item.EnhancementValue,
		Bids:        []bidRow{},
	}
	if item.BaseMarketValue <= 0 {
		return resp, item, true
	}

	settings, err := h.deps.Store.Settings(r.Context())
	if err != nil {
		h.logger.Error("Server: load settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return resp, item, false
	}
	fees, err := h.deps.Fees.Resolve(r.Context(), item)
	if err != nil {
		if errors.Is(err, bid.ErrNoFeeConfig) {
			writeError(w, http.StatusUnprocessableEntity, "no fee config assigned and no default fee config")
			return resp, item, false
		}
		h.logger.Error("Server: resolve fees failed", "item_id", item.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve fees")
		return resp, item, false
	}

	rows := bid.Rounded(bid.Calculate(bid.Input{
		MarketValue:       item.BaseMarketValue,
		EnhancementValue:  item.EnhancementValue,
		Fees:              fees,
		ConditionPercents: settings.ConditionPercents,
		Overrides:         item.Overrides,
		DesiredProfit:     settings.DesiredProfit,
	}))
	resp.Status = "ok"
	resp.DesiredProfit = settings.DesiredProfit
	resp.Fees = fees
	for _, row := range rows {
		resp.Bids = append(resp.Bids, bidRow{BidResult: row, NoMargin: row.NoMargin(), NoCeiling: row.NoCeiling()})
	}
	return resp, item, true
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.Health(ctx); err != nil {
			h.logger.Warn("Server: health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// persist writes the audit detached from the request so a client hanging
// up does not lose a computed result. The returned text is empty on
// success.
func (h *handler) persist(ctx context.Context, audit model.ScrapeAudit) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.persistTimeout)
	defer cancel()
	if err := research.Persist(ctx, h.deps.Store, audit); err != nil {
		h.logger.Error("Server: persist failed", "request_id", requestID(ctx), "item_id", audit.ItemID, "error", err)
		return "failed to save results"
	}
	return ""
}

func (h *handler) loadItem(w http.ResponseWriter, r *http.Request, id string) (model.Item, bool) {
	if !validID(w, id) {
		return model.Item{}, false
	}
	item, err := h.deps.Store.Item(r.Context(), id)
	if err != nil {
		if h.isNotFound(err) {
			writeError(w, http.StatusNotFound, "item not found")
			return model.Item{}, false
		}
		h.logger.Error("Server: load item failed", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return model.Item{}, false
	}
	return item, true
}

func (h *handler) isNotFound(err error) bool {
	return h.deps.NotFound != nil && errors.Is(err, h.deps.NotFound)
}

func validID(w http.ResponseWriter, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "item_id must be a UUID")
		return false
	}
	return true
}

func validListingURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
