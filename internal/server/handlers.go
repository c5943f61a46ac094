package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/reotam5/stock-visualizer/internal/charts"
	"github.com/reotam5/stock-visualizer/internal/market"
	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

const (
	defaultGrowthDays   = 30
	defaultGrowthAmount = 10000
	defaultHeatmapDays  = 1
)

// marketAPI is the provider surface exposed straight through the HTTP layer.
type marketAPI interface {
	Search(ctx context.Context, query string) []portfolio.Asset
	Quote(ctx context.Context, symbol string) (portfolio.Asset, error)
}

// portfolioStore is the persisted allocation set and credential.
type portfolioStore interface {
	AddEntry(asset portfolio.Asset, allocation float64) error
	UpdateAllocation(symbol string, allocation float64) error
	RemoveEntry(symbol string) error
	Clear() error
	Entries() ([]portfolio.AllocationEntry, error)
	SetToken(token string) error
}

// Handlers serves the portfolio API.
type Handlers struct {
	store   portfolioStore
	market  marketAPI
	session *portfolio.Session
	log     zerolog.Logger
}

// NewHandlers creates the API handler set.
func NewHandlers(store portfolioStore, m marketAPI, session *portfolio.Session, log zerolog.Logger) *Handlers {
	return &Handlers{
		store:   store,
		market:  m,
		session: session,
		log:     log.With().Str("handler", "api").Logger(),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// HandleSearch returns asset candidates for ?q=. Always 200; an empty list
// is a valid answer, never an error.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeJSON(w, http.StatusOK, []portfolio.Asset{})
		return
	}
	results := h.market.Search(r.Context(), query)
	if results == nil {
		results = []portfolio.Asset{}
	}
	h.writeJSON(w, http.StatusOK, results)
}

// HandleQuote returns the current quote for a symbol. Unlike the chart
// endpoints this one surfaces provider failures, mapped onto HTTP statuses,
// so the UI can decide its messaging.
func (h *Handlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	asset, err := h.market.Quote(r.Context(), symbol)
	if err != nil {
		var notFound *market.NotFoundError
		var quota *market.QuotaError
		switch {
		case errors.Is(err, market.ErrNoToken):
			h.writeError(w, http.StatusUnauthorized, "no api token configured")
		case errors.As(err, &notFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &quota):
			h.writeError(w, http.StatusForbidden, err.Error())
		default:
			h.writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// HandleListPortfolio returns the allocation set in insertion order.
func (h *Handlers) HandleListPortfolio(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Entries()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []portfolio.AllocationEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

type addEntryRequest struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Allocation float64 `json:"allocation"`
}

// HandleAddEntry inserts an asset into the portfolio. A duplicate symbol is
// a no-op and still answers 201.
func (h *Handlers) HandleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	asset := portfolio.Asset{Symbol: req.Symbol, Name: req.Name, Price: req.Price}
	if err := h.store.AddEntry(asset, req.Allocation); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.HandleListPortfolioStatus(w, r, http.StatusCreated)
}

type updateAllocationRequest struct {
	Allocation float64 `json:"allocation"`
}

// HandleUpdateAllocation sets the allocation percentage for a held symbol.
func (h *Handlers) HandleUpdateAllocation(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	var req updateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.UpdateAllocation(symbol, req.Allocation); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.HandleListPortfolio(w, r)
}

// HandleRemoveEntry deletes a symbol from the portfolio.
func (h *Handlers) HandleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveEntry(chi.URLParam(r, "symbol")); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.HandleListPortfolio(w, r)
}

// HandleClearPortfolio removes every entry.
func (h *Handlers) HandleClearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPortfolioStatus is HandleListPortfolio with a custom status code.
func (h *Handlers) HandleListPortfolioStatus(w http.ResponseWriter, _ *http.Request, status int) {
	entries, err := h.store.Entries()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []portfolio.AllocationEntry{}
	}
	h.writeJSON(w, status, entries)
}

type setTokenRequest struct {
	Token string `json:"token"`
}

// HandleSetToken saves the runtime API token.
func (h *Handlers) HandleSetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.SetToken(strings.TrimSpace(req.Token)); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (h *Handlers) growthRequest(r *http.Request) (portfolio.GrowthRequest, error) {
	entries, err := h.store.Entries()
	if err != nil {
		return portfolio.GrowthRequest{}, err
	}
	return portfolio.GrowthRequest{
		Entries:       entries,
		WindowDays:    queryInt(r, "days", defaultGrowthDays),
		InitialAmount: queryFloat(r, "amount", defaultGrowthAmount),
	}, nil
}

// HandleGrowth runs the growth simulation for the current allocation set and
// ?days=&amount= and returns the chart payload with its state. A request
// supersedes any still-running one; the response always reflects the most
// recently requested inputs.
func (h *Handlers) HandleGrowth(w http.ResponseWriter, r *http.Request) {
	req, err := h.growthRequest(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	view := h.session.Growth(r.Context(), req)
	h.writeJSON(w, http.StatusOK, view)
}

// HandleGrowthChart renders the growth simulation as a PNG. Rendered images
// are cached for a minute per (portfolio, window, amount) fingerprint.
func (h *Handlers) HandleGrowthChart(w http.ResponseWriter, r *http.Request) {
	req, err := h.growthRequest(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var fp strings.Builder
	for _, e := range req.Entries {
		fmt.Fprintf(&fp, "%s:%g|", e.Asset.Symbol, e.Allocation)
	}
	cacheKey := fmt.Sprintf("growth|%d|%g|%s", req.WindowDays, req.InitialAmount, fp.String())
	if img, ok := charts.CacheGet(cacheKey); ok {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
		return
	}

	view := h.session.Growth(r.Context(), req)
	if view.State != portfolio.StateReady || len(view.Points) == 0 {
		h.writeError(w, http.StatusNotFound, "no data to chart (state: "+view.State.String()+")")
		return
	}
	img, err := charts.RenderGrowthChart(view.Points, req.WindowDays)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	charts.CacheSet(cacheKey, img)
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

// HandleHeatmap computes per-asset change over ?days= for every asset with a
// positive allocation.
func (h *Handlers) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.Entries()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	view := h.session.Heatmap(r.Context(), portfolio.HeatmapRequest{
		Entries:    entries,
		WindowDays: queryInt(r, "days", defaultHeatmapDays),
	})
	h.writeJSON(w, http.StatusOK, view)
}
