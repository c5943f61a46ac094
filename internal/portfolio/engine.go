// Package portfolio holds the valuation engine: it turns an allocation set
// and a look-back window into a simulated portfolio value series and into
// per-asset change figures for the heatmap.
package portfolio

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// MarketData is the slice of the market-data provider the engine depends on.
type MarketData interface {
	// Configured reports whether a provider credential is available.
	Configured() bool
	// History returns the price series for a symbol over the window. A nil
	// or empty series with any error means "no usable data"; the engine
	// never propagates the failure.
	History(ctx context.Context, symbol string, windowDays int) (Series, error)
	// ChangeOverWindow returns the percentage change for a symbol over the
	// window, 0 on failure.
	ChangeOverWindow(ctx context.Context, symbol string, windowDays int) (float64, error)
}

// Engine computes portfolio valuations from allocations and market data.
// It holds no mutable state; every input travels in the request.
type Engine struct {
	provider MarketData
	log      zerolog.Logger
}

// NewEngine creates a valuation engine on top of a market-data provider.
func NewEngine(provider MarketData, log zerolog.Logger) *Engine {
	return &Engine{
		provider: provider,
		log:      log.With().Str("component", "valuation").Logger(),
	}
}

// GrowthRequest is a snapshot of the inputs to one growth simulation.
type GrowthRequest struct {
	Entries       []AllocationEntry
	WindowDays    int
	InitialAmount float64
}

// HeatmapRequest is a snapshot of the inputs to one heatmap computation.
type HeatmapRequest struct {
	Entries    []AllocationEntry
	WindowDays int
}

// SimulateGrowth simulates investing InitialAmount across the allocation set
// at the start of the window and holding it: shares per asset are fixed once
// from the asset's own first price (no rebalancing), and the total value is
// accumulated per date on the canonical axis, rounded to whole currency
// units.
//
// It never fails: empty entries resolve to StateEmpty, a missing credential
// to StateUnconfigured, and per-asset fetch failures degrade that asset to an
// empty series.
func (e *Engine) SimulateGrowth(ctx context.Context, req GrowthRequest) (ValueSeries, State) {
	if len(req.Entries) == 0 {
		return nil, StateEmpty
	}
	if !e.provider.Configured() {
		return nil, StateUnconfigured
	}

	// Histories are fetched one at a time, in entry order. The first fetched
	// series becomes the canonical axis, so ordering matters.
	fetched := make([]SymbolSeries, 0, len(req.Entries))
	startPrices := make(map[string]float64, len(req.Entries))
	for _, entry := range req.Entries {
		if entry.Allocation <= 0 {
			continue
		}
		series, err := e.provider.History(ctx, entry.Asset.Symbol, req.WindowDays)
		if err != nil {
			e.log.Warn().Err(err).Str("symbol", entry.Asset.Symbol).Msg("history unavailable, asset degrades to empty series")
			series = nil
		}
		fetched = append(fetched, SymbolSeries{Symbol: entry.Asset.Symbol, Points: series})
		if len(series) > 0 {
			startPrices[entry.Asset.Symbol] = series[0].Value
		}
	}
	if len(fetched) == 0 {
		return nil, StateEmpty
	}

	axis, prices := AlignSeries(fetched)
	if len(axis) == 0 {
		return nil, StateEmpty
	}

	out := make(ValueSeries, 0, len(axis))
	for i := range axis {
		total := 0.0
		for _, entry := range req.Entries {
			if entry.Allocation <= 0 {
				continue
			}
			row, ok := prices[entry.Asset.Symbol]
			if !ok {
				continue
			}
			// A zero start price (empty series, or the aligner's zero-fill)
			// would divide to Inf; such an asset contributes nothing.
			start := startPrices[entry.Asset.Symbol]
			if start <= 0 {
				continue
			}
			shares := req.InitialAmount * (entry.Allocation / 100) / start
			total += shares * row[i]
		}
		out = append(out, ValuePoint{Date: axis[i], Value: math.Round(total)})
	}
	return out, StateReady
}

// Heatmap computes the change-over-window for every asset with a positive
// allocation. Entries with allocation <= 0 are excluded entirely, not
// zero-weighted. Requests fan out concurrently, one in flight per asset with
// no cap, and each resolves independently: a failed lookup yields change 0
// for that asset without aborting the batch. Cell order follows entry order.
func (e *Engine) Heatmap(ctx context.Context, req HeatmapRequest) ([]HeatmapCell, State) {
	if len(req.Entries) == 0 {
		return nil, StateEmpty
	}
	if !e.provider.Configured() {
		return nil, StateUnconfigured
	}

	eligible := make([]AllocationEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if entry.Allocation > 0 {
			eligible = append(eligible, entry)
		}
	}
	if len(eligible) == 0 {
		return nil, StateEmpty
	}

	cells := make([]HeatmapCell, len(eligible))
	var wg sync.WaitGroup
	for i, entry := range eligible {
		wg.Add(1)
		go func(i int, entry AllocationEntry) {
			defer wg.Done()
			change, err := e.provider.ChangeOverWindow(ctx, entry.Asset.Symbol, req.WindowDays)
			if err != nil {
				e.log.Warn().Err(err).Str("symbol", entry.Asset.Symbol).Msg("change unavailable, defaulting to zero")
				change = 0
			}
			cells[i] = HeatmapCell{
				Symbol:        entry.Asset.Symbol,
				Allocation:    entry.Allocation,
				ChangePercent: change,
			}
		}(i, entry)
	}
	wg.Wait()

	return cells, StateReady
}
