package portfolio

import (
	"fmt"
	"time"
)

// Asset is one instrument known to the market-data provider.
type Asset struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// AllocationEntry pairs an asset with its percentage of the hypothetical
// initial sum. The sum of allocations across a portfolio is not constrained;
// the engine computes each contribution from its own fraction regardless.
type AllocationEntry struct {
	Asset      Asset   `json:"asset"`
	Allocation float64 `json:"allocation"`
}

// PricePoint is one observation in a price series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a chronologically ordered price history for one symbol over one
// request window. An empty series means "no data", not an error.
type Series []PricePoint

// SymbolSeries carries a series together with its symbol. Alignment depends
// on fetch order, which Go maps would not preserve, so series travel as an
// ordered slice of these.
type SymbolSeries struct {
	Symbol string
	Points Series
}

// ValuePoint is the total portfolio value at one date.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ValueSeries is the simulated portfolio value over the canonical date axis.
type ValueSeries []ValuePoint

// HeatmapCell is the per-asset change over a window, for treemap display.
type HeatmapCell struct {
	Symbol        string  `json:"symbol"`
	Allocation    float64 `json:"allocation"`
	ChangePercent float64 `json:"changePercent"`
}

// State describes a chart-producing computation as seen by the UI.
// Unconfigured (no API token) and Empty (token present but no usable data)
// are distinct states and must not be merged.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateEmpty
	StateUnconfigured
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateUnconfigured:
		return "unconfigured"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state as its string name.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a state from its string name.
func (s *State) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"idle"`:
		*s = StateIdle
	case `"loading"`:
		*s = StateLoading
	case `"ready"`:
		*s = StateReady
	case `"empty"`:
		*s = StateEmpty
	case `"unconfigured"`:
		*s = StateUnconfigured
	default:
		return fmt.Errorf("unknown state %s", data)
	}
	return nil
}
