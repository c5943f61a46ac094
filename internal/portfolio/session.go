package portfolio

import (
	"context"
	"sync"
)

// GrowthView is the growth chart payload as the UI should render it.
type GrowthView struct {
	State  State       `json:"state"`
	Points ValueSeries `json:"points"`
}

// HeatmapView is the heatmap payload as the UI should render it.
type HeatmapView struct {
	State State         `json:"state"`
	Cells []HeatmapCell `json:"cells"`
}

// Session coordinates chart computations so that a superseded request can
// never publish over a newer one. Each new request for a chart cancels the
// prior in-flight computation of that chart and claims a sequence number; a
// computation whose number is no longer current discards its result and hands
// back whatever the latest request produced (or its Loading state, if it is
// still running). The visible view therefore always corresponds to the most
// recently requested inputs.
type Session struct {
	engine *Engine

	mu            sync.Mutex
	growthSeq     uint64
	growthCancel  context.CancelFunc
	growth        GrowthView
	heatmapSeq    uint64
	heatmapCancel context.CancelFunc
	heatmap       HeatmapView
}

// NewSession creates a session over the engine, with both charts Idle.
func NewSession(engine *Engine) *Session {
	return &Session{
		engine:  engine,
		growth:  GrowthView{State: StateIdle},
		heatmap: HeatmapView{State: StateIdle},
	}
}

// Growth runs a growth simulation for the given inputs, superseding any
// in-flight one, and returns the view to display.
func (s *Session) Growth(ctx context.Context, req GrowthRequest) GrowthView {
	s.mu.Lock()
	if s.growthCancel != nil {
		s.growthCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.growthCancel = cancel
	s.growthSeq++
	seq := s.growthSeq
	s.growth = GrowthView{State: StateLoading}
	s.mu.Unlock()
	defer cancel()

	points, state := s.engine.SimulateGrowth(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.growthSeq {
		// Superseded while computing; the newer request owns the view now.
		return s.growth
	}
	s.growth = GrowthView{State: state, Points: points}
	return s.growth
}

// Heatmap runs a heatmap computation for the given inputs, superseding any
// in-flight one, and returns the view to display.
func (s *Session) Heatmap(ctx context.Context, req HeatmapRequest) HeatmapView {
	s.mu.Lock()
	if s.heatmapCancel != nil {
		s.heatmapCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.heatmapCancel = cancel
	s.heatmapSeq++
	seq := s.heatmapSeq
	s.heatmap = HeatmapView{State: StateLoading}
	s.mu.Unlock()
	defer cancel()

	cells, state := s.engine.Heatmap(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.heatmapSeq {
		return s.heatmap
	}
	s.heatmap = HeatmapView{State: state, Cells: cells}
	return s.heatmap
}

// LatestGrowth returns the most recently published growth view.
func (s *Session) LatestGrowth() GrowthView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.growth
}

// LatestHeatmap returns the most recently published heatmap view.
func (s *Session) LatestHeatmap() HeatmapView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heatmap
}
