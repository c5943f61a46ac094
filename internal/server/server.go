// Package server provides the HTTP API consumed by the portfolio UI.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

// Config holds server configuration.
type Config struct {
	Log     zerolog.Logger
	Store   portfolioStore
	Market  marketAPI
	Session *portfolio.Session
	Addr    string
}

// Server is the HTTP server exposing the valuation engine and state store.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates the server and mounts all routes.
func New(cfg Config) *Server {
	h := NewHandlers(cfg.Store, cfg.Market, cfg.Session, cfg.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.HandleSearch)
		r.Get("/quote/{symbol}", h.HandleQuote)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", h.HandleListPortfolio)
			r.Post("/", h.HandleAddEntry)
			r.Delete("/", h.HandleClearPortfolio)
			r.Put("/{symbol}", h.HandleUpdateAllocation)
			r.Delete("/{symbol}", h.HandleRemoveEntry)
		})

		r.Put("/settings/token", h.HandleSetToken)

		r.Get("/growth", h.HandleGrowth)
		r.Get("/growth/chart.png", h.HandleGrowthChart)
		r.Get("/heatmap", h.HandleHeatmap)
	})

	return &Server{
		router: r,
		server: &http.Server{Addr: cfg.Addr, Handler: r},
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}
}

// Router exposes the mounted routes, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down")
		return s.server.Shutdown(shutdownCtx)
	}
}
