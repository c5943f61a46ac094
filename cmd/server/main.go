package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/reotam5/stock-visualizer/internal/config"
	"github.com/reotam5/stock-visualizer/internal/market"
	"github.com/reotam5/stock-visualizer/internal/portfolio"
	"github.com/reotam5/stock-visualizer/internal/server"
	"github.com/reotam5/stock-visualizer/internal/storage"
	"github.com/reotam5/stock-visualizer/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Str("path", cfg.DBPath).Msg("database ready")

	store := storage.NewStore(db, cfg.FinnhubAPIKey)
	client := market.NewClient(store.Token, log)
	engine := portfolio.NewEngine(client, log)
	session := portfolio.NewSession(engine)

	srv := server.New(server.Config{
		Log:     log,
		Store:   store,
		Market:  client,
		Session: session,
		Addr:    ":" + cfg.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
