// Command api serves the statistic drivers over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"permcluster/adapters/api"
	"permcluster/adapters/postgres"
	"permcluster/internal"
	"permcluster/internal/config"
	"permcluster/ports"
)

func main() {
	_ = godotenv.Load()
	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo ports.ResultRepository
	if cfg.Database.URL != "" {
		pg, err := postgres.New(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database: %v", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database: %v", err)
			os.Exit(1)
		}
		repo = pg
	} else {
		logger.Warn("DATABASE_URL not set; results will not be persisted")
	}

	svc := api.NewService(cfg, logger, repo)
	if err := svc.Serve(ctx); err != nil {
		logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}
