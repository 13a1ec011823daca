package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/storage/postgres"
	"github.com/edustack/edustack/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repo := postgres.NewClientRepo(db)
	sw := sweeper.New(repo, cfg.Sweeper.Interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go sw.Start(ctx)

	logger.Info("License sweeper started", zap.Duration("interval", cfg.Sweeper.Interval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down sweeper...")
	cancel()
	logger.Info("Sweeper exited")
}
