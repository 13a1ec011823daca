package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/api"
	"github.com/edustack/edustack/internal/api/handlers"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/metrics"
	"github.com/edustack/edustack/internal/provision"
	"github.com/edustack/edustack/internal/storage/postgres"
	"github.com/edustack/edustack/internal/storage/redis"
	"github.com/edustack/edustack/pkg/authprovider"
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

	if err := runMigrations(db, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := postgres.NewClientRepo(db)
	logos := postgres.NewLogoRepo(db)

	var cache handlers.ResolveCache
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(cfg.Redis.URL)
		defer redisClient.Close()
		cache = redisClient
	}

	authClient := authprovider.NewClient(cfg.Auth)
	provisioner := provision.NewService(repo, authClient, cfg.Provision, logger)
	collector := metrics.NewCollector()

	handler := handlers.NewHandler(repo, provisioner, cache, logos, cfg.Redis.CacheTTL, collector, logger)
	server := api.NewServer(cfg, handler, collector, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func runMigrations(db *postgres.DB, path string) error {
	driver, err := migratepg.WithInstance(db.DB.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
