package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/db"
	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/server"
	"github.com/Believetim-cloud/SkyRiff/internal/task"
	"github.com/Believetim-cloud/SkyRiff/internal/video"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

const (
	reconcileInterval  = time.Minute
	reconcileBatchSize = 50
)

func main() {
	logger.Init()
	logger.Info("Starting SkyRiff application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	vendor := dyuapi.NewHTTPClient(cfg.DyuAPIBaseURL, cfg.DyuAPIKey)

	videoRepo := video.NewRepository(database)
	cacheService := video.NewCacheService(cfg.RedisAddr, videoRepo, cfg.StaticDir)
	defer cacheService.Close()
	logger.Info("Video cache service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cacheService.Start(ctx)

	ledger := wallet.NewRepository(database)
	taskService := task.NewService(
		task.NewRepository(database), videoRepo, cacheService, ledger, vendor, cfg.Tariff,
	)
	go runReconciler(ctx, taskService, ledger)

	srv := server.New(database, cfg, vendor, cacheService)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

// runReconciler periodically fails and refunds generation tasks stuck
// past their timeout and moves unlocked pending income to available.
// Both actions share the claim-once code paths the request handlers
// use, so running them here never double-refunds or double-settles.
func runReconciler(ctx context.Context, tasks *task.Service, ledger wallet.Ledger) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := tasks.ReconcileStale(ctx, reconcileBatchSize); err != nil {
				logger.Errorf("Stale task sweep failed: %v", err)
			} else if n > 0 {
				logger.Infof("Stale task sweep failed and refunded %d tasks", n)
			}

			if n, err := ledger.SettleUnlocked(ctx, time.Now()); err != nil {
				logger.Errorf("Pending income settlement failed: %v", err)
			} else if n > 0 {
				logger.Infof("Settled %d unlocked ledger rows", n)
			}
		}
	}
}
