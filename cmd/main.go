package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"relato/internal/api"
	"relato/internal/bootstrap"
	"relato/internal/config"
	"relato/internal/db"
	"relato/internal/store"
	"relato/internal/tasks"
	"relato/internal/utils/logger"
)

func main() {
	console := logger.New("relato")

	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		console.Info("No .env file found, skipping environment variable loading")
	} else {
		console.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			console.Warn("Failed to close database connection: %v", err)
		}
	}()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	apiServer := api.NewServer(cfg, gormDB, rdb)

	// Startup permission sync. A half-synced catalog would corrupt the
	// permission model, so failure aborts the process.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := apiServer.Registry().SyncCatalog(startupCtx); err != nil {
		startupCancel()
		log.Fatalf("Failed to sync permission catalog: %v", err)
	}
	if err := bootstrap.EnsureAdminFromEnv(startupCtx, gormDB, apiServer.Registry()); err != nil {
		console.Warn("Bootstrap admin not created: %v", err)
	}
	startupCancel()

	// Background maintenance: periodic purge of login audit rows
	taskHandler := tasks.NewTaskHandler(store.NewAuditStore(gormDB), cfg.Audit)
	taskServer := tasks.NewServer(cfg.Redis, taskHandler, console)
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Audit, console)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	go func() {
		if err := taskServer.Start(serverCtx); err != nil {
			console.Error("Task server error", err)
		}
	}()
	go func() {
		if err := taskScheduler.Start(); err != nil {
			console.Error("Task scheduler error", err)
		}
	}()

	go func() {
		console.Success("API server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := apiServer.Start(); err != nil {
			console.Error("API server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	taskScheduler.Stop()
	serverCancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		console.Error("Failed to shutdown API server", err)
	}

	console.Info("Servers shutdown gracefully")
}
