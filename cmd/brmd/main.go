package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"battery-rental-backend/config"
	"battery-rental-backend/internal/api"
	"battery-rental-backend/internal/db"
	"battery-rental-backend/internal/inventory"
	"battery-rental-backend/internal/lending"
	"battery-rental-backend/internal/livesync"
	"battery-rental-backend/internal/notify"
	"battery-rental-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "brmd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("entity store initialized")

	if cfg.Inventory.File != "" {
		importer := inventory.NewImporter(appStore)
		if err := importer.ImportFile(ctx, cfg.Inventory.File); err != nil {
			logger.Fatalf("inventory import failed: %v", err)
		}
		logger.Printf("inventory imported from %s", cfg.Inventory.File)
	}

	state := livesync.NewStateFile(cfg.State.Dir)
	engine := livesync.NewEngine(appStore, state)
	engine.Start(ctx)
	logger.Printf("synchronization engine started (market %q)", engine.Market())

	// Push notifications are optional; without VAPID keys the return
	// workflow simply has no notifier.
	var notifier lending.Notifier
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notify.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
		logger.Println("push notification worker pool started")
	} else {
		logger.Println("VAPID keys not configured; push notifications disabled")
	}

	lendSvc := lending.NewService(appStore, engine, notifier)

	handler := api.NewHandler(appStore, engine, lendSvc, webpushOptions)
	router := api.NewRouter(cfg, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
