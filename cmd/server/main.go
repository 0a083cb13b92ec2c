package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"ogabook-admin/internal/config"
	"ogabook-admin/internal/logging"
	"ogabook-admin/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logging
	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer closer.Close()

	log.WithFields(log.Fields{
		"port":        cfg.Server.Port,
		"driver":      cfg.Database.Driver,
		"environment": cfg.Environment,
	}).Info("Config loaded")
	for _, w := range cfg.Database.Warnings() {
		log.Warn(w)
	}

	// 3. Connect to database
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	db, err := store.New(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		dbErr := store.Classify(err)
		log.WithError(err).WithFields(log.Fields{
			"kind": dbErr.Kind,
			"hint": dbErr.Hint(),
		}).Fatal("Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connected")

	// 4. Bootstrap tables for local setups
	if cfg.Database.Bootstrap {
		if err := db.Bootstrap(ctx, cfg.Admin.SeedEmail, cfg.Admin.SeedPassword); err != nil {
			log.Fatalf("Failed to bootstrap tables: %v", err)
		}
		log.Info("Tables ready")
	}

	// 5. Build the app and serve until signalled
	app := newApp(cfg, db)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Infof("Starting server on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Shutdown did not complete cleanly")
	}
}
