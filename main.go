package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"surveystat/internal"
	"surveystat/internal/config"
	"surveystat/internal/container"
	"surveystat/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	logger := internal.NewDefaultLogger()
	log := logger.With("main")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger, err = internal.NewLoggerWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Error("Invalid log settings: %v", err)
		os.Exit(1)
	}
	log = logger.With("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Error("Failed to build container: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := c.InitStore(ctx); err != nil {
		log.Error("Failed to open report archive: %v", err)
		os.Exit(1)
	}

	viewer, err := ui.NewApp(ui.Config{
		Port:    cfg.Server.Port,
		Reports: c.Reports,
		Logger:  logger,
		Metrics: c.Metrics,
	})
	if err != nil {
		log.Error("Failed to create viewer: %v", err)
		os.Exit(1)
	}

	if err := viewer.Start(ctx); err != nil {
		log.Error("Viewer stopped: %v", err)
		os.Exit(1)
	}
	log.Info("Viewer shut down")
}
