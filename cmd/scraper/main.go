// cmd/scraper/main.go
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"vidfeed/internal/client"
	"vidfeed/internal/config"
	"vidfeed/internal/scraper"
	"vidfeed/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := storage.NewSQLiteStore(cfg.ScrapeDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	redditClient, err := client.NewRedditClient(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create Reddit client: %v", err)
	}
	redgifsClient, err := client.NewRedGifsClient(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create RedGifs client: %v", err)
	}

	svc := scraper.NewService(store, redditClient, redgifsClient, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down scraper")
		cancel()
	}()

	if *once {
		if err := svc.RunOnce(ctx); err != nil {
			log.Fatalf("Ingestion pass failed: %v", err)
		}
		return
	}

	svc.Start(ctx, cfg.ScrapeInterval)
}
