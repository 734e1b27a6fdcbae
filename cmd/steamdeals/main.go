package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealhound/steamdeals/internal/config"
	"github.com/dealhound/steamdeals/internal/logger"
	"github.com/dealhound/steamdeals/internal/scraper"
	"github.com/dealhound/steamdeals/internal/steamweb"
	"github.com/dealhound/steamdeals/internal/storage"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// A .env file is a convenience for local runs, not a requirement
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	if cfg.Session.Enabled {
		// The product info session needs a backend connection supplied by an
		// embedding program; the standalone binary has none to offer.
		logger.Fatal("session.enabled is not supported by this binary, embed the scraper with a session transport instead")
	}

	var marks scraper.WatermarkStore
	if cfg.Scraper.WatermarkMode == scraper.WatermarkPersist {
		store, err := storage.New(cfg.Storage.DBPath)
		if err != nil {
			logger.Fatal("Failed to initialize storage: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		marks = store
	}

	steamClient := steamweb.NewClient(
		cfg.Steam.APIKey,
		cfg.Steam.WebAPIURL,
		cfg.Steam.StoreAPIURL,
		cfg.Steam.Timeout,
		steamweb.ClientConfig{
			MaxRetries:     cfg.Steam.MaxRetries,
			RetryDelayBase: cfg.Steam.RetryDelayBase,
			BatchSize:      cfg.Steam.BatchSize,
			BatchDelay:     cfg.Steam.BatchDelay,
		},
	)

	scraperConfig := scraper.Config{
		Lookback:      cfg.Scraper.Lookback,
		EnrichDelay:   cfg.Scraper.EnrichDelay,
		WatermarkMode: cfg.Scraper.WatermarkMode,
		RequireExpiry: cfg.Scraper.RequireExpiry,
	}
	s := scraper.New(steamClient, nil, marks, scraperConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting deal discovery service (interval: %v, lookback: %v, watermark_mode: %s)",
		cfg.Scraper.PollInterval,
		cfg.Scraper.Lookback,
		cfg.Scraper.WatermarkMode,
	)

	ticker := time.NewTicker(cfg.Scraper.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Discovery cycle failed (%d consecutive): %v", consecutiveFailures, err)
		} else {
			if consecutiveFailures > 0 {
				logger.Info("Discovery recovered after %d failed cycles", consecutiveFailures)
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial discovery cycle")
	handleCycleResult(runDiscoveryCycle(ctx, s))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled discovery cycle")
			handleCycleResult(runDiscoveryCycle(ctx, s))
		}
	}
}

func runDiscoveryCycle(ctx context.Context, s *scraper.Scraper) error {
	startTime := time.Now()

	deals, err := s.Run(ctx)
	if err != nil {
		return err
	}

	for _, deal := range deals {
		if deal.End.IsZero() {
			logger.Info("Free deal: %s (app %d) %s", deal.Title, deal.AppID, deal.Link)
			continue
		}
		logger.Info("Free deal: %s (app %d) until %v %s", deal.Title, deal.AppID, deal.End, deal.Link)
	}

	logger.Info("Discovery cycle completed in %v (%d deals)", time.Since(startTime), len(deals))
	return nil
}
