package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"playstore-scraper/config"
	"playstore-scraper/pipeline"
	"playstore-scraper/scraper/playstore"
	"playstore-scraper/storage"
	"playstore-scraper/utils"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:           "playscraper",
	Short:         "Collect Play Store reviews for the configured banking apps",
	Long:          "playscraper fetches the newest Play Store reviews for each configured app, normalizes them and writes a timestamped CSV export.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("playscraper %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	baseLogger, err := utils.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer baseLogger.Close()
	logger := baseLogger.With("run_id", runID)

	logger.Info("=== Starting Play Store Scraper ===")
	logger.Info("Config: apps: %d | reviews/app: %d | retries: %d | provider: %s | %s/%s",
		len(cfg.Apps), cfg.ReviewCount, cfg.MaxRetries, cfg.Provider, cfg.Lang, cfg.Country)

	sortOrder, err := playstore.ParseSort(cfg.Sort)
	if err != nil {
		return err
	}

	var transport playstore.Transport
	switch cfg.Provider {
	case "browser":
		bt := playstore.NewBrowserTransport(cfg.PlayBaseURL, cfg.ChromeBin, cfg.HTTPTimeout, logger)
		defer bt.Close()
		transport = bt
	default:
		transport = playstore.NewHTTPTransport(cfg.PlayBaseURL, cfg.HTTPTimeout)
	}

	metrics := utils.NewMetrics()
	client := playstore.NewClient(transport, playstore.Options{
		Lang:       cfg.Lang,
		Country:    cfg.Country,
		Sort:       sortOrder,
		RatePerSec: cfg.RatePerSec,
	}, logger)
	fetcher := playstore.NewFetcher(client, playstore.Sinks{logger, metrics}, cfg.BackoffBase)

	csvWriter, err := storage.NewCSVWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithMetrics(metrics)}
	if cfg.SQLitePath != "" {
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("SQLite sink disabled: %v", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithSinks(db))
		}
	}
	if cfg.PostgresOn {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			logger.Error("PostgreSQL sink disabled: %v", err)
		} else {
			defer pg.Close()
			opts = append(opts, pipeline.WithSinks(pg))
		}
	}

	runner := pipeline.NewRunner(pipeline.Settings{
		Apps:       cfg.Apps,
		Count:      cfg.ReviewCount,
		MaxRetries: cfg.MaxRetries,
		Threshold:  cfg.MinReviews,
		SampleSize: cfg.SampleSize,
	}, runID, fetcher, csvWriter, logger, opts...)

	if _, err := runner.Run(ctx); err != nil {
		logger.Error("Run aborted: %v", err)
		return err
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("%v", err)
		}
	}

	logger.Info("=== Scraping Completed ===")
	return nil
}
