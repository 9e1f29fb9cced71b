package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/config"
	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/extract"
	"congresssignal.com/signal/internal/logging"
)

func runExtract(args []string) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Minute, "Command timeout")
	date := fs.String("date", "", "Only extract documents published on YYYY-MM-DD (default all pending)")
	limit := fs.Int("limit", 0, "Maximum documents to extract (0 = no cap)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "extract does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
		return 2
	}

	var targetDate *time.Time
	if strings.TrimSpace(*date) != "" {
		day, err := parseUTCDate(*date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
			return 2
		}
		targetDate = &day
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if strings.TrimSpace(cfg.ExtractAPIKey) == "" {
		fmt.Fprintln(os.Stderr, "EXTRACT_API_KEY is required")
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	scraper := extract.NewClient(extract.Options{
		BaseURL: cfg.ExtractBaseURL,
		APIKey:  cfg.ExtractAPIKey,
	})

	svc := extract.NewService(pool, scraper, nil, logger)
	result, err := svc.Run(ctx, extract.RunOptions{Date: targetDate, Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		return 1
	}

	fmt.Printf("eligible=%d batches=%d extracted=%d duplicates=%d invalid=%d failed=%d\n",
		result.Eligible, result.Batches, result.Extracted, result.Duplicates, result.Invalid, result.Failed)
	return 0
}
