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
	"congresssignal.com/signal/internal/delivery"
	"congresssignal.com/signal/internal/extract"
	"congresssignal.com/signal/internal/logging"
)

func runSummarize(args []string) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Minute, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Period date YYYY-MM-DD (UTC)")
	concurrency := fs.Int("concurrency", delivery.DefaultSummarizeConcurrency, "Parallel scrape calls")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "summarize does not accept positional arguments")
		return 2
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "--concurrency must be > 0")
		return 2
	}

	periodDate, err := parseUTCDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
		return 2
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

	tracker := delivery.NewTracker(pool, logger)
	summarizer := delivery.NewSummarizer(tracker, scraper, *concurrency, logger)

	result, err := summarizer.Run(ctx, periodDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
		return 1
	}

	fmt.Printf("period=%s tasks=%d summarized=%d skipped=%d failed=%d\n",
		periodDate.Format("2006-01-02"), result.Tasks, result.Summarized, result.Skipped, result.Failed)
	return 0
}
