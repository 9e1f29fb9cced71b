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
	"congresssignal.com/signal/internal/similarity"
)

func runEmbed(args []string) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum extractions to sync (0 = drain everything pending)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "embed does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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
	if strings.TrimSpace(cfg.SimilarityBaseURL) == "" {
		fmt.Fprintln(os.Stderr, "SIMILARITY_BASE_URL is required")
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	embedder, err := similarity.NewClient(similarity.Options{
		BaseURL:    cfg.SimilarityBaseURL,
		ServiceKey: cfg.SimilarityServiceKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build similarity client: %v\n", err)
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

	svc := extract.NewService(pool, nil, embedder, logger)
	result, err := svc.BackfillEmbeddings(ctx, extract.EmbedOptions{Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding backfill failed: %v\n", err)
		return 1
	}

	fmt.Printf("pending=%d synced=%d failed=%d\n", result.Pending, result.Synced, result.Failed)
	return 0
}
