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
	"congresssignal.com/signal/internal/digest"
	"congresssignal.com/signal/internal/extract"
	"congresssignal.com/signal/internal/govinfo"
	"congresssignal.com/signal/internal/ingest"
	"congresssignal.com/signal/internal/logging"
	"congresssignal.com/signal/internal/mail"
	"congresssignal.com/signal/internal/similarity"
)

// pipelineStage is one step of the daily chain. Failures are recorded
// and the chain moves on; every stage works off persisted state, so a
// later stage degrades to a no-op rather than corrupting anything when
// an earlier one failed.
type pipelineStage struct {
	name string
	run  func(ctx context.Context) error
}

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Hour, "Command timeout")
	date := fs.String("date", yesterdayUTCString(), "Pipeline date YYYY-MM-DD (UTC)")
	concurrency := fs.Int("concurrency", delivery.DefaultSummarizeConcurrency, "Parallel scrape calls in the summarize stage")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "pipeline does not accept positional arguments")
		return 2
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "--concurrency must be > 0")
		return 2
	}

	targetDay, err := parseUTCDate(*date)
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
	for _, requirement := range []struct {
		name  string
		value string
	}{
		{"GOVINFO_API_KEY", cfg.GovInfoAPIKey},
		{"EXTRACT_API_KEY", cfg.ExtractAPIKey},
		{"SIMILARITY_BASE_URL", cfg.SimilarityBaseURL},
		{"MAIL_API_KEY", cfg.MailAPIKey},
	} {
		if strings.TrimSpace(requirement.value) == "" {
			fmt.Fprintf(os.Stderr, "%s is required\n", requirement.name)
			return 1
		}
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	search, err := similarity.NewClient(similarity.Options{
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

	fetcher := govinfo.NewClient(govinfo.Options{
		BaseURL: cfg.GovInfoBaseURL,
		APIKey:  cfg.GovInfoAPIKey,
	})
	scraper := extract.NewClient(extract.Options{
		BaseURL: cfg.ExtractBaseURL,
		APIKey:  cfg.ExtractAPIKey,
	})
	mailer := mail.NewClient(mail.Options{
		BaseURL: cfg.MailBaseURL,
		APIKey:  cfg.MailAPIKey,
	})

	ingestSvc := ingest.NewService(pool, fetcher, logger)
	extractSvc := extract.NewService(pool, scraper, search, logger)
	standard := digest.NewStandard(pool, mailer, cfg.MailFromStandard, logger)
	tracker := delivery.NewTracker(pool, logger)
	selector := delivery.NewSelector(pool, search, tracker, logger)
	summarizer := delivery.NewSummarizer(tracker, scraper, *concurrency, logger)
	proSender := digest.NewPro(pool, tracker, mailer, cfg.MailFromPro, logger)

	stages := []pipelineStage{
		{"ingest", func(ctx context.Context) error {
			result, err := ingestSvc.Run(ctx, ingest.Request{WindowStart: targetDay, WindowEnd: targetDay})
			if err != nil {
				return err
			}
			logger.Info().
				Int("pages", result.Pages).
				Int("seen", result.Seen).
				Int("inserted", result.Inserted).
				Int("updated", result.Updated).
				Int("failed", result.Failed).
				Str("status", result.Status).
				Msg("ingest stage finished")
			return nil
		}},
		{"extract", func(ctx context.Context) error {
			result, err := extractSvc.Run(ctx, extract.RunOptions{Date: &targetDay})
			if err != nil {
				return err
			}
			logger.Info().
				Int("eligible", result.Eligible).
				Int("extracted", result.Extracted).
				Int("invalid", result.Invalid).
				Int("failed", result.Failed).
				Msg("extract stage finished")
			return nil
		}},
		{"embed", func(ctx context.Context) error {
			result, err := extractSvc.BackfillEmbeddings(ctx, extract.EmbedOptions{})
			if err != nil {
				return err
			}
			logger.Info().
				Int("pending", result.Pending).
				Int("synced", result.Synced).
				Int("failed", result.Failed).
				Msg("embed stage finished")
			return nil
		}},
		{"digest", func(ctx context.Context) error {
			result, err := standard.Run(ctx, targetDay)
			if err != nil {
				return err
			}
			logger.Info().
				Int("subscribers", result.Subscribers).
				Int("sent", result.Sent).
				Int("skipped", result.Skipped).
				Int("failed", result.Failed).
				Msg("digest stage finished")
			return nil
		}},
		{"candidates", func(ctx context.Context) error {
			result, err := selector.SelectAll(ctx, delivery.DailySelectOptions(targetDay))
			if err != nil {
				return err
			}
			logger.Info().
				Int("subscribers", result.Subscribers).
				Int("registered", result.Registered).
				Int("duplicates", result.Duplicates).
				Int("errors", result.Errors).
				Msg("candidates stage finished")
			return nil
		}},
		{"summarize", func(ctx context.Context) error {
			result, err := summarizer.Run(ctx, targetDay)
			if err != nil {
				return err
			}
			logger.Info().
				Int("tasks", result.Tasks).
				Int("summarized", result.Summarized).
				Int("failed", result.Failed).
				Msg("summarize stage finished")
			return nil
		}},
		{"send-pro", func(ctx context.Context) error {
			result, err := proSender.Run(ctx, targetDay)
			if err != nil {
				return err
			}
			logger.Info().
				Int("subscribers", result.Subscribers).
				Int("sent", result.Sent).
				Int("skipped", result.Skipped).
				Int("failed", result.Failed).
				Msg("send-pro stage finished")
			return nil
		}},
	}

	completed, failed := 0, 0
	failedStages := make([]string, 0, len(stages))
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Pipeline aborted: %v\n", err)
			return 1
		}
		if err := stage.run(ctx); err != nil {
			failed++
			failedStages = append(failedStages, stage.name)
			logger.Error().Err(err).Str("stage", stage.name).Msg("pipeline stage failed")
			continue
		}
		completed++
	}

	fmt.Printf("date=%s stages=%d completed=%d failed=%d\n",
		targetDay.Format("2006-01-02"), len(stages), completed, failed)
	if len(failedStages) > 0 {
		fmt.Printf("failed_stages=%s\n", strings.Join(failedStages, ","))
	}
	return 0
}
