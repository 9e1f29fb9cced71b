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
	"congresssignal.com/signal/internal/logging"
	"congresssignal.com/signal/internal/similarity"
)

type candidateOutput struct {
	CandidateID       int64      `json:"candidate_id"`
	ProSubscriptionID int64      `json:"pro_subscription_id"`
	DocumentID        int64      `json:"document_id"`
	PeriodDate        string     `json:"period_date"`
	State             string     `json:"state"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
}

func runCandidates(args []string) int {
	fs := flag.NewFlagSet("candidates", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Period date YYYY-MM-DD (UTC)")
	topK := fs.Int("top-k", delivery.DefaultDailyTopK, "Candidates per subscriber")
	minScore := fs.Float64("min-score", delivery.DefaultDailyMinSimilarity, "Similarity floor")
	list := fs.Bool("list", false, "List the period's candidates instead of selecting")
	format := fs.String("format", outputFormatTable, "Output format for --list: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "candidates does not accept positional arguments")
		return 2
	}
	if *topK <= 0 {
		fmt.Fprintln(os.Stderr, "--top-k must be > 0")
		return 2
	}

	periodDate, err := parseUTCDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	if *list {
		return listCandidates(*timeout, envLoader, periodDate, outputFormat)
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

	tracker := delivery.NewTracker(pool, logger)
	selector := delivery.NewSelector(pool, search, tracker, logger)

	result, err := selector.SelectAll(ctx, delivery.SelectOptions{
		PeriodDate:    periodDate,
		TopK:          *topK,
		MinSimilarity: *minScore,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Candidate selection failed: %v\n", err)
		return 1
	}

	fmt.Printf("period=%s subscribers=%d registered=%d duplicates=%d errors=%d\n",
		periodDate.Format("2006-01-02"), result.Subscribers, result.Registered, result.Duplicates, result.Errors)
	return 0
}

func listCandidates(timeout time.Duration, envLoader *cli.EnvLoader, periodDate time.Time, outputFormat string) int {
	ctx, cancel, pool, err := connectReadPool(timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := logging.New("local", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	tracker := delivery.NewTracker(pool, logger)
	candidates, err := tracker.ListCandidates(ctx, periodDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list candidates: %v\n", err)
		return 1
	}

	items := make([]candidateOutput, 0, len(candidates))
	for _, cand := range candidates {
		items = append(items, candidateOutput{
			CandidateID:       cand.CandidateID,
			ProSubscriptionID: cand.ProSubscriptionID,
			DocumentID:        cand.DocumentID,
			PeriodDate:        formatUTCDate(cand.PeriodDate),
			State:             string(cand.State()),
			SentAt:            cand.SentAt,
		})
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.CandidateID),
			fmt.Sprintf("%d", item.ProSubscriptionID),
			fmt.Sprintf("%d", item.DocumentID),
			item.PeriodDate,
			item.State,
			formatUTCTimestampPtr(item.SentAt),
		})
	}
	if err := writeTable([]string{"candidate_id", "pro_subscription_id", "document_id", "period", "state", "sent_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\ntotal=%d\n", len(items))
	return 0
}
