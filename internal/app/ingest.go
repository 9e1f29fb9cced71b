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
	"congresssignal.com/signal/internal/globaltime"
	"congresssignal.com/signal/internal/govinfo"
	"congresssignal.com/signal/internal/ingest"
	"congresssignal.com/signal/internal/logging"
)

type ingestWindowFlags struct {
	date      string
	startDate string
	endDate   string
	today     bool
	yesterday bool
}

// resolveIngestWindow turns the window flags into an inclusive day
// pair. Without a selector it falls back to today.
func resolveIngestWindow(flags ingestWindowFlags, now time.Time) (time.Time, time.Time, error) {
	nowDay, _ := utcDayBounds(now)

	selectors := 0
	if strings.TrimSpace(flags.date) != "" {
		selectors++
	}
	if strings.TrimSpace(flags.startDate) != "" || strings.TrimSpace(flags.endDate) != "" {
		selectors++
	}
	if flags.today {
		selectors++
	}
	if flags.yesterday {
		selectors++
	}
	if selectors > 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("--date, --start-date/--end-date, --today and --yesterday are mutually exclusive")
	}

	switch {
	case strings.TrimSpace(flags.date) != "":
		day, err := parseUTCDate(flags.date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --date: %w", err)
		}
		return day, day, nil
	case strings.TrimSpace(flags.startDate) != "" || strings.TrimSpace(flags.endDate) != "":
		if strings.TrimSpace(flags.startDate) == "" || strings.TrimSpace(flags.endDate) == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--start-date and --end-date must be used together")
		}
		start, err := parseUTCDate(flags.startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start-date: %w", err)
		}
		end, err := parseUTCDate(flags.endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end-date: %w", err)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("--end-date must not precede --start-date")
		}
		return start, end, nil
	case flags.yesterday:
		day := nowDay.AddDate(0, 0, -1)
		return day, day, nil
	default:
		return nowDay, nowDay, nil
	}
}

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	date := fs.String("date", "", "Single publish date YYYY-MM-DD (UTC)")
	startDate := fs.String("start-date", "", "Window start date YYYY-MM-DD (requires --end-date)")
	endDate := fs.String("end-date", "", "Window end date YYYY-MM-DD, inclusive (requires --start-date)")
	today := fs.Bool("today", false, "Ingest today's publish date")
	yesterday := fs.Bool("yesterday", false, "Ingest yesterday's publish date")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "ingest does not accept positional arguments")
		return 2
	}

	windowStart, windowEnd, err := resolveIngestWindow(ingestWindowFlags{
		date:      *date,
		startDate: *startDate,
		endDate:   *endDate,
		today:     *today,
		yesterday: *yesterday,
	}, globaltime.UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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
	if strings.TrimSpace(cfg.GovInfoAPIKey) == "" {
		fmt.Fprintln(os.Stderr, "GOVINFO_API_KEY is required")
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

	fetcher := govinfo.NewClient(govinfo.Options{
		BaseURL: cfg.GovInfoBaseURL,
		APIKey:  cfg.GovInfoAPIKey,
	})

	svc := ingest.NewService(pool, fetcher, logger)
	result, err := svc.Run(ctx, ingest.Request{WindowStart: windowStart, WindowEnd: windowEnd})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("run_id=%d run_uuid=%s status=%s pages=%d seen=%d inserted=%d updated=%d failed=%d\n",
		result.RunID, result.RunUUID, result.Status, result.Pages, result.Seen, result.Inserted, result.Updated, result.Failed)
	if result.ErrorMessage != "" {
		fmt.Printf("error=%q\n", result.ErrorMessage)
	}
	return 0
}
