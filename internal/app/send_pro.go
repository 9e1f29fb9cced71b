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
	"congresssignal.com/signal/internal/logging"
	"congresssignal.com/signal/internal/mail"
)

func runSendPro(args []string) int {
	fs := flag.NewFlagSet("send-pro", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Period date YYYY-MM-DD (UTC)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "send-pro does not accept positional arguments")
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
	if strings.TrimSpace(cfg.MailAPIKey) == "" {
		fmt.Fprintln(os.Stderr, "MAIL_API_KEY is required")
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

	mailer := mail.NewClient(mail.Options{
		BaseURL: cfg.MailBaseURL,
		APIKey:  cfg.MailAPIKey,
	})

	tracker := delivery.NewTracker(pool, logger)
	sender := digest.NewPro(pool, tracker, mailer, cfg.MailFromPro, logger)

	result, err := sender.Run(ctx, periodDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pro digest failed: %v\n", err)
		return 1
	}

	fmt.Printf("period=%s subscribers=%d sent=%d skipped=%d failed=%d items=%d\n",
		periodDate.Format("2006-01-02"), result.Subscribers, result.Sent, result.Skipped, result.Failed, result.Items)
	return 0
}
