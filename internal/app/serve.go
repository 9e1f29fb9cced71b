package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/config"
	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/delivery"
	"congresssignal.com/signal/internal/digest"
	"congresssignal.com/signal/internal/extract"
	"congresssignal.com/signal/internal/httpapi"
	"congresssignal.com/signal/internal/logging"
	"congresssignal.com/signal/internal/mail"
	"congresssignal.com/signal/internal/similarity"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "serve does not accept positional arguments")
		return 2
	}
	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
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
	if strings.TrimSpace(cfg.ExtractAPIKey) == "" {
		fmt.Fprintln(os.Stderr, "EXTRACT_API_KEY is required")
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

	search, err := similarity.NewClient(similarity.Options{
		BaseURL:    cfg.SimilarityBaseURL,
		ServiceKey: cfg.SimilarityServiceKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build similarity client: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	scraper := extract.NewClient(extract.Options{
		BaseURL: cfg.ExtractBaseURL,
		APIKey:  cfg.ExtractAPIKey,
	})
	mailer := mail.NewClient(mail.Options{
		BaseURL: cfg.MailBaseURL,
		APIKey:  cfg.MailAPIKey,
	})

	tracker := delivery.NewTracker(pool, logger)
	selector := delivery.NewSelector(pool, search, tracker, logger)
	summarizer := delivery.NewSummarizer(tracker, scraper, 0, logger)
	sender := digest.NewPro(pool, tracker, mailer, cfg.MailFromPro, logger)
	pipeline := digest.NewProPipeline(pool, selector, summarizer, sender, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	srv := httpapi.NewServer(pool, pipeline, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
		WebhookSecret:   cfg.WebhookSecret,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
