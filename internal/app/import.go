package app

import (
	"context"
	"encoding/json"
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
	"congresssignal.com/signal/internal/logging"
	docschema "congresssignal.com/signal/schema"
)

func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	in := fs.String("in", "", "Path to a JSON export file")
	dryRun := fs.Bool("dry-run", false, "Validate the file without writing anything")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "import does not accept positional arguments")
		return 2
	}
	if strings.TrimSpace(*in) == "" {
		fmt.Fprintln(os.Stderr, "--in is required")
		return 2
	}

	payload, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *in, err)
		return 1
	}

	var rawRecords []json.RawMessage
	if err := json.Unmarshal(payload, &rawRecords); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse %s: expected a JSON array: %v\n", *in, err)
		return 1
	}

	records := make([]*docschema.DocumentRecord, 0, len(rawRecords))
	invalid := 0
	for index, raw := range rawRecords {
		record, err := docschema.ValidateDocumentRecord(raw)
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "record %d: %v\n", index, err)
			continue
		}
		records = append(records, record)
	}

	if *dryRun {
		fmt.Printf("records=%d valid=%d invalid=%d dry_run=true\n", len(rawRecords), len(records), invalid)
		return 0
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

	now := globaltime.UTC()
	inserted, updated, failed := 0, 0, 0
	for _, record := range records {
		upsert, err := upsertFromRecord(record, now)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("package_id", record.PackageID).Msg("import record rejected")
			continue
		}
		_, createdNew, err := pool.UpsertDocument(ctx, upsert)
		if err != nil {
			failed++
			logger.Error().Err(err).Str("package_id", record.PackageID).Msg("import upsert failed")
			continue
		}
		if createdNew {
			inserted++
		} else {
			updated++
		}
	}

	fmt.Printf("records=%d valid=%d invalid=%d inserted=%d updated=%d failed=%d\n",
		len(rawRecords), len(records), invalid, inserted, updated, failed)
	return 0
}

func upsertFromRecord(record *docschema.DocumentRecord, now time.Time) (db.DocumentUpsert, error) {
	publishDay, err := record.PublishDay()
	if err != nil {
		return db.DocumentUpsert{}, err
	}

	ingestedAt := now
	if record.IngestedAt != nil && strings.TrimSpace(*record.IngestedAt) != "" {
		parsed, err := time.Parse(time.RFC3339, *record.IngestedAt)
		if err != nil {
			return db.DocumentUpsert{}, fmt.Errorf("parse ingested_at %q: %w", *record.IngestedAt, err)
		}
		ingestedAt = parsed.UTC()
	}

	return db.DocumentUpsert{
		PackageID:    record.PackageID,
		GranuleID:    record.GranuleID,
		Title:        record.Title,
		DocClass:     record.DocClass,
		PublishDate:  publishDay,
		MetadataLine: record.MetadataLine,
		Teaser:       record.Teaser,
		PDFURL:       record.PDFURL,
		HTMLURL:      record.HTMLURL,
		DetailsURL:   record.DetailsURL,
		IngestedAt:   ingestedAt,
	}, nil
}
