package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/db"
	docschema "congresssignal.com/signal/schema"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	date := fs.String("date", "", "Only export documents published on YYYY-MM-DD (default all)")
	docClass := fs.String("class", "", "Only export documents in this collection code")
	out := fs.String("out", "-", "Output path, or - for stdout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "export does not accept positional arguments")
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

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	documents, err := pool.ListDocuments(ctx, db.DocumentListOptions{
		Date:     targetDate,
		DocClass: strings.TrimSpace(*docClass),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list documents: %v\n", err)
		return 1
	}

	records := make([]docschema.DocumentRecord, 0, len(documents))
	for _, doc := range documents {
		records = append(records, exportRecordFor(doc))
	}

	var writer io.Writer = os.Stdout
	if *out != "-" {
		file, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *out, err)
			return 1
		}
		defer file.Close()
		writer = file
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode export: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "exported=%d\n", len(records))
	return 0
}

func exportRecordFor(doc db.DocumentRow) docschema.DocumentRecord {
	record := docschema.DocumentRecord{
		PackageID:    doc.PackageID,
		GranuleID:    doc.GranuleID,
		Title:        doc.Title,
		DocClass:     doc.DocClass,
		PublishDate:  formatUTCDate(doc.PublishDate),
		MetadataLine: doc.MetadataLine,
		Teaser:       doc.Teaser,
		PDFURL:       doc.PDFURL,
		HTMLURL:      doc.HTMLURL,
		DetailsURL:   doc.DetailsURL,
	}
	if !doc.IngestedAt.IsZero() {
		ingestedAt := doc.IngestedAt.UTC().Format(time.RFC3339)
		record.IngestedAt = &ingestedAt
	}
	return record
}
