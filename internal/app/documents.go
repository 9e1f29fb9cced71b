package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/db"
)

type documentOutput struct {
	DocumentID  int64  `json:"document_id"`
	PackageID   string `json:"package_id"`
	GranuleID   string `json:"granule_id,omitempty"`
	DocClass    string `json:"doc_class"`
	PublishDate string `json:"publish_date"`
	Title       string `json:"title"`
	HTMLURL     string `json:"html_url,omitempty"`
	IngestedAt  string `json:"ingested_at"`
}

func runDocuments(args []string) int {
	fs := flag.NewFlagSet("documents", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	date := fs.String("date", defaultUTCDayString(), "Publish date YYYY-MM-DD (UTC)")
	docClass := fs.String("class", "", "Only list documents in this collection code")
	limit := fs.Int("limit", 100, "Maximum rows to list (0 = no cap)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "documents does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
		return 2
	}

	targetDate, err := parseUTCDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	documents, err := pool.ListDocuments(ctx, db.DocumentListOptions{
		Date:     &targetDate,
		DocClass: strings.TrimSpace(*docClass),
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list documents: %v\n", err)
		return 1
	}

	items := make([]documentOutput, 0, len(documents))
	for _, doc := range documents {
		items = append(items, documentOutput{
			DocumentID:  doc.DocumentID,
			PackageID:   doc.PackageID,
			GranuleID:   doc.GranuleID,
			DocClass:    doc.DocClass,
			PublishDate: formatUTCDate(doc.PublishDate),
			Title:       doc.Title,
			HTMLURL:     pointerStringOrEmpty(doc.HTMLURL),
			IngestedAt:  formatUTCTimestamp(doc.IngestedAt),
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
			fmt.Sprintf("%d", item.DocumentID),
			item.PackageID,
			item.GranuleID,
			item.DocClass,
			item.PublishDate,
			truncateForTable(item.Title, 60),
		})
	}
	if err := writeTable([]string{"id", "package_id", "granule_id", "class", "published", "title"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	fmt.Printf("\ntotal=%d\n", len(items))
	return 0
}
