package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"congresssignal.com/signal/internal/cli"
	"congresssignal.com/signal/internal/db"
)

type statsOutput struct {
	Catalog     *db.CatalogStats   `json:"catalog"`
	Collections []db.DocClassCount `json:"collections"`
	RecentRuns  []db.IngestRunRow  `json:"recent_runs"`
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
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

	catalog, err := pool.CollectCatalogStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to collect catalog stats: %v\n", err)
		return 1
	}
	collections, err := pool.CountDocumentsByClass(ctx, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count collections: %v\n", err)
		return 1
	}
	recentRuns, err := pool.ListRecentIngestRuns(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list ingest runs: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(statsOutput{Catalog: catalog, Collections: collections, RecentRuns: recentRuns}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	countRows := [][]string{
		{"documents", fmt.Sprintf("%d", catalog.Documents)},
		{"extractions", fmt.Sprintf("%d", catalog.Extractions)},
		{"extractions_pending_embedding", fmt.Sprintf("%d", catalog.PendingEmbedding)},
		{"subscribers", fmt.Sprintf("%d", catalog.Subscribers)},
		{"pro_subscribers", fmt.Sprintf("%d", catalog.ProSubscribers)},
		{"candidates", fmt.Sprintf("%d", catalog.Candidates)},
		{"candidates_summarized", fmt.Sprintf("%d", catalog.CandidatesSummarized)},
		{"candidates_sent", fmt.Sprintf("%d", catalog.CandidatesSent)},
		{"ingest_runs", fmt.Sprintf("%d", catalog.IngestRuns)},
	}
	if err := writeTable([]string{"metric", "value"}, countRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render stats table: %v\n", err)
		return 1
	}

	if len(collections) > 0 {
		fmt.Println()
		collectionRows := make([][]string, 0, len(collections))
		for _, row := range collections {
			collectionRows = append(collectionRows, []string{row.DocClass, fmt.Sprintf("%d", row.Documents)})
		}
		if err := writeTable([]string{"collection", "documents"}, collectionRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render collection table: %v\n", err)
			return 1
		}
	}

	if len(recentRuns) > 0 {
		fmt.Println()
		runRows := make([][]string, 0, len(recentRuns))
		for _, run := range recentRuns {
			runRows = append(runRows, []string{
				fmt.Sprintf("%d", run.RunID),
				formatUTCDate(run.WindowStart),
				formatUTCDate(run.WindowEnd),
				run.Status,
				fmt.Sprintf("%d", run.PagesFetched),
				fmt.Sprintf("%d", run.DocumentsSeen),
				fmt.Sprintf("%d", run.DocumentsInserted),
				fmt.Sprintf("%d", run.DocumentsUpdated),
				formatUTCTimestamp(run.StartedAt),
			})
		}
		if err := writeTable([]string{"run", "window_start", "window_end", "status", "pages", "seen", "inserted", "updated", "started"}, runRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render run table: %v\n", err)
			return 1
		}
	}

	return 0
}
