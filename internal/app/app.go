// Package app implements the signal CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "extract":
		return runExtract(args[1:])
	case "digest":
		return runDigest(args[1:])
	case "candidates":
		return runCandidates(args[1:])
	case "summarize":
		return runSummarize(args[1:])
	case "send-pro":
		return runSendPro(args[1:])
	case "embed":
		return runEmbed(args[1:])
	case "export":
		return runExport(args[1:])
	case "import":
		return runImport(args[1:])
	case "documents":
		return runDocuments(args[1:])
	case "unsubscribe":
		return runUnsubscribe(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	case "pipeline", "run-daily":
		return runPipeline(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "signal CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  signal <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest       Fetch a publish window from GovInfo into the catalog")
	fmt.Fprintln(os.Stderr, "  extract      Run structured extraction over cataloged documents")
	fmt.Fprintln(os.Stderr, "  digest       Match and send the standard digest for a date")
	fmt.Fprintln(os.Stderr, "  candidates   Select pro delivery candidates by similarity")
	fmt.Fprintln(os.Stderr, "  summarize    Write personalized summaries for pending candidates")
	fmt.Fprintln(os.Stderr, "  send-pro     Send the pro digest for a period")
	fmt.Fprintln(os.Stderr, "  embed        Sync extraction embeddings")
	fmt.Fprintln(os.Stderr, "  export       Write catalog rows as a JSON export")
	fmt.Fprintln(os.Stderr, "  import       Upsert documents from a JSON export")
	fmt.Fprintln(os.Stderr, "  documents    List catalog rows for a date")
	fmt.Fprintln(os.Stderr, "  unsubscribe  Deactivate a subscription by email")
	fmt.Fprintln(os.Stderr, "  stats        Catalog and delivery row counts")
	fmt.Fprintln(os.Stderr, "  serve        Start the webhook and preview server")
	fmt.Fprintln(os.Stderr, "  pipeline     Run the full daily chain for a date")
	fmt.Fprintln(os.Stderr, "  run-daily    Alias for pipeline")
	fmt.Fprintln(os.Stderr, "  daemon       Manage the systemd unit for serve")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"signal <command> -h\" for command-specific flags.")
}
