package db

import (
	"context"
	"fmt"
	"time"
)

// IngestRunRow is one ingest run as read back for listings.
type IngestRunRow struct {
	RunID             int64
	IngestRunUUID     string
	WindowStart       time.Time
	WindowEnd         time.Time
	StartedAt         time.Time
	FinishedAt        *time.Time
	Status            string
	PagesFetched      int
	DocumentsSeen     int
	DocumentsInserted int
	DocumentsUpdated  int
	ErrorMessage      *string
}

// InsertIngestRun opens a run row in the running state and returns its
// identifiers.
func (p *Pool) InsertIngestRun(ctx context.Context, windowStart, windowEnd time.Time) (int64, string, error) {
	const query = `
INSERT INTO signal.ingest_runs (window_start, window_end, status)
VALUES ($1, $2, 'running')
RETURNING run_id, ingest_run_uuid`

	var (
		runID   int64
		runUUID string
	)
	err := p.QueryRow(ctx, query,
		windowStart.UTC().Format("2006-01-02"),
		windowEnd.UTC().Format("2006-01-02"),
	).Scan(&runID, &runUUID)
	if err != nil {
		return 0, "", fmt.Errorf("insert ingest run: %w", err)
	}
	return runID, runUUID, nil
}

// MarkIngestRunCompleted closes a run with its final counters.
func (p *Pool) MarkIngestRunCompleted(ctx context.Context, runID int64, finishedAt time.Time, pages, seen, inserted, updated int) error {
	const query = `
UPDATE signal.ingest_runs
SET status = 'completed',
	finished_at = $2,
	pages_fetched = $3,
	documents_seen = $4,
	documents_inserted = $5,
	documents_updated = $6,
	updated_at = now()
WHERE run_id = $1`

	if _, err := p.Exec(ctx, query, runID, finishedAt.UTC(), pages, seen, inserted, updated); err != nil {
		return fmt.Errorf("mark ingest run %d completed: %w", runID, err)
	}
	return nil
}

// MarkIngestRunFailed closes a run with its partial counters and the
// failure message, truncated to fit the column comfortably.
func (p *Pool) MarkIngestRunFailed(ctx context.Context, runID int64, finishedAt time.Time, pages, seen, inserted, updated int, message string) error {
	const maxErrorMessageChars = 4000
	if len(message) > maxErrorMessageChars {
		message = message[:maxErrorMessageChars]
	}

	const query = `
UPDATE signal.ingest_runs
SET status = 'failed',
	finished_at = $2,
	pages_fetched = $3,
	documents_seen = $4,
	documents_inserted = $5,
	documents_updated = $6,
	error_message = $7,
	updated_at = now()
WHERE run_id = $1`

	if _, err := p.Exec(ctx, query, runID, finishedAt.UTC(), pages, seen, inserted, updated, message); err != nil {
		return fmt.Errorf("mark ingest run %d failed: %w", runID, err)
	}
	return nil
}

// ListRecentIngestRuns returns runs newest first.
func (p *Pool) ListRecentIngestRuns(ctx context.Context, limit int) ([]IngestRunRow, error) {
	const query = `
SELECT run_id, ingest_run_uuid, window_start, window_end, started_at, finished_at,
	status, pages_fetched, documents_seen, documents_inserted, documents_updated, error_message
FROM signal.ingest_runs
ORDER BY started_at DESC, run_id DESC
LIMIT NULLIF($1, 0)`

	rows, err := p.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	defer rows.Close()

	var out []IngestRunRow
	for rows.Next() {
		var row IngestRunRow
		if err := rows.Scan(
			&row.RunID,
			&row.IngestRunUUID,
			&row.WindowStart,
			&row.WindowEnd,
			&row.StartedAt,
			&row.FinishedAt,
			&row.Status,
			&row.PagesFetched,
			&row.DocumentsSeen,
			&row.DocumentsInserted,
			&row.DocumentsUpdated,
			&row.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan ingest run row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingest run rows: %w", err)
	}
	return out, nil
}
