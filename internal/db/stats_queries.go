package db

import (
	"context"
	"fmt"
	"time"
)

// CatalogStats summarizes the engine's tables for the stats command.
type CatalogStats struct {
	Documents            int64
	Extractions          int64
	PendingEmbedding     int64
	Subscribers          int64
	ProSubscribers       int64
	Candidates           int64
	CandidatesSummarized int64
	CandidatesSent       int64
	IngestRuns           int64
	LastRunStatus        *string
	LastRunStarted       *time.Time
}

// DocClassCount is one row of the per-collection breakdown.
type DocClassCount struct {
	DocClass  string
	Documents int64
}

// CollectCatalogStats gathers row counts across the engine's tables.
func (p *Pool) CollectCatalogStats(ctx context.Context) (*CatalogStats, error) {
	const countsQuery = `
SELECT
	(SELECT count(*) FROM signal.documents WHERE deleted_at IS NULL),
	(SELECT count(*) FROM signal.extractions),
	(SELECT count(*) FROM signal.extractions WHERE summary <> '' AND embedding_synced_at IS NULL),
	(SELECT count(*) FROM signal.subscriptions WHERE is_verified AND unsubscribed_at IS NULL),
	(SELECT count(*) FROM signal.pro_subscriptions WHERE is_verified AND unsubscribed_at IS NULL),
	(SELECT count(*) FROM signal.delivery_candidates),
	(SELECT count(*) FROM signal.delivery_candidates WHERE summary IS NOT NULL AND sent_at IS NULL),
	(SELECT count(*) FROM signal.delivery_candidates WHERE sent_at IS NOT NULL),
	(SELECT count(*) FROM signal.ingest_runs)`

	var stats CatalogStats
	err := p.QueryRow(ctx, countsQuery).Scan(
		&stats.Documents,
		&stats.Extractions,
		&stats.PendingEmbedding,
		&stats.Subscribers,
		&stats.ProSubscribers,
		&stats.Candidates,
		&stats.CandidatesSummarized,
		&stats.CandidatesSent,
		&stats.IngestRuns,
	)
	if err != nil {
		return nil, fmt.Errorf("collect catalog counts: %w", err)
	}

	const lastRunQuery = `
SELECT status, started_at
FROM signal.ingest_runs
ORDER BY started_at DESC
LIMIT 1`

	var (
		status    string
		startedAt time.Time
	)
	err = p.QueryRow(ctx, lastRunQuery).Scan(&status, &startedAt)
	switch {
	case err == nil:
		stats.LastRunStatus = &status
		stats.LastRunStarted = &startedAt
	case IsNoRows(err):
		// No runs yet.
	default:
		return nil, fmt.Errorf("read last ingest run: %w", err)
	}

	return &stats, nil
}

// CountDocumentsByClass breaks the catalog down by collection code.
func (p *Pool) CountDocumentsByClass(ctx context.Context, limit int) ([]DocClassCount, error) {
	const query = `
SELECT doc_class, count(*)
FROM signal.documents
WHERE deleted_at IS NULL
GROUP BY doc_class
ORDER BY count(*) DESC, doc_class
LIMIT NULLIF($1, 0)`

	rows, err := p.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("count documents by class: %w", err)
	}
	defer rows.Close()

	var out []DocClassCount
	for rows.Next() {
		var row DocClassCount
		if err := rows.Scan(&row.DocClass, &row.Documents); err != nil {
			return nil, fmt.Errorf("scan doc class count: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doc class counts: %w", err)
	}
	return out, nil
}
