package db

import (
	"context"
	"fmt"
	"time"
)

// ExtractionInsert carries validated extraction fields for one document.
type ExtractionInsert struct {
	DocumentID int64
	Title      string
	Companies  []string
	Sectors    []string
	Relevance  []string
	Summary    string
}

// ExtractionTarget is a catalog row still waiting for extraction.
type ExtractionTarget struct {
	DocumentID int64
	HTMLURL    string
}

// ExtractionDigestRow joins one extraction with its document for digest
// assembly.
type ExtractionDigestRow struct {
	ExtractionID  int64
	DocumentID    int64
	Title         string
	Companies     []string
	Sectors       []string
	Relevance     []string
	Summary       string
	DocumentTitle string
	DetailsURL    *string
	HTMLURL       *string
	PDFURL        *string
}

// InsertExtraction stores extraction fields for a document. A document
// keeps its first extraction; replays report inserted=false.
func (p *Pool) InsertExtraction(ctx context.Context, row ExtractionInsert) (bool, error) {
	const query = `
INSERT INTO signal.extractions (document_id, title, companies, sectors, relevance, summary)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (document_id) DO NOTHING`

	tag, err := p.Exec(ctx, query,
		row.DocumentID,
		row.Title,
		JoinList(row.Companies),
		JoinList(row.Sectors),
		JoinList(row.Relevance),
		row.Summary,
	)
	if err != nil {
		return false, fmt.Errorf("insert extraction for document %d: %w", row.DocumentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListDocumentsNeedingExtraction returns documents that have an HTML
// rendition but no extraction yet, oldest first.
func (p *Pool) ListDocumentsNeedingExtraction(ctx context.Context, date *time.Time, limit int) ([]ExtractionTarget, error) {
	const query = `
SELECT d.document_id, d.html_url
FROM signal.documents d
LEFT JOIN signal.extractions e ON e.document_id = d.document_id
WHERE e.extraction_id IS NULL
	AND d.html_url IS NOT NULL
	AND d.deleted_at IS NULL
	AND ($1::date IS NULL OR d.publish_date = $1::date)
ORDER BY d.document_id
LIMIT NULLIF($2, 0)`

	var day any
	if date != nil {
		day = date.UTC().Format("2006-01-02")
	}

	rows, err := p.Query(ctx, query, day, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents needing extraction: %w", err)
	}
	defer rows.Close()

	var out []ExtractionTarget
	for rows.Next() {
		var target ExtractionTarget
		if err := rows.Scan(&target.DocumentID, &target.HTMLURL); err != nil {
			return nil, fmt.Errorf("scan extraction target: %w", err)
		}
		out = append(out, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extraction targets: %w", err)
	}
	return out, nil
}

// ListExtractionsForDate returns every extraction whose document was
// published on the given day, joined with the document fields digest
// rendering needs.
func (p *Pool) ListExtractionsForDate(ctx context.Context, date time.Time) ([]ExtractionDigestRow, error) {
	const query = `
SELECT e.extraction_id, e.document_id, e.title, e.companies, e.sectors, e.relevance, e.summary,
	d.title, d.details_url, d.html_url, d.pdf_url
FROM signal.extractions e
JOIN signal.documents d ON d.document_id = e.document_id
WHERE d.publish_date = $1::date AND d.deleted_at IS NULL
ORDER BY e.extraction_id`

	rows, err := p.Query(ctx, query, date.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list extractions for date: %w", err)
	}
	defer rows.Close()

	var out []ExtractionDigestRow
	for rows.Next() {
		var (
			row       ExtractionDigestRow
			companies string
			sectors   string
			relevance string
		)
		if err := rows.Scan(
			&row.ExtractionID,
			&row.DocumentID,
			&row.Title,
			&companies,
			&sectors,
			&relevance,
			&row.Summary,
			&row.DocumentTitle,
			&row.DetailsURL,
			&row.HTMLURL,
			&row.PDFURL,
		); err != nil {
			return nil, fmt.Errorf("scan extraction digest row: %w", err)
		}
		row.Companies = SplitList(companies)
		row.Sectors = SplitList(sectors)
		row.Relevance = SplitList(relevance)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extraction digest rows: %w", err)
	}
	return out, nil
}

// ListExtractionsPendingEmbedding returns extraction ids that carry a
// summary but have not been pushed to the embedding index.
func (p *Pool) ListExtractionsPendingEmbedding(ctx context.Context, limit int) ([]int64, error) {
	const query = `
SELECT extraction_id
FROM signal.extractions
WHERE summary <> '' AND embedding_synced_at IS NULL
ORDER BY extraction_id
LIMIT NULLIF($1, 0)`

	rows, err := p.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list extractions pending embedding: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending extraction id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending extraction ids: %w", err)
	}
	return out, nil
}

// MarkExtractionEmbeddingSynced records that the embedding index has
// accepted one extraction.
func (p *Pool) MarkExtractionEmbeddingSynced(ctx context.Context, extractionID int64, at time.Time) error {
	const query = `
UPDATE signal.extractions
SET embedding_synced_at = $2
WHERE extraction_id = $1`

	if _, err := p.Exec(ctx, query, extractionID, at.UTC()); err != nil {
		return fmt.Errorf("mark extraction %d embedding synced: %w", extractionID, err)
	}
	return nil
}
