package db

import (
	"context"
	"fmt"
	"time"
)

// DocumentUpsert carries one normalized search hit for catalog persistence.
type DocumentUpsert struct {
	PackageID    string
	GranuleID    string
	Title        string
	DocClass     string
	PublishDate  time.Time
	MetadataLine string
	Teaser       string
	PDFURL       *string
	HTMLURL      *string
	DetailsURL   *string
	IngestedAt   time.Time
}

// DocumentRow is one catalog row as read back for listings and export.
type DocumentRow struct {
	DocumentID   int64
	DocumentUUID string
	PackageID    string
	GranuleID    string
	Title        string
	DocClass     string
	PublishDate  time.Time
	MetadataLine string
	Teaser       string
	PDFURL       *string
	HTMLURL      *string
	DetailsURL   *string
	IngestedAt   time.Time
}

// DocumentListOptions filters ListDocuments. A zero Limit disables the
// row cap, which export relies on.
type DocumentListOptions struct {
	Date     *time.Time
	DocClass string
	Limit    int
}

// UpsertDocument inserts or refreshes one catalog row keyed by
// (package_id, granule_id) and reports whether a new row was created.
func (p *Pool) UpsertDocument(ctx context.Context, doc DocumentUpsert) (int64, bool, error) {
	const query = `
INSERT INTO signal.documents (
	package_id, granule_id, title, doc_class, publish_date,
	metadata_line, teaser, pdf_url, html_url, details_url, ingested_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (package_id, granule_id) DO UPDATE SET
	title = EXCLUDED.title,
	doc_class = EXCLUDED.doc_class,
	publish_date = EXCLUDED.publish_date,
	metadata_line = EXCLUDED.metadata_line,
	teaser = EXCLUDED.teaser,
	pdf_url = EXCLUDED.pdf_url,
	html_url = EXCLUDED.html_url,
	details_url = EXCLUDED.details_url,
	ingested_at = EXCLUDED.ingested_at,
	deleted_at = NULL,
	updated_at = now()
RETURNING document_id, (xmax = 0)`

	var (
		documentID int64
		inserted   bool
	)
	err := p.QueryRow(ctx, query,
		doc.PackageID,
		doc.GranuleID,
		doc.Title,
		doc.DocClass,
		doc.PublishDate.UTC(),
		doc.MetadataLine,
		doc.Teaser,
		doc.PDFURL,
		doc.HTMLURL,
		doc.DetailsURL,
		doc.IngestedAt.UTC(),
	).Scan(&documentID, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert document %s/%s: %w", doc.PackageID, doc.GranuleID, err)
	}
	return documentID, inserted, nil
}

// GetDocument loads one catalog row by its numeric identifier.
func (p *Pool) GetDocument(ctx context.Context, documentID int64) (*DocumentRow, error) {
	const query = `
SELECT document_id, document_uuid, package_id, granule_id, title, doc_class,
	publish_date, metadata_line, teaser, pdf_url, html_url, details_url, ingested_at
FROM signal.documents
WHERE document_id = $1 AND deleted_at IS NULL`

	var row DocumentRow
	err := p.QueryRow(ctx, query, documentID).Scan(
		&row.DocumentID,
		&row.DocumentUUID,
		&row.PackageID,
		&row.GranuleID,
		&row.Title,
		&row.DocClass,
		&row.PublishDate,
		&row.MetadataLine,
		&row.Teaser,
		&row.PDFURL,
		&row.HTMLURL,
		&row.DetailsURL,
		&row.IngestedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get document %d: %w", documentID, err)
	}
	return &row, nil
}

// ListDocuments returns catalog rows newest first, optionally filtered
// by publish date and document class.
func (p *Pool) ListDocuments(ctx context.Context, opts DocumentListOptions) ([]DocumentRow, error) {
	const query = `
SELECT document_id, document_uuid, package_id, granule_id, title, doc_class,
	publish_date, metadata_line, teaser, pdf_url, html_url, details_url, ingested_at
FROM signal.documents
WHERE deleted_at IS NULL
	AND ($1::date IS NULL OR publish_date = $1::date)
	AND ($2 = '' OR doc_class = $2)
ORDER BY publish_date DESC, document_id DESC
LIMIT NULLIF($3, 0)`

	var date any
	if opts.Date != nil {
		date = opts.Date.UTC().Format("2006-01-02")
	}

	rows, err := p.Query(ctx, query, date, opts.DocClass, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(
			&row.DocumentID,
			&row.DocumentUUID,
			&row.PackageID,
			&row.GranuleID,
			&row.Title,
			&row.DocClass,
			&row.PublishDate,
			&row.MetadataLine,
			&row.Teaser,
			&row.PDFURL,
			&row.HTMLURL,
			&row.DetailsURL,
			&row.IngestedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return out, nil
}
