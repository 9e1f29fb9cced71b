// Package ingest drives one publish-date window through the search
// fetcher and into the catalog, wrapped in an ingest run row for
// observability.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/globaltime"
	"congresssignal.com/signal/internal/govinfo"
)

// Run statuses as persisted on ingest run rows.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WindowFetcher pages one publish-date window of the search index.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]govinfo.Document, govinfo.FetchStats, error)
}

// Store persists fetched documents and run bookkeeping rows.
type Store interface {
	InsertIngestRun(ctx context.Context, windowStart, windowEnd time.Time) (int64, string, error)
	MarkIngestRunCompleted(ctx context.Context, runID int64, finishedAt time.Time, pages, seen, inserted, updated int) error
	MarkIngestRunFailed(ctx context.Context, runID int64, finishedAt time.Time, pages, seen, inserted, updated int, message string) error
	UpsertDocument(ctx context.Context, doc db.DocumentUpsert) (int64, bool, error)
}

// Service runs ingest windows.
type Service struct {
	store   Store
	fetcher WindowFetcher
	logger  zerolog.Logger
}

// Request names the inclusive publish-date window to ingest.
type Request struct {
	WindowStart time.Time
	WindowEnd   time.Time
}

// Result reports one run. A failed fetch or upsert still reports the
// counters for everything else that was stored.
type Result struct {
	RunID        int64
	RunUUID      string
	Status       string
	Pages        int
	Seen         int
	Inserted     int
	Updated      int
	Failed       int
	ErrorMessage string
}

// NewService wires the ingest pipeline.
func NewService(store Store, fetcher WindowFetcher, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// Run fetches the window and upserts every document it saw, then closes
// the run row. Fetch and upsert failures are recorded on the run and in
// the result rather than returned; the error return is reserved for
// bookkeeping failures.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	windowStart := dayOf(req.WindowStart)
	windowEnd := dayOf(req.WindowEnd)
	if windowEnd.Before(windowStart) {
		return nil, fmt.Errorf("window end %s precedes start %s",
			windowEnd.Format("2006-01-02"), windowStart.Format("2006-01-02"))
	}

	runID, runUUID, err := s.store.InsertIngestRun(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	result := &Result{RunID: runID, RunUUID: runUUID}

	s.logger.Info().
		Int64("run_id", runID).
		Str("window_start", windowStart.Format("2006-01-02")).
		Str("window_end", windowEnd.Format("2006-01-02")).
		Msg("ingest run started")

	docs, stats, fetchErr := s.fetcher.FetchWindow(ctx, windowStart, windowEnd)
	result.Pages = stats.Pages
	result.Seen = len(docs)

	ingestedAt := globaltime.UTC()
	var upsertErrs []error
	for _, doc := range docs {
		_, inserted, err := s.store.UpsertDocument(ctx, upsertFromDocument(doc, ingestedAt))
		if err != nil {
			result.Failed++
			upsertErrs = append(upsertErrs, err)
			s.logger.Error().
				Err(err).
				Int64("run_id", runID).
				Str("package_id", doc.PackageID).
				Str("granule_id", doc.GranuleID).
				Msg("document upsert failed")
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if fetchErr != nil || len(upsertErrs) > 0 {
		failure := errors.Join(append([]error{fetchErr}, upsertErrs...)...)

		result.Status = StatusFailed
		result.ErrorMessage = failure.Error()
		if err := s.store.MarkIngestRunFailed(ctx, runID, globaltime.UTC(),
			result.Pages, result.Seen, result.Inserted, result.Updated, failure.Error()); err != nil {
			return result, err
		}
		s.logger.Error().
			Err(failure).
			Int64("run_id", runID).
			Int("pages", result.Pages).
			Int("seen", result.Seen).
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Int("failed", result.Failed).
			Msg("ingest run failed")
		return result, nil
	}

	result.Status = StatusCompleted
	if err := s.store.MarkIngestRunCompleted(ctx, runID, globaltime.UTC(),
		result.Pages, result.Seen, result.Inserted, result.Updated); err != nil {
		return result, err
	}
	s.logger.Info().
		Int64("run_id", runID).
		Int("pages", result.Pages).
		Int("seen", result.Seen).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Msg("ingest run completed")
	return result, nil
}

func upsertFromDocument(doc govinfo.Document, ingestedAt time.Time) db.DocumentUpsert {
	return db.DocumentUpsert{
		PackageID:    doc.PackageID,
		GranuleID:    doc.GranuleID,
		Title:        doc.Title,
		DocClass:     doc.DocClass,
		PublishDate:  doc.PublishDate,
		MetadataLine: doc.MetadataLine,
		Teaser:       doc.Teaser,
		PDFURL:       doc.PDFURL,
		HTMLURL:      doc.HTMLURL,
		DetailsURL:   doc.DetailsURL,
		IngestedAt:   ingestedAt,
	}
}

func dayOf(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
