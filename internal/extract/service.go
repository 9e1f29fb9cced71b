package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/sectors"
	docschema "congresssignal.com/signal/schema"
)

// ExtractionPrompt instructs the collaborator what to pull out of each
// document page.
const ExtractionPrompt = "Extract key information from this government document. " +
	"Provide a short title, list every company or organization mentioned by name, " +
	"list the business sectors affected, rate how consequential the " +
	"document is for businesses in each sector as low, medium, or high, and write " +
	"a 2-3 sentence plain-language summary of what the document does."

// batchSize is how many documents go into one scrape job.
const batchSize = 50

// Store is the catalog surface the extraction stages read and write.
type Store interface {
	ListDocumentsNeedingExtraction(ctx context.Context, date *time.Time, limit int) ([]db.ExtractionTarget, error)
	InsertExtraction(ctx context.Context, row db.ExtractionInsert) (bool, error)
	ListExtractionsPendingEmbedding(ctx context.Context, limit int) ([]int64, error)
	MarkExtractionEmbeddingSynced(ctx context.Context, extractionID int64, at time.Time) error
}

// BatchScraper produces structured JSON for a batch of URLs.
type BatchScraper interface {
	ScrapeBatch(ctx context.Context, urls []string, prompt string, schema json.RawMessage) ([]BatchItem, error)
}

// EmbeddingGenerator pushes one extraction into the embedding index.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, extractionID int64) error
}

// Service runs the extraction and embedding-backfill stages.
type Service struct {
	store    Store
	scraper  BatchScraper
	embedder EmbeddingGenerator
	logger   zerolog.Logger
}

// RunOptions scopes one extraction pass.
type RunOptions struct {
	Date  *time.Time
	Limit int
}

// RunResult reports what one extraction pass did.
type RunResult struct {
	Eligible   int
	Batches    int
	Extracted  int
	Duplicates int
	Invalid    int
	Failed     int
}

// NewService wires the extraction stages.
func NewService(store Store, scraper BatchScraper, embedder EmbeddingGenerator, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		scraper:  scraper,
		embedder: embedder,
		logger:   logger.With().Str("component", "extract").Logger(),
	}
}

// Run scrapes every document that has an HTML rendition but no
// extraction yet. Each batch stands alone: a failed scrape job marks
// its documents failed and later batches still run. Result items that
// do not validate against the extraction schema are dropped.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	targets, err := s.store.ListDocumentsNeedingExtraction(ctx, opts.Date, opts.Limit)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Eligible: len(targets)}
	if len(targets) == 0 {
		s.logger.Info().Msg("no documents need extraction")
		return result, nil
	}

	documentByURL := make(map[string]int64, len(targets))
	for _, target := range targets {
		if _, ok := documentByURL[target.HTMLURL]; !ok {
			documentByURL[target.HTMLURL] = target.DocumentID
		}
	}

	schema := docschema.ExtractionSchemaJSON()
	for start := 0; start < len(targets); start += batchSize {
		end := min(start+batchSize, len(targets))
		batch := targets[start:end]
		result.Batches++

		urls := make([]string, 0, len(batch))
		for _, target := range batch {
			urls = append(urls, target.HTMLURL)
		}

		items, err := s.scraper.ScrapeBatch(ctx, urls, ExtractionPrompt, schema)
		if err != nil {
			result.Failed += len(batch)
			s.logger.Error().
				Err(err).
				Int("batch_size", len(batch)).
				Msg("batch scrape failed")
			continue
		}

		for _, item := range items {
			documentID, ok := documentByURL[item.URL]
			if !ok {
				result.Invalid++
				s.logger.Warn().
					Str("url", item.URL).
					Msg("scrape result for unknown URL")
				continue
			}

			fields, err := docschema.ValidateExtractionPayload(item.JSON)
			if err != nil {
				result.Invalid++
				s.logger.Warn().
					Err(err).
					Int64("document_id", documentID).
					Msg("extraction payload rejected")
				continue
			}

			inserted, err := s.store.InsertExtraction(ctx, db.ExtractionInsert{
				DocumentID: documentID,
				Title:      strings.TrimSpace(fields.Title),
				Companies:  fields.CompaniesMentioned,
				Sectors:    sectors.NormalizeList(fields.Sectors),
				Relevance:  fields.Relevance,
				Summary:    strings.TrimSpace(fields.Summary),
			})
			if err != nil {
				result.Failed++
				s.logger.Error().
					Err(err).
					Int64("document_id", documentID).
					Msg("store extraction failed")
				continue
			}
			if inserted {
				result.Extracted++
			} else {
				result.Duplicates++
			}
		}
	}

	s.logger.Info().
		Int("eligible", result.Eligible).
		Int("batches", result.Batches).
		Int("extracted", result.Extracted).
		Int("duplicates", result.Duplicates).
		Int("invalid", result.Invalid).
		Int("failed", result.Failed).
		Msg("extraction pass finished")
	return result, nil
}
