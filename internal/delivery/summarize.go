package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultSummarizeConcurrency bounds parallel scrape calls.
const DefaultSummarizeConcurrency = 4

// summarySchemaJSON constrains the collaborator to a single field.
var summarySchemaJSON = json.RawMessage(`{
	"type": "object",
	"required": ["summary"],
	"properties": {
		"summary": {"type": "string"}
	}
}`)

// SummaryStore is the tracker surface the summarizer needs.
type SummaryStore interface {
	CandidatesNeedingSummary(ctx context.Context, periodDate time.Time) ([]SummaryTask, error)
	SetSummary(ctx context.Context, candidateID int64, summary string) error
}

// PageSummarizer produces structured JSON for one page.
type PageSummarizer interface {
	Scrape(ctx context.Context, url, prompt string, schema json.RawMessage) (json.RawMessage, error)
}

// Summarizer writes personalized summaries for candidates that lack
// one.
type Summarizer struct {
	store       SummaryStore
	scraper     PageSummarizer
	concurrency int
	logger      zerolog.Logger
}

// SummarizeResult reports one pass. A candidate with no HTML rendition
// counts under both Skipped and Failed.
type SummarizeResult struct {
	Tasks      int
	Summarized int
	Skipped    int
	Failed     int
}

// NewSummarizer wires the summarize pass. A non-positive concurrency
// falls back to the default.
func NewSummarizer(store SummaryStore, scraper PageSummarizer, concurrency int, logger zerolog.Logger) *Summarizer {
	if concurrency <= 0 {
		concurrency = DefaultSummarizeConcurrency
	}
	return &Summarizer{
		store:       store,
		scraper:     scraper,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "summarize").Logger(),
	}
}

// BuildInstruction produces the personalized summarize prompt for one
// subscriber profile.
func BuildInstruction(companyType string, keywords []string) string {
	audience := strings.TrimSpace(companyType)
	if audience == "" {
		audience = "business"
	}
	instruction := fmt.Sprintf(
		"Summarize this government document in 2-3 sentences focusing on what matters for a %s company.",
		audience,
	)

	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > 0 {
		instruction += fmt.Sprintf(" Pay particular attention to: %s.", strings.Join(cleaned, ", "))
	}
	return instruction
}

// Run summarizes every candidate in the period that still needs it,
// fanning out over a bounded worker group. One candidate's failure
// never aborts its siblings; it is logged, counted, and left in the
// candidate state for a later pass.
func (s *Summarizer) Run(ctx context.Context, periodDate time.Time) (SummarizeResult, error) {
	tasks, err := s.store.CandidatesNeedingSummary(ctx, periodDate)
	if err != nil {
		return SummarizeResult{}, err
	}

	result := SummarizeResult{Tasks: len(tasks)}
	if len(tasks) == 0 {
		s.logger.Info().Msg("no candidates need summaries")
		return result, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for _, task := range tasks {
		group.Go(func() error {
			if task.HTMLURL == nil || strings.TrimSpace(*task.HTMLURL) == "" {
				mu.Lock()
				result.Skipped++
				result.Failed++
				mu.Unlock()
				s.logger.Warn().
					Int64("candidate_id", task.CandidateID).
					Msg("candidate has no html rendition to summarize")
				return nil
			}

			summary, err := s.summarizeTask(groupCtx, task)
			if err != nil {
				mu.Lock()
				result.Failed++
				mu.Unlock()
				s.logger.Error().
					Err(err).
					Int64("candidate_id", task.CandidateID).
					Msg("summarize failed")
				return nil
			}

			if err := s.store.SetSummary(groupCtx, task.CandidateID, summary); err != nil {
				mu.Lock()
				result.Failed++
				mu.Unlock()
				s.logger.Error().
					Err(err).
					Int64("candidate_id", task.CandidateID).
					Msg("store summary failed")
				return nil
			}

			mu.Lock()
			result.Summarized++
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	s.logger.Info().
		Str("period", periodDate.UTC().Format("2006-01-02")).
		Int("tasks", result.Tasks).
		Int("summarized", result.Summarized).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("summarize pass finished")
	return result, nil
}

func (s *Summarizer) summarizeTask(ctx context.Context, task SummaryTask) (string, error) {
	prompt := BuildInstruction(task.CompanyType, task.Keywords)
	raw, err := s.scraper.Scrape(ctx, *task.HTMLURL, prompt, summarySchemaJSON)
	if err != nil {
		return "", err
	}

	var decoded struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode summary payload: %w", err)
	}
	summary := strings.TrimSpace(decoded.Summary)
	if summary == "" {
		return "", fmt.Errorf("collaborator returned an empty summary")
	}
	return summary, nil
}
