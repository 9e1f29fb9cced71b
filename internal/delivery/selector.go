package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/similarity"
)

// Selection defaults for the two entry points.
const (
	DefaultDailyTopK               = 10
	DefaultDailyMinSimilarity      = 0.5
	DefaultOnboardingTopK          = 5
	DefaultOnboardingMinSimilarity = 0.01
)

// Searcher finds documents semantically close to a subscriber profile.
type Searcher interface {
	Search(ctx context.Context, query string, matchCount int, matchThreshold float64) ([]similarity.Hit, error)
}

// CandidateRegistrar records picked documents.
type CandidateRegistrar interface {
	RegisterCandidate(ctx context.Context, proSubscriptionID, documentID int64, periodDate time.Time) (bool, error)
}

// SubscriberSource lists the pro subscribers to select for.
type SubscriberSource interface {
	ListActiveProSubscribers(ctx context.Context) ([]db.ProSubscriberRow, error)
}

// Selector picks delivery candidates per subscriber via semantic
// search.
type Selector struct {
	subscribers SubscriberSource
	search      Searcher
	registrar   CandidateRegistrar
	logger      zerolog.Logger
}

// SelectOptions scopes one selection pass.
type SelectOptions struct {
	PeriodDate    time.Time
	TopK          int
	MinSimilarity float64
}

// SelectResult aggregates a pass over many subscribers.
type SelectResult struct {
	Subscribers int
	Registered  int
	Duplicates  int
	Errors      int
}

// SubscriberOutcome reports selection for one subscriber.
type SubscriberOutcome struct {
	Registered int
	Duplicates int
	Errors     int
}

// DailySelectOptions are the defaults for the daily pass.
func DailySelectOptions(periodDate time.Time) SelectOptions {
	return SelectOptions{
		PeriodDate:    periodDate,
		TopK:          DefaultDailyTopK,
		MinSimilarity: DefaultDailyMinSimilarity,
	}
}

// OnboardingSelectOptions are the looser defaults used right after
// signup, when a thin index should still produce a welcome digest.
func OnboardingSelectOptions(periodDate time.Time) SelectOptions {
	return SelectOptions{
		PeriodDate:    periodDate,
		TopK:          DefaultOnboardingTopK,
		MinSimilarity: DefaultOnboardingMinSimilarity,
	}
}

// NewSelector wires the selection pass.
func NewSelector(subscribers SubscriberSource, search Searcher, registrar CandidateRegistrar, logger zerolog.Logger) *Selector {
	return &Selector{
		subscribers: subscribers,
		search:      search,
		registrar:   registrar,
		logger:      logger.With().Str("component", "selector").Logger(),
	}
}

// SelectAll runs selection for every active pro subscriber. Subscribers
// are isolated from each other: a failing search counts an error and
// the pass moves on.
func (s *Selector) SelectAll(ctx context.Context, opts SelectOptions) (SelectResult, error) {
	subscribers, err := s.subscribers.ListActiveProSubscribers(ctx)
	if err != nil {
		return SelectResult{}, err
	}

	result := SelectResult{Subscribers: len(subscribers)}
	for _, subscriber := range subscribers {
		outcome, err := s.SelectFor(ctx, subscriber, opts)
		if err != nil {
			result.Errors++
			s.logger.Error().
				Err(err).
				Int64("pro_subscription_id", subscriber.ProSubscriptionID).
				Msg("candidate selection failed")
			continue
		}
		result.Registered += outcome.Registered
		result.Duplicates += outcome.Duplicates
		result.Errors += outcome.Errors
	}

	s.logger.Info().
		Str("period", opts.PeriodDate.UTC().Format("2006-01-02")).
		Int("subscribers", result.Subscribers).
		Int("registered", result.Registered).
		Int("duplicates", result.Duplicates).
		Int("errors", result.Errors).
		Msg("selection pass finished")
	return result, nil
}

// SelectFor runs selection for one subscriber. A register failure for
// one document is logged and counted while the remaining hits are still
// tried.
func (s *Selector) SelectFor(ctx context.Context, subscriber db.ProSubscriberRow, opts SelectOptions) (SubscriberOutcome, error) {
	query := similarity.BuildQuery(subscriber.CompanyType, subscriber.Keywords)
	hits, err := s.search.Search(ctx, query, opts.TopK, opts.MinSimilarity)
	if err != nil {
		return SubscriberOutcome{}, fmt.Errorf("search for subscription %d: %w", subscriber.ProSubscriptionID, err)
	}

	var outcome SubscriberOutcome
	for _, hit := range hits {
		inserted, err := s.registrar.RegisterCandidate(ctx, subscriber.ProSubscriptionID, hit.DocumentID, opts.PeriodDate)
		if err != nil {
			outcome.Errors++
			s.logger.Error().
				Err(err).
				Int64("pro_subscription_id", subscriber.ProSubscriptionID).
				Int64("document_id", hit.DocumentID).
				Msg("register candidate failed")
			continue
		}
		if inserted {
			outcome.Registered++
		} else {
			outcome.Duplicates++
		}
	}
	return outcome, nil
}
