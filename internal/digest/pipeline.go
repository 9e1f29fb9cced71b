package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/delivery"
)

// ProfileSource loads one pro subscriber by id. *db.Pool satisfies it.
type ProfileSource interface {
	GetProSubscriber(ctx context.Context, proSubscriptionID int64) (*db.ProSubscriberRow, error)
}

// CandidateSelector picks documents into the delivery pipeline.
// *delivery.Selector satisfies it.
type CandidateSelector interface {
	SelectAll(ctx context.Context, opts delivery.SelectOptions) (delivery.SelectResult, error)
	SelectFor(ctx context.Context, sub db.ProSubscriberRow, opts delivery.SelectOptions) (delivery.SubscriberOutcome, error)
}

// CandidateSummarizer writes personalized summaries for selected
// candidates. *delivery.Summarizer satisfies it.
type CandidateSummarizer interface {
	Run(ctx context.Context, periodDate time.Time) (delivery.SummarizeResult, error)
}

// ProPipeline chains selection, summarization and sending into the two
// pro entry points: the daily batch and single-subscriber onboarding.
type ProPipeline struct {
	profiles   ProfileSource
	selector   CandidateSelector
	summarizer CandidateSummarizer
	sender     *Pro
	logger     zerolog.Logger
}

// NewProPipeline wires the pro digest stages together.
func NewProPipeline(profiles ProfileSource, selector CandidateSelector, summarizer CandidateSummarizer, sender *Pro, logger zerolog.Logger) *ProPipeline {
	return &ProPipeline{
		profiles:   profiles,
		selector:   selector,
		summarizer: summarizer,
		sender:     sender,
		logger:     logger.With().Str("component", "pro-pipeline").Logger(),
	}
}

// RunDaily selects, summarizes and sends the period's pro digest for
// every active pro subscriber.
func (p *ProPipeline) RunDaily(ctx context.Context, periodDate time.Time) error {
	if _, err := p.selector.SelectAll(ctx, delivery.DailySelectOptions(periodDate)); err != nil {
		return fmt.Errorf("select candidates: %w", err)
	}
	if _, err := p.summarizer.Run(ctx, periodDate); err != nil {
		return fmt.Errorf("summarize candidates: %w", err)
	}
	if _, err := p.sender.Run(ctx, periodDate); err != nil {
		return fmt.Errorf("send digests: %w", err)
	}
	return nil
}

// OnboardSubscriber runs the pipeline for one newly verified pro
// subscriber with the looser onboarding selection so their first digest
// arrives without waiting for the next daily batch.
func (p *ProPipeline) OnboardSubscriber(ctx context.Context, proSubscriptionID int64, periodDate time.Time) error {
	sub, err := p.profiles.GetProSubscriber(ctx, proSubscriptionID)
	if err != nil {
		return fmt.Errorf("load pro subscriber %d: %w", proSubscriptionID, err)
	}

	outcome, err := p.selector.SelectFor(ctx, *sub, delivery.OnboardingSelectOptions(periodDate))
	if err != nil {
		return fmt.Errorf("select candidates: %w", err)
	}
	if outcome.Registered == 0 && outcome.Duplicates == 0 {
		p.logger.Info().
			Int64("pro_subscription_id", proSubscriptionID).
			Msg("onboarding found no candidates")
		return nil
	}

	if _, err := p.summarizer.Run(ctx, periodDate); err != nil {
		return fmt.Errorf("summarize candidates: %w", err)
	}

	sent, err := p.sender.SendFor(ctx, *sub, periodDate)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	p.logger.Info().
		Int64("pro_subscription_id", proSubscriptionID).
		Int("items", sent).
		Msg("onboarding digest finished")
	return nil
}
