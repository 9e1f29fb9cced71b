package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/delivery"
	"congresssignal.com/signal/internal/globaltime"
	"congresssignal.com/signal/internal/mail"
)

// ProSubscriberSource lists active pro subscribers. *db.Pool satisfies
// it.
type ProSubscriberSource interface {
	ListActiveProSubscribers(ctx context.Context) ([]db.ProSubscriberRow, error)
}

// ProTracker exposes the delivery bookkeeping a pro send needs.
// *delivery.Tracker satisfies it.
type ProTracker interface {
	PendingForSubscription(ctx context.Context, proSubscriptionID int64, periodDate time.Time) ([]delivery.PendingItem, error)
	MarkSent(ctx context.Context, candidateIDs []int64, at time.Time) (int64, error)
}

// Pro assembles and sends the pro digest from summarized delivery
// candidates.
type Pro struct {
	subscribers ProSubscriberSource
	tracker     ProTracker
	mailer      Mailer
	from        string
	logger      zerolog.Logger
}

// NewPro builds a pro digest sender using from as the sender address.
func NewPro(subscribers ProSubscriberSource, tracker ProTracker, mailer Mailer, from string, logger zerolog.Logger) *Pro {
	return &Pro{
		subscribers: subscribers,
		tracker:     tracker,
		mailer:      mailer,
		from:        from,
		logger:      logger.With().Str("component", "digest-pro").Logger(),
	}
}

// ProResult reports what one pro digest run did.
type ProResult struct {
	Subscribers int
	Sent        int
	Skipped     int
	Failed      int
	Items       int
}

// Run sends the period's pro digest to every active pro subscriber.
// Subscribers with nothing summarized and unsent are skipped; one
// subscriber's failure does not stop the rest.
func (d *Pro) Run(ctx context.Context, periodDate time.Time) (ProResult, error) {
	var result ProResult

	subscribers, err := d.subscribers.ListActiveProSubscribers(ctx)
	if err != nil {
		return result, fmt.Errorf("list pro subscribers: %w", err)
	}
	result.Subscribers = len(subscribers)

	for _, sub := range subscribers {
		sent, err := d.SendFor(ctx, sub, periodDate)
		switch {
		case err != nil:
			result.Failed++
			d.logger.Error().Err(err).
				Str("email", sub.Email).
				Msg("pro digest send failed")
		case sent == 0:
			result.Skipped++
		default:
			result.Sent++
			result.Items += sent
		}
	}

	d.logger.Info().
		Str("period", periodDate.UTC().Format("2006-01-02")).
		Int("subscribers", result.Subscribers).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("items", result.Items).
		Msg("pro digest run finished")
	return result, nil
}

// SendFor sends one subscriber's pro digest for the period and returns
// how many items it carried. Zero with a nil error means there was
// nothing ready to send. Candidates are stamped sent only after the
// message is accepted; if stamping fails the rows stay pending and the
// next run may deliver them again.
func (d *Pro) SendFor(ctx context.Context, sub db.ProSubscriberRow, periodDate time.Time) (int, error) {
	items, err := d.tracker.PendingForSubscription(ctx, sub.ProSubscriptionID, periodDate)
	if err != nil {
		return 0, fmt.Errorf("list pending items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	msg := mail.Message{
		From:    d.from,
		To:      []string{sub.Email},
		Subject: ProSubject(len(items), periodDate),
		HTML:    RenderPro(periodDate, items),
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CandidateID)
	}
	if _, err := d.tracker.MarkSent(ctx, ids, globaltime.UTC()); err != nil {
		return len(items), fmt.Errorf("mark sent after delivery: %w", err)
	}

	d.logger.Debug().
		Str("email", sub.Email).
		Int("items", len(items)).
		Msg("pro digest sent")
	return len(items), nil
}
