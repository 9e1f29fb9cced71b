package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
	"congresssignal.com/signal/internal/mail"
	"congresssignal.com/signal/internal/match"
)

// StandardStore lists the extractions and subscribers a standard digest
// run needs. *db.Pool satisfies it.
type StandardStore interface {
	ListExtractionsForDate(ctx context.Context, date time.Time) ([]db.ExtractionDigestRow, error)
	ListActiveSubscribers(ctx context.Context) ([]db.SubscriberRow, error)
}

// Mailer sends one rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Standard assembles and sends the rule-matched standard digest.
type Standard struct {
	store  StandardStore
	mailer Mailer
	from   string
	logger zerolog.Logger
}

// NewStandard builds a standard digest sender using from as the sender
// address.
func NewStandard(store StandardStore, mailer Mailer, from string, logger zerolog.Logger) *Standard {
	return &Standard{
		store:  store,
		mailer: mailer,
		from:   from,
		logger: logger.With().Str("component", "digest").Logger(),
	}
}

// StandardResult reports what one standard digest run did.
type StandardResult struct {
	Documents   int
	Subscribers int
	Sent        int
	Skipped     int
	Failed      int
}

// Run matches the date's extractions against every active subscriber
// and emails each one their personal digest. Subscribers with no
// matching documents are skipped. A send failure is counted and the
// run continues with the next subscriber.
func (d *Standard) Run(ctx context.Context, date time.Time) (StandardResult, error) {
	var result StandardResult

	rows, err := d.store.ListExtractionsForDate(ctx, date)
	if err != nil {
		return result, fmt.Errorf("list extractions: %w", err)
	}
	result.Documents = len(rows)

	subscribers, err := d.store.ListActiveSubscribers(ctx)
	if err != nil {
		return result, fmt.Errorf("list subscribers: %w", err)
	}
	result.Subscribers = len(subscribers)

	for _, sub := range subscribers {
		rule := match.Rule{
			Sectors:   sub.Sectors,
			Threshold: sub.RelevanceThreshold,
			Keywords:  sub.Keywords,
		}

		var items []StandardItem
		for _, row := range rows {
			if match.Matches(rule, profileFor(row)) {
				items = append(items, standardItemFor(row))
			}
		}
		if len(items) == 0 {
			result.Skipped++
			continue
		}

		msg := mail.Message{
			From:    d.from,
			To:      []string{sub.Email},
			Subject: StandardSubject(len(items), date),
			HTML:    RenderStandard(date, items),
		}
		if err := d.mailer.Send(ctx, msg); err != nil {
			result.Failed++
			d.logger.Error().Err(err).
				Str("email", sub.Email).
				Msg("standard digest send failed")
			continue
		}
		result.Sent++
		d.logger.Debug().
			Str("email", sub.Email).
			Int("items", len(items)).
			Msg("standard digest sent")
	}

	d.logger.Info().
		Str("date", date.UTC().Format("2006-01-02")).
		Int("documents", result.Documents).
		Int("subscribers", result.Subscribers).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("standard digest run finished")
	return result, nil
}

func profileFor(row db.ExtractionDigestRow) match.Profile {
	title := row.Title
	if strings.TrimSpace(title) == "" {
		title = row.DocumentTitle
	}
	return match.Profile{
		Title:     title,
		Summary:   row.Summary,
		Companies: row.Companies,
		Sectors:   row.Sectors,
		Relevance: row.Relevance,
	}
}

func standardItemFor(row db.ExtractionDigestRow) StandardItem {
	title := row.Title
	if strings.TrimSpace(title) == "" {
		title = row.DocumentTitle
	}
	item := StandardItem{
		Title:     title,
		Summary:   row.Summary,
		Sectors:   row.Sectors,
		Relevance: row.Relevance,
		Companies: row.Companies,
	}
	switch {
	case row.DetailsURL != nil && *row.DetailsURL != "":
		item.LinkURL = *row.DetailsURL
	case row.HTMLURL != nil && *row.HTMLURL != "":
		item.LinkURL = *row.HTMLURL
	case row.PDFURL != nil && *row.PDFURL != "":
		item.LinkURL = *row.PDFURL
	}
	return item
}
