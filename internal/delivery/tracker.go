package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"congresssignal.com/signal/internal/db"
)

// Tracker persists delivery candidates and their lifecycle transitions.
type Tracker struct {
	pool   *db.Pool
	logger zerolog.Logger
}

// NewTracker wires the tracker to the database.
func NewTracker(pool *db.Pool, logger zerolog.Logger) *Tracker {
	return &Tracker{
		pool:   pool,
		logger: logger.With().Str("component", "delivery").Logger(),
	}
}

// RegisterCandidate records that a document was picked for a subscriber
// in a period. Replays of the same triple are absorbed and report
// false.
func (t *Tracker) RegisterCandidate(ctx context.Context, proSubscriptionID, documentID int64, periodDate time.Time) (bool, error) {
	const query = `
INSERT INTO signal.delivery_candidates (pro_subscription_id, document_id, period_date)
VALUES ($1, $2, $3::date)
ON CONFLICT (pro_subscription_id, document_id, period_date) DO NOTHING`

	tag, err := t.pool.Exec(ctx, query, proSubscriptionID, documentID, formatDay(periodDate))
	if err != nil {
		return false, fmt.Errorf("register candidate sub=%d doc=%d: %w", proSubscriptionID, documentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetSummary stores the personalized summary for one candidate, moving
// it to the summarized state. Re-running a summarize pass overwrites
// with the fresh text.
func (t *Tracker) SetSummary(ctx context.Context, candidateID int64, summary string) error {
	const query = `
UPDATE signal.delivery_candidates
SET summary = $2
WHERE candidate_id = $1`

	if _, err := t.pool.Exec(ctx, query, candidateID, summary); err != nil {
		return fmt.Errorf("set summary for candidate %d: %w", candidateID, err)
	}
	return nil
}

// ListCandidates returns every candidate in a period, grouped by
// subscriber.
func (t *Tracker) ListCandidates(ctx context.Context, periodDate time.Time) ([]Candidate, error) {
	const query = `
SELECT candidate_id, pro_subscription_id, document_id, period_date, summary, sent_at
FROM signal.delivery_candidates
WHERE period_date = $1::date
ORDER BY pro_subscription_id, candidate_id`

	rows, err := t.pool.Query(ctx, query, formatDay(periodDate))
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var candidate Candidate
		if err := rows.Scan(
			&candidate.CandidateID,
			&candidate.ProSubscriptionID,
			&candidate.DocumentID,
			&candidate.PeriodDate,
			&candidate.Summary,
			&candidate.SentAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		out = append(out, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}
	return out, nil
}

// CandidatesNeedingSummary returns the period's candidates that still
// lack a summary, joined with the document and subscriber fields the
// summarizer personalizes with.
func (t *Tracker) CandidatesNeedingSummary(ctx context.Context, periodDate time.Time) ([]SummaryTask, error) {
	const query = `
SELECT c.candidate_id, c.document_id, d.title, d.html_url, p.company_type, p.keywords
FROM signal.delivery_candidates c
JOIN signal.documents d ON d.document_id = c.document_id
JOIN signal.pro_subscriptions p ON p.pro_subscription_id = c.pro_subscription_id
WHERE c.period_date = $1::date AND c.summary IS NULL AND c.sent_at IS NULL
ORDER BY c.candidate_id`

	rows, err := t.pool.Query(ctx, query, formatDay(periodDate))
	if err != nil {
		return nil, fmt.Errorf("list candidates needing summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryTask
	for rows.Next() {
		var (
			task     SummaryTask
			keywords string
		)
		if err := rows.Scan(
			&task.CandidateID,
			&task.DocumentID,
			&task.Title,
			&task.HTMLURL,
			&task.CompanyType,
			&keywords,
		); err != nil {
			return nil, fmt.Errorf("scan summary task: %w", err)
		}
		task.Keywords = db.SplitList(keywords)
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary tasks: %w", err)
	}
	return out, nil
}

// PendingForSubscription returns one subscriber's summarized, unsent
// candidates for a period.
func (t *Tracker) PendingForSubscription(ctx context.Context, proSubscriptionID int64, periodDate time.Time) ([]PendingItem, error) {
	const query = `
SELECT c.candidate_id, c.document_id, d.title, c.summary, d.details_url, d.html_url, d.pdf_url
FROM signal.delivery_candidates c
JOIN signal.documents d ON d.document_id = c.document_id
WHERE c.pro_subscription_id = $1
	AND c.period_date = $2::date
	AND c.summary IS NOT NULL
	AND c.sent_at IS NULL
ORDER BY c.candidate_id`

	rows, err := t.pool.Query(ctx, query, proSubscriptionID, formatDay(periodDate))
	if err != nil {
		return nil, fmt.Errorf("list pending for subscription %d: %w", proSubscriptionID, err)
	}
	defer rows.Close()

	var out []PendingItem
	for rows.Next() {
		var (
			item    PendingItem
			summary *string
		)
		if err := rows.Scan(
			&item.CandidateID,
			&item.DocumentID,
			&item.Title,
			&summary,
			&item.DetailsURL,
			&item.HTMLURL,
			&item.PDFURL,
		); err != nil {
			return nil, fmt.Errorf("scan pending item: %w", err)
		}
		if summary != nil {
			item.Summary = *summary
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending items: %w", err)
	}
	return out, nil
}

// MarkSent stamps candidates as delivered. Rows already sent keep their
// first timestamp; the count of newly stamped rows is returned.
func (t *Tracker) MarkSent(ctx context.Context, candidateIDs []int64, at time.Time) (int64, error) {
	if len(candidateIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(candidateIDs))
	args := make([]any, 0, len(candidateIDs)+1)
	args = append(args, at.UTC())
	for i, id := range candidateIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := fmt.Sprintf(`
UPDATE signal.delivery_candidates
SET sent_at = $1
WHERE candidate_id IN (%s) AND sent_at IS NULL`, strings.Join(placeholders, ", "))

	tag, err := t.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark candidates sent: %w", err)
	}
	return tag.RowsAffected(), nil
}

func formatDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
