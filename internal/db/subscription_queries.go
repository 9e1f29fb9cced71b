package db

import (
	"context"
	"fmt"
	"time"
)

// SubscriberRow is one active standard-tier subscriber with its
// matching rule fields decoded.
type SubscriberRow struct {
	SubscriptionID     int64
	Email              string
	Sectors            []string
	RelevanceThreshold string
	Keywords           []string
}

// ProSubscriberRow is one active pro-tier subscriber.
type ProSubscriberRow struct {
	ProSubscriptionID int64
	Email             string
	CompanyType       string
	Keywords          []string
}

// ListActiveSubscribers returns verified standard subscribers that have
// not unsubscribed.
func (p *Pool) ListActiveSubscribers(ctx context.Context) ([]SubscriberRow, error) {
	const query = `
SELECT subscription_id, email, sectors, relevance_threshold, keywords
FROM signal.subscriptions
WHERE is_verified AND unsubscribed_at IS NULL
ORDER BY subscription_id`

	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var out []SubscriberRow
	for rows.Next() {
		var (
			row      SubscriberRow
			sectors  string
			keywords string
		)
		if err := rows.Scan(&row.SubscriptionID, &row.Email, &sectors, &row.RelevanceThreshold, &keywords); err != nil {
			return nil, fmt.Errorf("scan subscriber row: %w", err)
		}
		row.Sectors = SplitList(sectors)
		row.Keywords = SplitList(keywords)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriber rows: %w", err)
	}
	return out, nil
}

// ListActiveProSubscribers returns verified pro subscribers that have
// not unsubscribed.
func (p *Pool) ListActiveProSubscribers(ctx context.Context) ([]ProSubscriberRow, error) {
	const query = `
SELECT pro_subscription_id, email, company_type, keywords
FROM signal.pro_subscriptions
WHERE is_verified AND unsubscribed_at IS NULL
ORDER BY pro_subscription_id`

	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active pro subscribers: %w", err)
	}
	defer rows.Close()

	var out []ProSubscriberRow
	for rows.Next() {
		var (
			row      ProSubscriberRow
			keywords string
		)
		if err := rows.Scan(&row.ProSubscriptionID, &row.Email, &row.CompanyType, &keywords); err != nil {
			return nil, fmt.Errorf("scan pro subscriber row: %w", err)
		}
		row.Keywords = SplitList(keywords)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pro subscriber rows: %w", err)
	}
	return out, nil
}

// GetProSubscriber loads one pro subscriber by id regardless of
// verification state.
func (p *Pool) GetProSubscriber(ctx context.Context, proSubscriptionID int64) (*ProSubscriberRow, error) {
	const query = `
SELECT pro_subscription_id, email, company_type, keywords
FROM signal.pro_subscriptions
WHERE pro_subscription_id = $1`

	var (
		row      ProSubscriberRow
		keywords string
	)
	err := p.QueryRow(ctx, query, proSubscriptionID).Scan(&row.ProSubscriptionID, &row.Email, &row.CompanyType, &keywords)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get pro subscriber %d: %w", proSubscriptionID, err)
	}
	row.Keywords = SplitList(keywords)
	return &row, nil
}

// UpsertProSubscriber records a pro signup keyed by email and returns
// the row id. Repeated webhook deliveries refresh the profile in place.
func (p *Pool) UpsertProSubscriber(ctx context.Context, email, companyType string, keywords []string, verified bool) (int64, error) {
	const query = `
INSERT INTO signal.pro_subscriptions (email, company_type, keywords, is_verified)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET
	company_type = EXCLUDED.company_type,
	keywords = EXCLUDED.keywords,
	is_verified = EXCLUDED.is_verified,
	unsubscribed_at = NULL,
	updated_at = now()
RETURNING pro_subscription_id`

	var id int64
	err := p.QueryRow(ctx, query, email, companyType, JoinList(keywords), verified).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert pro subscriber %s: %w", email, err)
	}
	return id, nil
}

// UnsubscribeByEmail marks a standard subscriber as unsubscribed and
// reports how many rows changed. Already-unsubscribed rows keep their
// original timestamp.
func (p *Pool) UnsubscribeByEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	const query = `
UPDATE signal.subscriptions
SET unsubscribed_at = $2, updated_at = now()
WHERE lower(email) = lower($1) AND unsubscribed_at IS NULL`

	tag, err := p.Exec(ctx, query, email, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("unsubscribe %s: %w", email, err)
	}
	return tag.RowsAffected(), nil
}

// UnsubscribeProByEmail is the pro-tier variant of UnsubscribeByEmail.
func (p *Pool) UnsubscribeProByEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	const query = `
UPDATE signal.pro_subscriptions
SET unsubscribed_at = $2, updated_at = now()
WHERE lower(email) = lower($1) AND unsubscribed_at IS NULL`

	tag, err := p.Exec(ctx, query, email, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("unsubscribe pro %s: %w", email, err)
	}
	return tag.RowsAffected(), nil
}
