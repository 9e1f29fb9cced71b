package httpapi

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"congresssignal.com/signal/internal/globaltime"
)

const dayLayout = "2006-01-02"

// webhookRecord is the row image a database webhook wraps its payload
// in. Both the row's primary key names are accepted.
type webhookRecord struct {
	ID                int64 `json:"id"`
	ProSubscriptionID int64 `json:"pro_subscription_id"`
}

type proOnboardPayload struct {
	Type              string        `json:"type"`
	Record            webhookRecord `json:"record"`
	ProSubscriptionID int64         `json:"pro_subscription_id"`
}

func (p proOnboardPayload) subscriptionID() int64 {
	switch {
	case p.Record.ProSubscriptionID > 0:
		return p.Record.ProSubscriptionID
	case p.Record.ID > 0:
		return p.Record.ID
	default:
		return p.ProSubscriptionID
	}
}

type proDigestPayload struct {
	PeriodDate string `json:"period_date"`
}

// handleProOnboard accepts a new pro-subscription webhook and kicks off
// the onboarding pipeline in the background so the caller is not held
// through selection, summarization and sending.
func (s *Server) handleProOnboard(c echo.Context) error {
	var payload proOnboardPayload
	if err := decodeJSON(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	proSubscriptionID := payload.subscriptionID()
	if proSubscriptionID <= 0 {
		return failValidation(c, map[string]string{"pro_subscription_id": "is required"})
	}

	periodDate := utcDay(globaltime.UTC())
	s.runInBackground("pro-onboard", func(ctx context.Context) error {
		return s.pro.OnboardSubscriber(ctx, proSubscriptionID, periodDate)
	})

	return accepted(c, map[string]any{
		"pro_subscription_id": proSubscriptionID,
		"period_date":         periodDate.Format(dayLayout),
	})
}

// handleProDigest accepts the daily trigger and runs the full pro
// pipeline in the background. An empty body means today.
func (s *Server) handleProDigest(c echo.Context) error {
	var payload proDigestPayload
	if err := decodeJSON(c, &payload); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	periodDate := utcDay(globaltime.UTC())
	if payload.PeriodDate != "" {
		parsed, err := time.Parse(dayLayout, payload.PeriodDate)
		if err != nil {
			return failValidation(c, map[string]string{"period_date": "must be YYYY-MM-DD"})
		}
		periodDate = parsed.UTC()
	}

	s.runInBackground("pro-digest", func(ctx context.Context) error {
		return s.pro.RunDaily(ctx, periodDate)
	})

	return accepted(c, map[string]any{
		"period_date": periodDate.Format(dayLayout),
	})
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
