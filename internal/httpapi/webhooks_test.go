package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type onboardCall struct {
	proSubscriptionID int64
	periodDate        time.Time
}

type stubProRunner struct {
	onboards chan onboardCall
	dailies  chan time.Time
}

func newStubProRunner() *stubProRunner {
	return &stubProRunner{
		onboards: make(chan onboardCall, 4),
		dailies:  make(chan time.Time, 4),
	}
}

func (r *stubProRunner) OnboardSubscriber(ctx context.Context, proSubscriptionID int64, periodDate time.Time) error {
	r.onboards <- onboardCall{proSubscriptionID: proSubscriptionID, periodDate: periodDate}
	return nil
}

func (r *stubProRunner) RunDaily(ctx context.Context, periodDate time.Time) error {
	r.dailies <- periodDate
	return nil
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireWebhookSecret(t *testing.T) {
	t.Parallel()

	server := &Server{
		logger: zerolog.Nop(),
		opts:   Options{WebhookSecret: "hunter2"},
	}
	handler := server.requireWebhookSecret()(func(c echo.Context) error {
		return success(c, nil)
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "hunter3", wantStatus: http.StatusUnauthorized},
		{name: "correct secret", header: "hunter2", wantStatus: http.StatusOK},
	}
	for _, tc := range cases {
		c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-digest", "{}")
		if tc.header != "" {
			c.Request().Header.Set(webhookSecretHeader, tc.header)
		}
		if err := handler(c); err != nil {
			t.Fatalf("%s: handler error: %v", tc.name, err)
		}
		if rec.Code != tc.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.wantStatus)
		}
	}
}

func TestRequireWebhookSecretDisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	server := &Server{logger: zerolog.Nop()}
	handler := server.requireWebhookSecret()(func(c echo.Context) error {
		return success(c, nil)
	})

	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-digest", "{}")
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleProOnboardAcceptsAndTriggersPipeline(t *testing.T) {
	t.Parallel()

	runner := newStubProRunner()
	server := &Server{logger: zerolog.Nop(), pro: runner}

	body := `{"type":"INSERT","table":"pro_subscriptions","record":{"id":42,"email":"new@example.com"}}`
	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-onboard", body)
	if err := server.handleProOnboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ProSubscriptionID int64  `json:"pro_subscription_id"`
			PeriodDate        string `json:"period_date"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Data.ProSubscriptionID != 42 {
		t.Fatalf("response = %+v", resp)
	}

	select {
	case call := <-runner.onboards:
		if call.proSubscriptionID != 42 {
			t.Fatalf("onboarded id = %d, want 42", call.proSubscriptionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onboarding pipeline never triggered")
	}
}

func TestHandleProOnboardRequiresSubscriptionID(t *testing.T) {
	t.Parallel()

	server := &Server{logger: zerolog.Nop(), pro: newStubProRunner()}

	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-onboard", `{"record":{}}`)
	if err := server.handleProOnboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProOnboardRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	server := &Server{logger: zerolog.Nop(), pro: newStubProRunner()}

	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-onboard", `{"record":`)
	if err := server.handleProOnboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProDigestUsesRequestedPeriod(t *testing.T) {
	t.Parallel()

	runner := newStubProRunner()
	server := &Server{logger: zerolog.Nop(), pro: runner}

	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-digest", `{"period_date":"2026-01-15"}`)
	if err := server.handleProDigest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case period := <-runner.dailies:
		want := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
		if !period.Equal(want) {
			t.Fatalf("period = %v, want %v", period, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daily pipeline never triggered")
	}
}

func TestHandleProDigestEmptyBodyDefaultsToToday(t *testing.T) {
	t.Parallel()

	runner := newStubProRunner()
	server := &Server{logger: zerolog.Nop(), pro: runner}

	c, rec := newJSONContext(http.MethodPost, "/webhooks/pro-digest", "")
	if err := server.handleProDigest(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case period := <-runner.dailies:
		if period.Hour() != 0 || period.Minute() != 0 || period.Location() != time.UTC {
			t.Fatalf("period not truncated to a UTC day: %v", period)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daily pipeline never triggered")
	}
}
