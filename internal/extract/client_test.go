package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestScrapeBatchPollsUntilCompleted(t *testing.T) {
	var startPayload startBatchRequest
	var polls atomic.Int32
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/batch/scrape":
			gotAuth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&startPayload); err != nil {
				t.Errorf("decode start payload: %v", err)
			}
			_, _ = w.Write([]byte(`{"success": true, "id": "job-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/batch/scrape/job-1":
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"status": "scraping", "data": []}`))
				return
			}
			_, _ = w.Write([]byte(`{
				"status": "completed",
				"data": [
					{
						"metadata": {"sourceURL": "https://example.com/doc-1"},
						"json": {"title": "Doc 1"}
					},
					{
						"metadata": {"url": "https://example.com/doc-2"},
						"json": {"title": "Doc 2"}
					},
					{
						"metadata": {},
						"json": {"title": "dropped, no URL"}
					}
				]
			}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:      server.URL,
		APIKey:       "scrape-key",
		PollInterval: time.Millisecond,
	})

	schema := json.RawMessage(`{"type": "object"}`)
	items, err := client.ScrapeBatch(context.Background(), []string{"https://example.com/doc-1", "https://example.com/doc-2"}, "extract fields", schema)
	if err != nil {
		t.Fatalf("ScrapeBatch: %v", err)
	}

	if gotAuth != "Bearer scrape-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if len(startPayload.URLs) != 2 {
		t.Fatalf("submitted urls = %v", startPayload.URLs)
	}
	if len(startPayload.Formats) != 1 || startPayload.Formats[0].Type != "json" {
		t.Fatalf("formats = %+v", startPayload.Formats)
	}
	if startPayload.Formats[0].Prompt != "extract fields" {
		t.Fatalf("prompt = %q", startPayload.Formats[0].Prompt)
	}
	if len(startPayload.Formats[0].Schema) == 0 {
		t.Fatal("schema missing from format spec")
	}

	if polls.Load() < 2 {
		t.Fatalf("polls = %d, want at least 2", polls.Load())
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (URL-less result dropped)", len(items))
	}
	if items[0].URL != "https://example.com/doc-1" {
		t.Fatalf("first item url = %q", items[0].URL)
	}
	if items[1].URL != "https://example.com/doc-2" {
		t.Fatalf("second item url = %q", items[1].URL)
	}
}

func TestScrapeBatchJobFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"success": true, "id": "job-2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "failed"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{BaseURL: server.URL, PollInterval: time.Millisecond})
	if _, err := client.ScrapeBatch(context.Background(), []string{"https://example.com/doc"}, "p", nil); err == nil {
		t.Fatal("expected error from failed job")
	}
}

func TestScrapeBatchRejectedSubmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{BaseURL: server.URL, PollInterval: time.Millisecond})
	if _, err := client.ScrapeBatch(context.Background(), []string{"https://example.com/doc"}, "p", nil); err == nil {
		t.Fatal("expected error from rejected submission")
	}
}

func TestScrapeBatchEmptyInput(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{BaseURL: "http://localhost:0"})
	items, err := client.ScrapeBatch(context.Background(), nil, "p", nil)
	if err != nil {
		t.Fatalf("ScrapeBatch: %v", err)
	}
	if items != nil {
		t.Fatalf("items = %v, want nil", items)
	}
}

func TestScrapeSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/scrape" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload scrapeRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.URL != "https://example.com/doc" {
			t.Errorf("url = %q", payload.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": {"json": {"summary": "Two sentences."}}}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{BaseURL: server.URL})
	raw, err := client.Scrape(context.Background(), "https://example.com/doc", "summarize", nil)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	var decoded struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal structured output: %v", err)
	}
	if decoded.Summary != "Two sentences." {
		t.Fatalf("summary = %q", decoded.Summary)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{})
	if client.opts.BaseURL != DefaultBaseURL {
		t.Fatalf("base url = %q", client.opts.BaseURL)
	}
	if client.opts.PollInterval != DefaultPollInterval {
		t.Fatalf("poll interval = %v", client.opts.PollInterval)
	}
	if client.opts.PollDeadline != DefaultPollDeadline {
		t.Fatalf("poll deadline = %v", client.opts.PollDeadline)
	}
}
