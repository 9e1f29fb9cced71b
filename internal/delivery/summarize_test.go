package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubSummaryStore struct {
	mu      sync.Mutex
	tasks   []SummaryTask
	listErr error

	summaries map[int64]string
	setErr    map[int64]error
}

func (s *stubSummaryStore) CandidatesNeedingSummary(_ context.Context, _ time.Time) ([]SummaryTask, error) {
	return s.tasks, s.listErr
}

func (s *stubSummaryStore) SetSummary(_ context.Context, candidateID int64, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setErr[candidateID]; err != nil {
		return err
	}
	if s.summaries == nil {
		s.summaries = make(map[int64]string)
	}
	s.summaries[candidateID] = summary
	return nil
}

type stubPageSummarizer struct {
	mu       sync.Mutex
	prompts  map[string]string
	inFlight int
	peak     int
	handler  func(url string) (json.RawMessage, error)
}

func (s *stubPageSummarizer) Scrape(_ context.Context, url, prompt string, _ json.RawMessage) (json.RawMessage, error) {
	s.mu.Lock()
	if s.prompts == nil {
		s.prompts = make(map[string]string)
	}
	s.prompts[url] = prompt
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return s.handler(url)
}

func summaryJSON(text string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"summary": text})
	return raw
}

func urlPtr(url string) *string {
	return &url
}

func TestBuildInstruction(t *testing.T) {
	t.Parallel()

	got := BuildInstruction("biotech startup", []string{"FDA approvals", " clinical trials "})
	if !strings.Contains(got, "biotech startup company") {
		t.Fatalf("instruction missing company type: %q", got)
	}
	if !strings.Contains(got, "FDA approvals, clinical trials") {
		t.Fatalf("instruction missing keywords: %q", got)
	}

	generic := BuildInstruction("  ", nil)
	if !strings.Contains(generic, "business company") {
		t.Fatalf("empty profile should address a generic business: %q", generic)
	}
	if strings.Contains(generic, "attention") {
		t.Fatalf("no keywords means no attention clause: %q", generic)
	}
}

func TestSummarizerRunWritesSummaries(t *testing.T) {
	t.Parallel()

	store := &stubSummaryStore{tasks: []SummaryTask{
		{CandidateID: 1, DocumentID: 11, HTMLURL: urlPtr("https://example.com/doc-1"), CompanyType: "manufacturer", Keywords: []string{"tariffs"}},
		{CandidateID: 2, DocumentID: 12, HTMLURL: urlPtr("https://example.com/doc-2"), CompanyType: "retailer"},
		{CandidateID: 3, DocumentID: 13, HTMLURL: nil},
	}}
	scraper := &stubPageSummarizer{handler: func(url string) (json.RawMessage, error) {
		return summaryJSON("Summary for " + url), nil
	}}

	summarizer := NewSummarizer(store, scraper, 2, zerolog.Nop())
	result, err := summarizer.Run(context.Background(), period())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Tasks != 3 || result.Summarized != 2 || result.Skipped != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if got := store.summaries[1]; got != "Summary for https://example.com/doc-1" {
		t.Fatalf("candidate 1 summary = %q", got)
	}
	if _, ok := store.summaries[3]; ok {
		t.Fatal("URL-less candidate must be skipped, not summarized")
	}
	if prompt := scraper.prompts["https://example.com/doc-1"]; !strings.Contains(prompt, "manufacturer") || !strings.Contains(prompt, "tariffs") {
		t.Fatalf("prompt not personalized: %q", prompt)
	}
}

func TestSummarizerRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	store := &stubSummaryStore{
		tasks: []SummaryTask{
			{CandidateID: 1, HTMLURL: urlPtr("https://example.com/ok-1")},
			{CandidateID: 2, HTMLURL: urlPtr("https://example.com/broken")},
			{CandidateID: 3, HTMLURL: urlPtr("https://example.com/ok-2")},
			{CandidateID: 4, HTMLURL: urlPtr("https://example.com/empty")},
		},
		setErr: map[int64]error{3: errors.New("write failed")},
	}
	scraper := &stubPageSummarizer{handler: func(url string) (json.RawMessage, error) {
		switch {
		case strings.Contains(url, "broken"):
			return nil, errors.New("scrape timeout")
		case strings.Contains(url, "empty"):
			return summaryJSON("   "), nil
		default:
			return summaryJSON("fine"), nil
		}
	}}

	summarizer := NewSummarizer(store, scraper, 0, zerolog.Nop())
	result, err := summarizer.Run(context.Background(), period())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Summarized != 1 {
		t.Fatalf("summarized = %d, want 1", result.Summarized)
	}
	if result.Failed != 3 {
		t.Fatalf("failed = %d, want scrape, empty and store failures counted", result.Failed)
	}
	if _, ok := store.summaries[1]; !ok {
		t.Fatal("healthy sibling must still be summarized")
	}
}

func TestSummarizerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	tasks := make([]SummaryTask, 0, 12)
	for i := 0; i < 12; i++ {
		tasks = append(tasks, SummaryTask{
			CandidateID: int64(i + 1),
			HTMLURL:     urlPtr(fmt.Sprintf("https://example.com/doc-%d", i)),
		})
	}
	store := &stubSummaryStore{tasks: tasks}
	scraper := &stubPageSummarizer{handler: func(url string) (json.RawMessage, error) {
		return summaryJSON("ok"), nil
	}}

	summarizer := NewSummarizer(store, scraper, 3, zerolog.Nop())
	if _, err := summarizer.Run(context.Background(), period()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scraper.peak > 3 {
		t.Fatalf("peak concurrency = %d, want at most 3", scraper.peak)
	}
}
