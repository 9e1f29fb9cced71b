package app

import (
	"testing"
	"time"
)

func TestResolveIngestWindowDefaultsToToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 30, 15, 45, 0, 0, time.UTC)
	start, end, err := resolveIngestWindow(ingestWindowFlags{}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) || !end.Equal(want) {
		t.Fatalf("unexpected window: got [%s, %s] want [%s, %s]", start, end, want, want)
	}
}

func TestResolveIngestWindowYesterday(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 2, 0, 0, 0, time.UTC)
	start, end, err := resolveIngestWindow(ingestWindowFlags{yesterday: true}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) || !end.Equal(want) {
		t.Fatalf("unexpected window: got [%s, %s] want [%s, %s]", start, end, want, want)
	}
}

func TestResolveIngestWindowRange(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC)
	start, end, err := resolveIngestWindow(ingestWindowFlags{
		startDate: "2026-01-01",
		endDate:   "2026-01-07",
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("unexpected window: got [%s, %s] want [%s, %s]", start, end, wantStart, wantEnd)
	}
}

func TestResolveIngestWindowRejectsConflictingSelectors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC)
	if _, _, err := resolveIngestWindow(ingestWindowFlags{date: "2026-01-05", today: true}, now); err == nil {
		t.Fatal("expected an error for conflicting selectors")
	}
	if _, _, err := resolveIngestWindow(ingestWindowFlags{startDate: "2026-01-05"}, now); err == nil {
		t.Fatal("expected an error for a start date without an end date")
	}
	if _, _, err := resolveIngestWindow(ingestWindowFlags{startDate: "2026-01-05", endDate: "2026-01-01"}, now); err == nil {
		t.Fatal("expected an error for an inverted range")
	}
}
