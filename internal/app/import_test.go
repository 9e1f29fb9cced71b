package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"congresssignal.com/signal/internal/db"
)

func TestRunImportDryRunValidatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	payload := `[
		{"package_id": "FR-2026-01-05", "granule_id": "FR-2026-01-05-notices-12", "title": "Tariff Notice", "publish_date": "2026-01-05"},
		{"package_id": "FR-2026-01-06", "granule_id": "", "publish_date": "not-a-date"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if code := runImport([]string{"--in", path, "--dry-run"}); code != 0 {
		t.Fatalf("unexpected exit code: got %d want 0", code)
	}
}

func TestRunImportRequiresInputFlag(t *testing.T) {
	if code := runImport(nil); code != 2 {
		t.Fatalf("unexpected exit code: got %d want 2", code)
	}
}

func TestUpsertFromRecordMapsFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 30, 12, 0, 0, 0, time.UTC)
	ingestedAt := "2026-01-06T08:30:00Z"
	doc := db.DocumentRow{
		PackageID:    "FR-2026-01-05",
		GranuleID:    "FR-2026-01-05-notices-12",
		Title:        "Tariff Notice",
		DocClass:     "FR",
		PublishDate:  time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		MetadataLine: "91 FR 1234",
		Teaser:       "Notice of proposed tariffs.",
		IngestedAt:   time.Date(2026, time.January, 6, 8, 30, 0, 0, time.UTC),
	}

	record := exportRecordFor(doc)
	if record.PublishDate != "2026-01-05" {
		t.Fatalf("unexpected publish_date: %q", record.PublishDate)
	}
	if record.IngestedAt == nil || *record.IngestedAt != ingestedAt {
		t.Fatalf("unexpected ingested_at: %v", record.IngestedAt)
	}

	upsert, err := upsertFromRecord(&record, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upsert.PackageID != doc.PackageID || upsert.GranuleID != doc.GranuleID {
		t.Fatalf("unexpected identity: %q / %q", upsert.PackageID, upsert.GranuleID)
	}
	if !upsert.PublishDate.Equal(doc.PublishDate) {
		t.Fatalf("unexpected publish date: %s", upsert.PublishDate)
	}
	if !upsert.IngestedAt.Equal(doc.IngestedAt) {
		t.Fatalf("unexpected ingested_at: %s", upsert.IngestedAt)
	}

	record.IngestedAt = nil
	upsert, err = upsertFromRecord(&record, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !upsert.IngestedAt.Equal(now) {
		t.Fatalf("expected ingested_at to default to now, got %s", upsert.IngestedAt)
	}
}
