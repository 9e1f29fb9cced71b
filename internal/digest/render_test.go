package digest

import (
	"strings"
	"testing"
	"time"

	"congresssignal.com/signal/internal/delivery"
)

func TestSubjects(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	if got := StandardSubject(3, date); got != "Congress Signal: 3 updates for January 15, 2026" {
		t.Fatalf("standard subject = %q", got)
	}
	if got := ProSubject(5, date); got != "Congress Signal Pro: 5 insights for January 15, 2026" {
		t.Fatalf("pro subject = %q", got)
	}
}

func TestRenderStandardEscapesAndLinks(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	html := RenderStandard(date, []StandardItem{
		{
			Title:     `Hearing on <AI> & "Safety"`,
			Summary:   "Senators questioned executives about model releases.",
			Sectors:   []string{"tech"},
			Relevance: []string{"medium", "high"},
			Companies: []string{"OpenAI", "Anthropic"},
			LinkURL:   "https://www.govinfo.gov/app/details/CHRG-2026",
		},
		{
			Title:     "Minor procedural notice",
			Summary:   "No floor action scheduled.",
			Relevance: []string{"low"},
		},
	})

	if strings.Contains(html, "<AI>") {
		t.Fatal("title was not escaped")
	}
	for _, want := range []string{
		"Hearing on &lt;AI&gt; &amp; &quot;Safety&quot;",
		`href="https://www.govinfo.gov/app/details/CHRG-2026"`,
		"Mentioned: OpenAI, Anthropic",
		"January 15, 2026",
		"2 updates",
		`background-color:#d97706;color:#ffffff;border-radius:10px;text-transform:uppercase;">medium</span>`,
		`background-color:#dc2626;color:#ffffff;border-radius:10px;text-transform:uppercase;">high</span>`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered digest missing %q", want)
		}
	}
	// The second item has no URL, so its title renders without a link.
	if strings.Contains(html, `href=""`) {
		t.Fatal("item without a URL rendered an empty link")
	}
}

func TestRenderStandardSingularCount(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	html := RenderStandard(date, []StandardItem{{Title: "One", Summary: "s", Relevance: []string{"medium"}}})

	if !strings.Contains(html, "1 update matching") {
		t.Fatalf("expected singular count, got %q", html)
	}
}

func TestRenderProPrefersDetailsURL(t *testing.T) {
	t.Parallel()

	details := "https://www.govinfo.gov/app/details/BILLS-119hr1ih"
	htmlURL := "https://api.govinfo.gov/content/pkg/BILLS-119hr1ih/html/BILLS-119hr1ih.htm"
	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	body := RenderPro(date, []delivery.PendingItem{
		{
			CandidateID: 1,
			Title:       "H.R. 1 Introduced",
			Summary:     "For a logistics company this bill changes customs processing timelines.",
			DetailsURL:  &details,
			HTMLURL:     &htmlURL,
		},
	})

	if !strings.Contains(body, `href="`+details+`"`) {
		t.Fatal("details URL not used as link")
	}
	if strings.Contains(body, `href="`+htmlURL+`"`) {
		t.Fatal("html URL used despite details URL being present")
	}
	if !strings.Contains(body, "1 insight selected") {
		t.Fatal("missing insight count line")
	}
}
