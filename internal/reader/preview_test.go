package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanTextDropsPageMarkersAndCollapsesWhitespace(t *testing.T) {
	input := "  SEC. 2.   FINDINGS. \n[[Page H124]]\n Congress finds\tthe following: \r\n\r\nThird line "
	got := CleanText(input)
	want := "SEC. 2. FINDINGS.\n\nCongress finds the following:\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestCleanTextInlinePageMarker(t *testing.T) {
	input := "pending before the committee [[Page S1052]] shall be reported"
	got := CleanText(input)
	want := "pending before the committee shall be reported"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := TruncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestFetchTextPlainRendition(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("[Congressional Record Volume 172]\n\n    A BILL\n[[Page H12]]\n    To amend title 5.\n"))
	}))
	defer srv.Close()

	got, err := FetchText(context.Background(), srv.URL, "fallback")
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	want := "[Congressional Record Volume 172]\n\nA BILL\n\nTo amend title 5."
	if got != want {
		t.Fatalf("text mismatch\nwant: %q\ngot:  %q", want, got)
	}
	if gotUserAgent != defaultUserAgent {
		t.Fatalf("user agent = %q", gotUserAgent)
	}
}

func TestFetchTextRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := FetchText(context.Background(), srv.URL, ""); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchTextRequiresURL(t *testing.T) {
	if _, err := FetchText(context.Background(), "  ", "title"); err == nil {
		t.Fatal("expected error for blank URL")
	}
}
