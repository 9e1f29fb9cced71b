package govinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordedRequest struct {
	payload searchRequest
	apiKey  string
}

type fakeSearch struct {
	t        *testing.T
	requests []recordedRequest
	handler  func(offset int) (int, map[string]any)
}

func (f *fakeSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/search" {
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
		return
	}

	var payload searchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		f.t.Errorf("decode request body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	f.requests = append(f.requests, recordedRequest{payload: payload, apiKey: r.Header.Get("X-Api-Key")})

	status, body := f.handler(payload.Offset)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func resultItems(offset, count int) []map[string]any {
	items := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, map[string]any{
			"fieldMap": map[string]any{
				"packageid":      fmt.Sprintf("PKG-%d-%03d", offset, i),
				"title":          fmt.Sprintf("Document %d-%d", offset, i),
				"collectionCode": "CREC",
			},
			"line1": "Congressional Record",
		})
	}
	return items
}

func newWindowClient(t *testing.T, fake *fakeSearch) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		PageDelay: -1,
	})
}

func windowDay() time.Time {
	return time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
}

func TestFetchWindowPaginates(t *testing.T) {
	fake := &fakeSearch{t: t}
	fake.handler = func(offset int) (int, map[string]any) {
		switch offset {
		case 0:
			return http.StatusOK, map[string]any{"iTotalCount": 250, "resultSet": resultItems(0, 100)}
		case 1:
			return http.StatusOK, map[string]any{"iTotalCount": 250, "resultSet": resultItems(1, 100)}
		case 2:
			return http.StatusOK, map[string]any{"iTotalCount": 250, "resultSet": resultItems(2, 50)}
		default:
			t.Errorf("unexpected offset %d", offset)
			return http.StatusOK, map[string]any{"iTotalCount": 250, "resultSet": nil}
		}
	}

	client := newWindowClient(t, fake)
	docs, stats, err := client.FetchWindow(context.Background(), windowDay(), windowDay())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(docs) != 250 {
		t.Fatalf("documents = %d, want 250", len(docs))
	}
	if stats.Pages != 3 || stats.Total != 250 {
		t.Fatalf("stats = %+v, want 3 pages of 250 total", stats)
	}
	if len(fake.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(fake.requests))
	}

	first := fake.requests[0]
	if first.apiKey != "test-key" {
		t.Fatalf("api key header = %q", first.apiKey)
	}
	if want := "publishdate:range(2026-02-03,2026-02-03)"; first.payload.Query != want {
		t.Fatalf("query = %q, want %q", first.payload.Query, want)
	}
	if first.payload.PageSize != 100 || first.payload.Historical || first.payload.SortBy != "2" {
		t.Fatalf("unexpected payload %+v", first.payload)
	}
	for i, req := range fake.requests {
		if req.payload.Offset != i {
			t.Fatalf("request %d carried offset %d", i, req.payload.Offset)
		}
	}

	if docs[0].PublishDate != windowDay() {
		t.Fatalf("publish date = %v, want window start", docs[0].PublishDate)
	}
}

func TestFetchWindowTotalFromFirstPageOnly(t *testing.T) {
	fake := &fakeSearch{t: t}
	fake.handler = func(offset int) (int, map[string]any) {
		switch offset {
		case 0:
			return http.StatusOK, map[string]any{"iTotalCount": 150, "resultSet": resultItems(0, 100)}
		case 1:
			// A drifting total on a later page must not extend the walk.
			return http.StatusOK, map[string]any{"iTotalCount": 9000, "resultSet": resultItems(1, 50)}
		default:
			t.Errorf("unexpected offset %d", offset)
			return http.StatusOK, map[string]any{"iTotalCount": 9000, "resultSet": nil}
		}
	}

	client := newWindowClient(t, fake)
	docs, stats, err := client.FetchWindow(context.Background(), windowDay(), windowDay())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(docs) != 150 {
		t.Fatalf("documents = %d, want 150", len(docs))
	}
	if stats.Pages != 2 || stats.Total != 150 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestFetchWindowStopsOnEmptyPage(t *testing.T) {
	fake := &fakeSearch{t: t}
	fake.handler = func(offset int) (int, map[string]any) {
		if offset == 0 {
			return http.StatusOK, map[string]any{"iTotalCount": 500, "resultSet": resultItems(0, 100)}
		}
		return http.StatusOK, map[string]any{"iTotalCount": 500, "resultSet": []map[string]any{}}
	}

	client := newWindowClient(t, fake)
	docs, stats, err := client.FetchWindow(context.Background(), windowDay(), windowDay())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(docs) != 100 {
		t.Fatalf("documents = %d, want 100", len(docs))
	}
	if stats.Pages != 2 {
		t.Fatalf("pages = %d, want 2", stats.Pages)
	}
}

func TestFetchWindowKeepsPagesOnFailure(t *testing.T) {
	fake := &fakeSearch{t: t}
	fake.handler = func(offset int) (int, map[string]any) {
		if offset == 0 {
			return http.StatusOK, map[string]any{"iTotalCount": 300, "resultSet": resultItems(0, 100)}
		}
		return http.StatusBadGateway, nil
	}

	client := newWindowClient(t, fake)
	docs, stats, err := client.FetchWindow(context.Background(), windowDay(), windowDay())
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if len(docs) != 100 {
		t.Fatalf("documents = %d, want the first page kept", len(docs))
	}
	if stats.Pages != 1 {
		t.Fatalf("pages = %d, want 1", stats.Pages)
	}
}

func TestFetchWindowDerivesURLs(t *testing.T) {
	fake := &fakeSearch{t: t}
	fake.handler = func(offset int) (int, map[string]any) {
		return http.StatusOK, map[string]any{
			"iTotalCount": 2,
			"resultSet": []map[string]any{
				{
					"fieldMap": map[string]any{
						"packageid":      "CREC-2026-02-03",
						"granuleid":      "CREC-2026-02-03-pt1-PgH501",
						"title":          "Tariff Adjustment Act Debate",
						"collectionCode": "CREC",
						"pdffile":        "pdf/CREC-2026-02-03-pt1-PgH501.pdf",
						"htmlfile":       "html/CREC-2026-02-03-pt1-PgH501.htm",
						"teaser":         "House floor debate.",
					},
					"line1": "Congressional Record Volume 172",
					"line2": "Pages H501-H509",
				},
				{
					"fieldMap": map[string]any{
						"title": "Orphan entry without identifiers",
					},
				},
			},
		}
	}

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	client := NewClient(Options{
		BaseURL:        server.URL,
		DetailsBaseURL: "https://www.govinfo.gov",
		PageDelay:      -1,
	})

	docs, _, err := client.FetchWindow(context.Background(), windowDay(), windowDay())
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}

	full := docs[0]
	if full.PackageID != "CREC-2026-02-03" || full.GranuleID != "CREC-2026-02-03-pt1-PgH501" {
		t.Fatalf("identity = %q/%q", full.PackageID, full.GranuleID)
	}
	wantPDF := server.URL + "/content/pkg/CREC-2026-02-03/pdf/CREC-2026-02-03-pt1-PgH501.pdf"
	if full.PDFURL == nil || *full.PDFURL != wantPDF {
		t.Fatalf("pdf url = %v, want %s", full.PDFURL, wantPDF)
	}
	wantHTML := server.URL + "/content/pkg/CREC-2026-02-03/html/CREC-2026-02-03-pt1-PgH501.htm"
	if full.HTMLURL == nil || *full.HTMLURL != wantHTML {
		t.Fatalf("html url = %v, want %s", full.HTMLURL, wantHTML)
	}
	wantDetails := "https://www.govinfo.gov/app/details/CREC-2026-02-03/CREC-2026-02-03-pt1-PgH501"
	if full.DetailsURL == nil || *full.DetailsURL != wantDetails {
		t.Fatalf("details url = %v, want %s", full.DetailsURL, wantDetails)
	}
	if full.MetadataLine != "Congressional Record Volume 172 | Pages H501-H509" {
		t.Fatalf("metadata line = %q", full.MetadataLine)
	}

	orphan := docs[1]
	if orphan.PackageID != "" || orphan.GranuleID != "" {
		t.Fatalf("orphan identity = %q/%q, want empty", orphan.PackageID, orphan.GranuleID)
	}
	if orphan.PDFURL != nil || orphan.HTMLURL != nil || orphan.DetailsURL != nil {
		t.Fatal("orphan entry must not carry derived URLs")
	}
	if orphan.Title != "Orphan entry without identifiers" {
		t.Fatalf("orphan title = %q", orphan.Title)
	}
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{})
	if client.opts.BaseURL != DefaultBaseURL {
		t.Fatalf("base url = %q", client.opts.BaseURL)
	}
	if client.opts.DetailsBaseURL != DefaultDetailsBaseURL {
		t.Fatalf("details base url = %q", client.opts.DetailsBaseURL)
	}
	if client.opts.PageSize != DefaultPageSize {
		t.Fatalf("page size = %d", client.opts.PageSize)
	}
	if client.opts.PageDelay != DefaultPageDelay {
		t.Fatalf("page delay = %v", client.opts.PageDelay)
	}
	if client.opts.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("request timeout = %v", client.opts.RequestTimeout)
	}
}
