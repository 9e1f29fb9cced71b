package similarity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		companyType string
		keywords    []string
		want        string
	}{
		{
			name:        "company type and keywords",
			companyType: "biotech startup",
			keywords:    []string{"FDA approvals", "clinical trials"},
			want:        "biotech startup FDA approvals clinical trials",
		},
		{
			name:        "keywords only",
			companyType: "  ",
			keywords:    []string{"tariffs"},
			want:        "tariffs",
		},
		{
			name:        "empty profile falls back",
			companyType: "",
			keywords:    []string{" ", ""},
			want:        FallbackQuery,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildQuery(tc.companyType, tc.keywords); got != tc.want {
				t.Fatalf("BuildQuery = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected missing base URL to be rejected")
	}
}

func TestSearchSendsPayloadAndDecodesArray(t *testing.T) {
	var gotPayload map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"document_id": 42, "similarity": 0.91}, {"document_id": 7, "similarity": 0.64}]`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL, ServiceKey: "service-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	hits, err := client.Search(context.Background(), "biotech FDA approvals", 10, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].DocumentID != 42 || hits[0].Similarity != 0.91 {
		t.Fatalf("hits = %+v", hits)
	}

	if gotAuth != "Bearer service-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotPayload["query"] != "biotech FDA approvals" {
		t.Fatalf("query = %v", gotPayload["query"])
	}
	if gotPayload["matchCount"] != float64(10) || gotPayload["matchThreshold"] != 0.5 {
		t.Fatalf("payload = %v", gotPayload)
	}
}

func TestSearchDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matches": [{"document_id": 5, "similarity": 0.7}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	hits, err := client.Search(context.Background(), "anything", 5, 0.01)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != 5 {
		t.Fatalf("hits = %+v", hits)
	}
}

func TestSearchReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Search(context.Background(), "anything", 10, 0.5); err == nil {
		t.Fatal("expected error from 503 response")
	}
}

func TestGenerateEmbedding(t *testing.T) {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != embeddingPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.GenerateEmbedding(context.Background(), 99); err != nil {
		t.Fatalf("GenerateEmbedding: %v", err)
	}
	if gotPayload["extraction_id"] != float64(99) {
		t.Fatalf("payload = %v", gotPayload)
	}
}
