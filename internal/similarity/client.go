// Package similarity talks to the embedding-index edge functions:
// semantic search over extracted documents and on-demand embedding
// generation for freshly summarized extractions.
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultRequestTimeout bounds a single edge function call.
	DefaultRequestTimeout = 30 * time.Second

	// FallbackQuery is searched when a subscriber profile is empty.
	FallbackQuery = "regulatory policy"

	searchPath    = "/functions/v1/semantic-search"
	embeddingPath = "/functions/v1/generate-embedding"
)

// Options configures the similarity client.
type Options struct {
	BaseURL        string
	ServiceKey     string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client calls the similarity edge functions.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// Hit is one semantic search result.
type Hit struct {
	DocumentID int64   `json:"document_id"`
	Similarity float64 `json:"similarity"`
}

// NewClient builds a client. The base URL is required; there is no
// sensible default for a project-scoped endpoint.
func NewClient(opts Options) (*Client, error) {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("similarity base URL is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, httpClient: httpClient}, nil
}

// BuildQuery assembles the search text for a subscriber profile: the
// company type followed by the keywords, space separated. An empty
// profile falls back to a generic query so selection still runs.
func BuildQuery(companyType string, keywords []string) string {
	parts := make([]string, 0, 1+len(keywords))
	if trimmed := strings.TrimSpace(companyType); trimmed != "" {
		parts = append(parts, trimmed)
	}
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return FallbackQuery
	}
	return strings.Join(parts, " ")
}

// Search returns documents semantically close to the query, best first.
func (c *Client) Search(ctx context.Context, query string, matchCount int, matchThreshold float64) ([]Hit, error) {
	payload := map[string]any{
		"query":          query,
		"matchCount":     matchCount,
		"matchThreshold": matchThreshold,
	}
	body, err := c.post(ctx, searchPath, payload)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	hits, err := decodeHits(body)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return hits, nil
}

// GenerateEmbedding asks the index to embed one extraction.
func (c *Client) GenerateEmbedding(ctx context.Context, extractionID int64) error {
	payload := map[string]any{"extraction_id": extractionID}
	if _, err := c.post(ctx, embeddingPath, payload); err != nil {
		return fmt.Errorf("generate embedding for extraction %d: %w", extractionID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.ServiceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.ServiceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	return raw, nil
}

// decodeHits accepts both response shapes the edge function has used: a
// bare JSON array and a {"matches": [...]} envelope.
func decodeHits(raw []byte) ([]Hit, error) {
	var direct []Hit
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var envelope struct {
		Matches []Hit `json:"matches"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Matches != nil {
		return envelope.Matches, nil
	}
	return nil, fmt.Errorf("unrecognized search response shape")
}
