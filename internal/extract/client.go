// Package extract turns catalog documents into structured profiles by
// scraping their HTML renditions through the extraction collaborator.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the scrape API root.
	DefaultBaseURL = "https://api.firecrawl.dev"
	// DefaultRequestTimeout bounds a single API call.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultPollInterval is the pause between batch status checks.
	DefaultPollInterval = 5 * time.Second
	// DefaultPollDeadline caps how long one batch job may run.
	DefaultPollDeadline = 10 * time.Minute
)

// Options configures the scrape client.
type Options struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	PollDeadline   time.Duration
	HTTPClient     *http.Client
}

// Client calls the scrape API.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// BatchItem pairs one scraped URL with its structured JSON output.
type BatchItem struct {
	URL  string
	JSON json.RawMessage
}

type formatSpec struct {
	Type   string          `json:"type"`
	Prompt string          `json:"prompt,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

type startBatchRequest struct {
	URLs    []string     `json:"urls"`
	Formats []formatSpec `json:"formats"`
}

type startBatchResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type batchResultItem struct {
	Metadata struct {
		SourceURL string `json:"sourceURL"`
		URL       string `json:"url"`
	} `json:"metadata"`
	JSON json.RawMessage `json:"json"`
}

type batchStatusResponse struct {
	Status string            `json:"status"`
	Data   []batchResultItem `json:"data"`
}

type scrapeRequest struct {
	URL     string       `json:"url"`
	Formats []formatSpec `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		JSON json.RawMessage `json:"json"`
	} `json:"data"`
}

// NewClient builds a client, applying defaults for unset options.
func NewClient(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollDeadline <= 0 {
		opts.PollDeadline = DefaultPollDeadline
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, httpClient: httpClient}
}

// ScrapeBatch submits the URLs as one batch job with a JSON extraction
// format and polls until the job finishes, returning one item per URL
// the collaborator managed to process.
func (c *Client) ScrapeBatch(ctx context.Context, urls []string, prompt string, schema json.RawMessage) ([]BatchItem, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	jobID, err := c.startBatch(ctx, urls, prompt, schema)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.opts.PollDeadline)
	defer cancel()

	for {
		status, err := c.batchStatus(pollCtx, jobID)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return itemsFromResults(status.Data), nil
		case "failed", "cancelled":
			return nil, fmt.Errorf("batch scrape job %s reported %s", jobID, status.Status)
		}

		select {
		case <-pollCtx.Done():
			return nil, fmt.Errorf("batch scrape job %s: %w", jobID, pollCtx.Err())
		case <-time.After(c.opts.PollInterval):
		}
	}
}

// Scrape runs one synchronous scrape and returns the structured JSON
// output.
func (c *Client) Scrape(ctx context.Context, url, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	payload := scrapeRequest{
		URL:     url,
		Formats: []formatSpec{{Type: "json", Prompt: prompt, Schema: schema}},
	}

	var decoded scrapeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/scrape", payload, &decoded); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	if !decoded.Success {
		return nil, fmt.Errorf("scrape %s was not successful", url)
	}
	if len(decoded.Data.JSON) == 0 {
		return nil, fmt.Errorf("scrape %s returned no structured output", url)
	}
	return decoded.Data.JSON, nil
}

func (c *Client) startBatch(ctx context.Context, urls []string, prompt string, schema json.RawMessage) (string, error) {
	payload := startBatchRequest{
		URLs:    urls,
		Formats: []formatSpec{{Type: "json", Prompt: prompt, Schema: schema}},
	}

	var decoded startBatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/batch/scrape", payload, &decoded); err != nil {
		return "", fmt.Errorf("start batch scrape: %w", err)
	}
	if !decoded.Success || strings.TrimSpace(decoded.ID) == "" {
		return "", fmt.Errorf("batch scrape submission was not accepted")
	}
	return decoded.ID, nil
}

func (c *Client) batchStatus(ctx context.Context, jobID string) (*batchStatusResponse, error) {
	var decoded batchStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/batch/scrape/"+jobID, nil, &decoded); err != nil {
		return nil, fmt.Errorf("check batch scrape %s: %w", jobID, err)
	}
	return &decoded, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, target any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, c.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func itemsFromResults(results []batchResultItem) []BatchItem {
	items := make([]BatchItem, 0, len(results))
	for _, result := range results {
		url := strings.TrimSpace(result.Metadata.SourceURL)
		if url == "" {
			url = strings.TrimSpace(result.Metadata.URL)
		}
		if url == "" || len(result.JSON) == 0 {
			continue
		}
		items = append(items, BatchItem{URL: url, JSON: result.JSON})
	}
	return items
}
