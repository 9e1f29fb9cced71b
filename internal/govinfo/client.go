// Package govinfo fetches publish-date windows of the GovInfo search
// index and normalizes the hits into catalog document records.
package govinfo

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
	// DefaultBaseURL is the GovInfo API root used for search and
	// package content URLs.
	DefaultBaseURL = "https://api.govinfo.gov"
	// DefaultDetailsBaseURL is the public site root used for the
	// human-readable details pages.
	DefaultDetailsBaseURL = "https://www.govinfo.gov"
	// DefaultPageSize is the fixed search page size.
	DefaultPageSize = 100
	// DefaultPageDelay is the pause between successive search pages.
	DefaultPageDelay = 500 * time.Millisecond
	// DefaultRequestTimeout bounds a single search request.
	DefaultRequestTimeout = 30 * time.Second

	dateLayout = "2006-01-02"
)

// Options configures the GovInfo search client.
type Options struct {
	BaseURL        string
	DetailsBaseURL string
	APIKey         string
	PageSize       int
	// PageDelay is the pause before every page after the first.
	// Zero selects the default; negative disables the pause.
	PageDelay      time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client calls the GovInfo search endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// Document is one normalized search hit.
type Document struct {
	PackageID    string
	GranuleID    string
	Title        string
	DocClass     string
	PublishDate  time.Time
	MetadataLine string
	Teaser       string
	PDFURL       *string
	HTMLURL      *string
	DetailsURL   *string
}

// FetchStats reports progress of one window fetch.
type FetchStats struct {
	Pages int
	Total int
}

type searchRequest struct {
	Query      string `json:"query"`
	PageSize   int    `json:"pageSize"`
	Offset     int    `json:"offset"`
	Historical bool   `json:"historical"`
	SortBy     string `json:"sortBy"`
}

type searchResponse struct {
	Count     int                `json:"iTotalCount"`
	ResultSet []searchResultItem `json:"resultSet"`
}

type searchResultItem struct {
	FieldMap map[string]any `json:"fieldMap"`
	Line1    string         `json:"line1"`
	Line2    string         `json:"line2"`
}

// NewClient builds a client, applying defaults for unset options.
func NewClient(opts Options) *Client {
	normalized := normalizeOptions(opts)
	httpClient := normalized.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: normalized, httpClient: httpClient}
}

func normalizeOptions(opts Options) Options {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")

	if strings.TrimSpace(opts.DetailsBaseURL) == "" {
		opts.DetailsBaseURL = DefaultDetailsBaseURL
	}
	opts.DetailsBaseURL = strings.TrimRight(strings.TrimSpace(opts.DetailsBaseURL), "/")

	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageDelay == 0 {
		opts.PageDelay = DefaultPageDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return opts
}

// FetchWindow pages through every search hit whose publish date falls
// inside [windowStart, windowEnd] and returns them in API order. The
// result total is taken from the first page only; later pages stop the
// loop either by exhausting that total or by coming back empty. On a
// page failure the documents fetched so far are returned alongside the
// error so callers can persist partial progress.
func (c *Client) FetchWindow(ctx context.Context, windowStart, windowEnd time.Time) ([]Document, FetchStats, error) {
	start := windowStart.UTC()
	end := windowEnd.UTC()
	query := fmt.Sprintf("publishdate:range(%s,%s)", start.Format(dateLayout), end.Format(dateLayout))

	var (
		docs  []Document
		stats FetchStats
		total int
	)
	for offset := 0; ; offset++ {
		if offset > 0 && c.opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return docs, stats, ctx.Err()
			case <-time.After(c.opts.PageDelay):
			}
		}

		page, err := c.searchPage(ctx, query, offset)
		if err != nil {
			return docs, stats, fmt.Errorf("fetch page %d: %w", offset, err)
		}
		stats.Pages++

		if offset == 0 {
			total = page.Count
			stats.Total = total
		}
		if len(page.ResultSet) == 0 {
			break
		}
		for _, item := range page.ResultSet {
			docs = append(docs, c.documentFromResult(item, start))
		}
		if (offset+1)*c.opts.PageSize >= total {
			break
		}
	}
	return docs, stats, nil
}

func (c *Client) searchPage(ctx context.Context, query string, offset int) (*searchResponse, error) {
	payload := searchRequest{
		Query:      query,
		PageSize:   c.opts.PageSize,
		Offset:     offset,
		Historical: false,
		SortBy:     "2",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.opts.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("X-Api-Key", c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search request returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &decoded, nil
}

// documentFromResult maps one search hit onto a Document. Hits without
// a package identifier keep an empty identity rather than being
// dropped; they carry whatever descriptive fields the index returned.
func (c *Client) documentFromResult(item searchResultItem, publishDate time.Time) Document {
	packageID := strings.TrimSpace(stringField(item.FieldMap, "packageid"))
	granuleID := strings.TrimSpace(stringField(item.FieldMap, "granuleid"))

	doc := Document{
		PackageID:    packageID,
		GranuleID:    granuleID,
		Title:        strings.TrimSpace(stringField(item.FieldMap, "title")),
		DocClass:     strings.TrimSpace(stringField(item.FieldMap, "collectionCode")),
		PublishDate:  publishDate,
		MetadataLine: joinLines(item.Line1, item.Line2),
		Teaser:       strings.TrimSpace(stringField(item.FieldMap, "teaser")),
	}
	if packageID == "" {
		return doc
	}

	if pdfFile := strings.TrimSpace(stringField(item.FieldMap, "pdffile")); pdfFile != "" {
		url := fmt.Sprintf("%s/content/pkg/%s/%s", c.opts.BaseURL, packageID, pdfFile)
		doc.PDFURL = &url
	}
	if htmlFile := strings.TrimSpace(stringField(item.FieldMap, "htmlfile")); htmlFile != "" {
		url := fmt.Sprintf("%s/content/pkg/%s/%s", c.opts.BaseURL, packageID, htmlFile)
		doc.HTMLURL = &url
	}

	details := fmt.Sprintf("%s/app/details/%s", c.opts.DetailsBaseURL, packageID)
	if granuleID != "" {
		details = details + "/" + granuleID
	}
	doc.DetailsURL = &details
	return doc
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return text
}

func joinLines(line1, line2 string) string {
	parts := make([]string, 0, 2)
	for _, line := range []string{line1, line2} {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " | ")
}
