// Package mail delivers rendered digests through the transactional
// email API.
package mail

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
	// DefaultBaseURL is the email API root.
	DefaultBaseURL = "https://api.resend.com"
	// DefaultRequestTimeout bounds a single send.
	DefaultRequestTimeout = 15 * time.Second
)

// Options configures the mail client.
type Options struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client sends email through the HTTP API.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
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
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{opts: opts, httpClient: httpClient}
}

// Send delivers one message. A non-2xx response is an error; the
// message may not have been accepted.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.From) == "" {
		return fmt.Errorf("message sender is required")
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if trimmed := strings.TrimSpace(to); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("message needs at least one recipient")
	}

	body, err := json.Marshal(sendRequest{
		From:    msg.From,
		To:      recipients,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, c.opts.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send request returned status %d", resp.StatusCode)
	}
	return nil
}
