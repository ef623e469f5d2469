// Package extract provides the title and reminder extraction client, plus
// the local fallback used when the service is unavailable.
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

// defaultTitleWords is how many leading transcript words the fallback
// title keeps before truncating.
const defaultTitleWords = 8

// Result holds the extracted title and optional reminder time.
type Result struct {
	Title      string
	ReminderAt *time.Time
}

// Extractor derives a title and optional reminder time from a transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*Result, error)
}

// Client is the HTTP implementation of Extractor.
type Client struct {
	BaseURL string
	Timeout time.Duration
	client  *http.Client
}

// NewClient creates a new extraction client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Transcript string `json:"transcript"`
}

type extractResponse struct {
	Title      string `json:"title"`
	ReminderAt *int64 `json:"reminder_at"`
}

// Extract implements Extractor. Callers must treat any error (or a missing
// title) as a signal to fall back to DefaultTitle with no reminder; this
// degraded path is required, not optional.
func (c *Client) Extract(ctx context.Context, transcript string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := json.Marshal(extractRequest{Transcript: transcript})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/extract", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction rejected: status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}

	result := &Result{Title: parsed.Title}
	if result.Title == "" {
		result.Title = DefaultTitle(transcript)
	}
	if parsed.ReminderAt != nil {
		t := time.Unix(*parsed.ReminderAt, 0)
		result.ReminderAt = &t
	}
	return result, nil
}

// DefaultTitle builds a title from the first words of a transcript:
// up to eight words, with an ellipsis when the transcript is longer.
func DefaultTitle(transcript string) string {
	words := strings.Fields(transcript)
	if len(words) == 0 {
		return "Untitled Note"
	}

	n := defaultTitleWords
	if len(words) < n {
		n = len(words)
	}

	title := strings.Join(words[:n], " ")
	if len(words) > defaultTitleWords {
		title += "..."
	}
	return title
}
