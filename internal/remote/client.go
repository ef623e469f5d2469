// Package remote provides the client for the remote note service.
// The service itself is opaque; this package owns only the contract
// boundary: owner-scoped upsert, list, and delete over JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kimhsiao/memovox/backend/internal/models"
)

// NoteService defines the remote store operations consumed by the capture
// pipeline and the sync engine.
type NoteService interface {
	// Upsert persists a note remotely and returns the durable audio URL
	// assigned by the service. Idempotent by note id: retrying a failed
	// write for the same id never produces a duplicate.
	Upsert(ctx context.Context, note *models.Note) (string, error)

	// ListByOwner returns all notes for an owner, ordered by created_at
	// descending.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Note, error)

	// Delete removes a note. Owner-scoped: a mismatched owner deletes
	// nothing.
	Delete(ctx context.Context, id, ownerID string) error

	// Ping probes service reachability. Used by the connectivity monitor.
	Ping(ctx context.Context) error
}

// Client is the HTTP implementation of NoteService.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewClient creates a new remote note service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// wireNote is the JSON representation exchanged with the service.
// The audio payload travels base64-encoded on upsert; listings return a
// durable audio URL instead.
type wireNote struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
	AudioB64   string `json:"audio_b64,omitempty"`
	AudioURL   string `json:"audio_url,omitempty"`
	ReminderAt *int64 `json:"reminder_at"`
	CreatedAt  int64  `json:"created_at"`
}

// Upsert implements NoteService.
func (c *Client) Upsert(ctx context.Context, note *models.Note) (string, error) {
	payload := wireNote{
		ID:         string(note.ID),
		OwnerID:    note.OwnerID,
		Title:      note.Title,
		Transcript: note.Transcript,
		ReminderAt: note.ReminderAt,
		CreatedAt:  note.CreatedAt,
	}
	if len(note.AudioData) > 0 {
		payload.AudioB64 = base64.StdEncoding.EncodeToString(note.AudioData)
	} else {
		payload.AudioURL = note.AudioURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal note: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/notes/%s", c.BaseURL, url.PathEscape(string(note.ID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upsert rejected: status %d", resp.StatusCode)
	}

	var stored wireNote
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		if errors.Is(err, io.EOF) {
			// Some deployments return an empty body; the listing still
			// carries the durable URL later.
			return "", nil
		}
		return "", fmt.Errorf("failed to decode upsert response: %w", err)
	}
	return stored.AudioURL, nil
}

// ListByOwner implements NoteService.
func (c *Client) ListByOwner(ctx context.Context, ownerID string) ([]*models.Note, error) {
	endpoint := fmt.Sprintf("%s/v1/notes?owner_id=%s", c.BaseURL, url.QueryEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list rejected: status %d", resp.StatusCode)
	}

	var wire []wireNote
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode note list: %w", err)
	}

	notes := make([]*models.Note, 0, len(wire))
	for _, w := range wire {
		notes = append(notes, &models.Note{
			ID:         models.UUID(w.ID),
			OwnerID:    w.OwnerID,
			Title:      w.Title,
			Transcript: w.Transcript,
			AudioURL:   w.AudioURL,
			ReminderAt: w.ReminderAt,
			CreatedAt:  w.CreatedAt,
			Storage:    models.StorageSynced,
		})
	}

	// The service is expected to order by created_at descending; re-order
	// here so the contract holds regardless.
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt > notes[j].CreatedAt
	})

	return notes, nil
}

// Delete implements NoteService.
func (c *Client) Delete(ctx context.Context, id, ownerID string) error {
	endpoint := fmt.Sprintf("%s/v1/notes/%s?owner_id=%s",
		c.BaseURL, url.PathEscape(id), url.QueryEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// 404 counts as success: deletion is forward-only and idempotent
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete rejected: status %d", resp.StatusCode)
	}
	return nil
}

// Ping implements NoteService.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping rejected: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")
}
