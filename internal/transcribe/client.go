// Package transcribe provides the speech-to-text client.
// The service follows the common async pattern: upload the audio, create a
// transcription job, then poll until it completes or the wait bound runs out.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Transcriber converts raw audio bytes to text.
// An empty transcript with a nil error means the service produced no usable
// text; the caller treats that as a failed capture.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Client is the HTTP implementation of Transcriber.
type Client struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	// MaxWait bounds the total time spent polling. Past it the
	// transcription counts as failed rather than hanging the capture.
	MaxWait time.Duration
	client  *http.Client
}

// NewClient creates a new transcription client.
func NewClient(baseURL, apiKey string, pollInterval, maxWait time.Duration) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		PollInterval: pollInterval,
		MaxWait:      maxWait,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type jobRequest struct {
	AudioURL string `json:"audio_url"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe implements Transcriber.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.MaxWait)
	defer cancel()

	audioURL, err := c.upload(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("audio upload failed: %w", err)
	}

	jobID, err := c.createJob(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	return c.poll(ctx, jobID)
}

// upload pushes the raw audio and returns its temporary URL.
func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected: status %d", resp.StatusCode)
	}

	var upload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return "", err
	}
	return upload.UploadURL, nil
}

// createJob requests transcription of an uploaded audio URL.
func (c *Client) createJob(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(jobRequest{AudioURL: audioURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/transcript", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("job creation rejected: status %d", resp.StatusCode)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// poll checks job status at the configured interval until completion, job
// error, or context deadline.
func (c *Client) poll(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transcription timed out: %w", ctx.Err())
		case <-ticker.C:
		}

		job, err := c.getJob(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "completed":
			return job.Text, nil
		case "error":
			return "", fmt.Errorf("transcription failed: %s", job.Error)
		}
		// queued / processing: keep polling
	}
}

func (c *Client) getJob(ctx context.Context, jobID string) (*jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling rejected: status %d", resp.StatusCode)
	}

	var job jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}
