package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Provider job states as reported by the hosted transcription API.
type ProviderJobStatus string

const (
	ProviderJobStatusQueued    ProviderJobStatus = "queued"
	ProviderJobStatusRunning   ProviderJobStatus = "running"
	ProviderJobStatusCompleted ProviderJobStatus = "completed"
	ProviderJobStatusFailed    ProviderJobStatus = "failed"
)

const httpTimeout = 10 * time.Second

// Client talks to the hosted transcription provider.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(logger *slog.Logger, baseURL, apiKey string) Client {
	return Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type SubmitJobParams struct {
	AudioURL string `json:"audio_url"`
	MimeType string `json:"mime_type"`
	Language string `json:"language,omitempty"`
}

type ProviderJob struct {
	ID         string            `json:"id"`
	Status     ProviderJobStatus `json:"status"`
	Transcript json.RawMessage   `json:"transcript,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// SubmitJob asks the provider to transcribe the audio reachable at the given
// URL and returns the provider's job ID.
func (c *Client) SubmitJob(ctx context.Context, params SubmitJobParams) (string, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode job request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription job submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", fmt.Errorf("transcription provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var job ProviderJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("failed to decode job response: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("transcription provider returned an empty job ID")
	}

	return job.ID, nil
}

// GetJob fetches the current state of a provider job. The transcript payload
// is only populated once the job has completed.
func (c *Client) GetJob(ctx context.Context, providerJobID string) (ProviderJob, error) {
	var job ProviderJob

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+providerJobID, nil)
	if err != nil {
		return job, fmt.Errorf("failed to create job status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return job, fmt.Errorf("transcription job status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return job, fmt.Errorf("transcription provider returned status %d: %s", resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return job, fmt.Errorf("failed to decode job status response: %w", err)
	}

	return job, nil
}
