// Package backend is the agent's client for the classification server.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/edufilter/internal/core/domain"
)

// ErrRateLimited is returned when the server answers 429.
var ErrRateLimited = errors.New("rate limited by classification server")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Backend request failed with status: %d", e.Status)
}

// Client posts batches to POST /v1/classify.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the full classify URL.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Classify sends one batch and returns the server's classifications.
func (c *Client) Classify(ctx context.Context, req domain.ClassifyRequest) (map[string]domain.ClassificationRecord, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, &StatusError{Status: resp.StatusCode})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}

	var out domain.ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Classifications == nil {
		return nil, errors.New("response has no classifications")
	}
	return out.Classifications, nil
}
