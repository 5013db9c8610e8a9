package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/fitlog/internal/ingest"
)

// Ingest endpoints on the fitlog server.
const (
	AlphaPath = "/api/v1/ingest/alpha"
	HAEPath   = "/api/v1/ingest/hae"
)

const maxAttempts = 3

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

// Client sends exports to the fitlog server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the fitlog server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL:  serverURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		backoff:    time.Second,
	}
}

// Send POSTs body to path with the X-API-Key header and decodes the ingest
// result. Transport errors and 5xx responses are retried with exponential
// backoff; 4xx responses fail immediately.
func (c *Client) Send(ctx context.Context, path, contentType string, body []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << (attempt - 1)):
			}
		}

		res, err := c.post(ctx, path, contentType, body)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, errPermanent) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) (*ingest.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", errPermanent, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: ingest rejected (status %d): %s", errPermanent, resp.StatusCode, data)
	default:
		return nil, fmt.Errorf("ingest failed (status %d): %s", resp.StatusCode, data)
	}

	var res ingest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding ingest result: %v", errPermanent, err)
	}
	return &res, nil
}
