package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/pkg/logger"
)

// Default remote classifier configuration constants.
const (
	defaultRemoteTimeout = 5 * time.Second
	defaultRemoteRetries = 2
	defaultRetryBackoff  = 250 * time.Millisecond
)

// HTTPClassifier implements Classifier against a remote inference
// endpoint. The endpoint is expected to expose POST /load and
// POST /classify accepting JSON bodies.
type HTTPClassifier struct {
	name    string
	baseURL string
	client  *http.Client
	retries int
	backoff time.Duration
	logger  logger.Logger
}

// classifyRequest is the wire body for POST /classify.
type classifyRequest struct {
	Model  string        `json:"model"`
	Sketch *model.Raster `json:"sketch"`
}

// classifyResponse is the wire body returned by POST /classify.
type classifyResponse struct {
	Predictions []model.Prediction `json:"predictions"`
}

// loadRequest is the wire body for POST /load.
type loadRequest struct {
	Model string `json:"model"`
}

// NewHTTPClassifier creates a classifier backed by a remote inference
// service.
func NewHTTPClassifier(name, baseURL string, opts ...RemoteOption) *HTTPClassifier {
	c := &HTTPClassifier{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRemoteTimeout},
		retries: defaultRemoteRetries,
		backoff: defaultRetryBackoff,
		logger:  logger.Get().Named("inference"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the model identifier this classifier serves.
func (c *HTTPClassifier) Name() string {
	return c.name
}

// Warm asks the remote service to load the model weights.
func (c *HTTPClassifier) Warm(ctx context.Context) error {
	body, err := json.Marshal(loadRequest{Model: c.name})
	if err != nil {
		return fmt.Errorf("encode load request: %w", err)
	}

	return c.withRetries(ctx, func() error {
		return c.post(ctx, c.baseURL+"/load", body, nil)
	})
}

// Classify posts the raster to the remote service and decodes the
// ranked prediction list.
func (c *HTTPClassifier) Classify(ctx context.Context, r *model.Raster) ([]model.Prediction, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("remote classify: %w", err)
	}

	body, err := json.Marshal(classifyRequest{Model: c.name, Sketch: r})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	var resp classifyResponse
	err = c.withRetries(ctx, func() error {
		return c.post(ctx, c.baseURL+"/classify", body, &resp)
	})
	if err != nil {
		return nil, err
	}

	return resp.Predictions, nil
}

// withRetries runs fn up to retries+1 times with a fixed backoff,
// stopping early on context cancellation.
func (c *HTTPClassifier) withRetries(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("remote call cancelled: %w", ctx.Err())
			case <-time.After(c.backoff):
			}
			c.logger.Warn(ctx, "retrying remote inference call",
				logger.String("model", c.name),
				logger.Int("attempt", attempt),
				logger.Error(lastErr),
			)
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.retries+1, lastErr)
}

// post sends a JSON body and, when out is non-nil, decodes the JSON
// response into it.
func (c *HTTPClassifier) post(ctx context.Context, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote call failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best effort close

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s from %s", ErrUnexpectedStatus, resp.Status, url)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
