package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/pkg/log"
)

// DefaultURL is the production batch-ingestion endpoint.
const DefaultURL = "https://api.stitchdata.com/v2/import/batch"

// maxSendAttempts bounds delivery retries per request body.
const maxSendAttempts = 8

// HTTPClient abstracts HTTP request execution for testing and custom
// transports. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RejectionError is a response from the gate with a non-2xx status.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("gate rejected request (status %d): %s", e.Status, e.Message)
}

// Permanent reports whether the rejection is a client error, which retrying
// cannot fix.
func (e *RejectionError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}

// UseBatchURL rewrites the retired push-ingestion path to the current batch
// path. Older configurations still carry the /import/push form.
func UseBatchURL(url string) string {
	const (
		pushSuffix  = "/import/push"
		batchSuffix = "/import/batch"
	)
	if strings.HasSuffix(url, pushSuffix) {
		return strings.TrimSuffix(url, pushSuffix) + batchSuffix
	}
	return url
}

// Client delivers serialized request bodies to the gate with bounded
// exponential-backoff retries. Client errors (4xx) are never retried.
type Client struct {
	httpClient     HTTPClient
	url            string
	token          atomic.Value // string
	maxAttempts    int
	backoffInitial time.Duration
	backoffMax     time.Duration
	logger         log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxAttempts overrides the retry ceiling.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithBackoff overrides the retry backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.backoffInitial = initial
		c.backoffMax = max
	}
}

// NewClient creates a delivery client for the given endpoint and bearer token.
func NewClient(url, token string, logger log.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		url:            url,
		maxAttempts:    maxSendAttempts,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
		logger:         logger,
	}
	c.token.Store(token)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for subsequent requests. Safe to
// call from the config watcher goroutine.
func (c *Client) SetToken(token string) {
	c.token.Store(token)
}

// URL returns the endpoint the client delivers to.
func (c *Client) URL() string {
	return c.url
}

// Send delivers one request body, retrying transient failures with
// exponential backoff up to the attempt ceiling. On a permanent rejection or
// exhausted retries it returns a known error carrying the decoded gate
// message, or a generic connectivity error when no response was ever
// received.
func (c *Client) Send(ctx context.Context, body []byte) error {
	back := newBackoff(c.backoffInitial, c.backoffMax)

	var last error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.post(ctx, body)
		if err == nil {
			return nil
		}

		var rej *RejectionError
		if errors.As(err, &rej) && rej.Permanent() {
			return domain.Knownf("error sending data to the gate: %s", rej.Message)
		}

		last = err
		if attempt == c.maxAttempts {
			break
		}
		c.logger.Info("error sending data to the gate, backing off before trying again",
			log.Int("attempt", attempt),
			log.Duration("wait", back.Current()),
			log.Err(err))
		if serr := back.Sleep(ctx); serr != nil {
			return serr
		}
	}

	var rej *RejectionError
	if errors.As(last, &rej) {
		return domain.Knownf("error sending data to the gate: %s", rej.Message)
	}
	c.logger.Error("giving up connecting to the gate", log.Err(last))
	return domain.Knownf("error connecting to the gate")
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token.Load().(string))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return &RejectionError{
		Status:  resp.StatusCode,
		Message: rejectionMessage(resp.StatusCode, respBody),
	}
}

// rejectionMessage extracts the human-oriented "message" field from an error
// response. Some deployments double-encode the error document, so a quoted
// JSON string is unwrapped once. Anything undecodable falls back to the raw
// status and body.
func rejectionMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil {
		if json.Unmarshal([]byte(quoted), &payload) == nil && payload.Message != "" {
			return payload.Message
		}
	}

	return fmt.Sprintf("status %d: %s", status, bytes.TrimSpace(body))
}
