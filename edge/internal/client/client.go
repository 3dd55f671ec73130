// Package client talks to the QuietEye backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/quieteye/quieteye-stack/common/events"
	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/common/middleware"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
)

// RetryPolicy bounds redelivery of failed requests. Only transport errors
// and 5xx answers are retried. A retried POST may store the event twice
// because the backend does not deduplicate.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// NoRetry sends every request exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	DBOK    bool   `json:"db_ok"`
}

type IngestClient struct {
	baseURL string
	client  *http.Client
	retry   RetryPolicy
	logger  *logging.Logger
}

type Option func(*IngestClient)

// WithTimeout bounds each attempt, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *IngestClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *IngestClient) { c.client = hc }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *IngestClient) { c.retry = p }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *IngestClient) { c.logger = l }
}

func NewIngestClient(baseURL string, opts ...Option) *IngestClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   DefaultRetryPolicy(),
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client sends to.
func (c *IngestClient) BaseURL() string {
	return c.baseURL
}

// PostEvent submits ev and returns the stored form, including the ID the
// backend assigned.
func (c *IngestClient) PostEvent(ctx context.Context, ev *events.Event) (*events.StoredEvent, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	var stored events.StoredEvent
	if err := c.do(ctx, http.MethodPost, "/v1/events", body, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListEvents returns the most recent events, newest first. A limit of zero
// leaves the choice to the backend.
func (c *IngestClient) ListEvents(ctx context.Context, limit int) ([]events.StoredEvent, error) {
	path := "/v1/events"
	if limit != 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var result []events.StoredEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []events.StoredEvent{}
	}
	return result, nil
}

// Health fetches the backend's health report.
func (c *IngestClient) Health(ctx context.Context) (*HealthStatus, error) {
	var hs HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}

// do sends one logical request, retrying per the client's policy, and
// decodes a 2xx body into out. Every attempt carries the same request ID
// so the backend's logs tie redeliveries together.
func (c *IngestClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	target := c.baseURL + path
	requestID := uuid.NewString()
	attempt := 0

	op := func() error {
		attempt++
		err := c.attempt(ctx, method, target, requestID, body, out)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		var te *TransportError
		if errors.As(err, &te) {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if apiErr == nil {
			// bad request URL or undecodable success body
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		attrs := []any{
			logging.Method(method),
			logging.BackendURL(c.baseURL),
			logging.Path(path),
			logging.Attempt(attempt),
			slog.Duration("wait", wait),
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, logging.Status(apiErr.StatusCode))
		}
		attrs = append(attrs, logging.Error(err))
		c.logger.WarnContext(ctx, "backend request failed, retrying", attrs...)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.backOff(), ctx), notify)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	var te *TransportError
	if !errors.As(err, &apiErr) && !errors.As(err, &te) && ctx.Err() != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}
	return err
}

func (c *IngestClient) backOff() backoff.BackOff {
	if c.retry.MaxRetries <= 0 {
		return &backoff.StopBackOff{}
	}

	b := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		b.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.retry.MaxRetries))
}

func (c *IngestClient) attempt(ctx context.Context, method, target, requestID string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", target, err)
	}
	return nil
}

func newAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var body struct {
		Error  string              `json:"error"`
		Fields []events.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
	}
	return apiErr
}
