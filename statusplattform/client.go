// Package statusplattform implements the client side of the portal status registry API
package statusplattform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// APIKeyHeader carries the registry api key on every request
	APIKeyHeader = "Apikey"

	servicesEndpoint      = "rest/Services"
	serviceEndpoint       = "rest/Service"
	serviceStatusEndpoint = "rest/ServiceStatus"

	// DefaultRequestTimeout bounds a single HTTP round trip
	DefaultRequestTimeout = time.Second * 10
	// DefaultMaxRetryDuration bounds retries of transient failures
	DefaultMaxRetryDuration = time.Second * 10

	maxErrorBody = 512
)

// ErrRegistryUnavailable is wrapped by every error returned from the registry client
var ErrRegistryUnavailable = errors.New("status registry unavailable")

// Registry resolves services and records their status
type Registry interface {
	// ResolveOrCreate returns the registry id of a named service, creating it on first sight.
	// Concurrent calls for the same name result in a single creation.
	ResolveOrCreate(ctx context.Context, name, team string) (uuid.UUID, error)
	// ReportStatus writes a status record for the service
	ReportStatus(ctx context.Context, id uuid.UUID, status Status, description string) error
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if retried
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client talks to the status registry over HTTP.
// It is safe for concurrent use.
type Client struct {
	httpClient       *http.Client
	baseURL          *url.URL
	apiKey           string
	maxRetryDuration time.Duration

	resolving singleflight.Group
}

// Option customizes the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRequestTimeout sets timeout of a single round trip
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetryDuration bounds the time spent retrying transient failures, zero disables retries
func WithMaxRetryDuration(d time.Duration) Option {
	return func(c *Client) {
		c.maxRetryDuration = d
	}
}

// NewClient creates a registry client for the given base url
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	if strings.ContainsAny(apiKey, "\r\n") {
		return nil, errors.New("api key is not a valid header value")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		httpClient:       &http.Client{Timeout: DefaultRequestTimeout},
		baseURL:          u,
		apiKey:           apiKey,
		maxRetryDuration: DefaultMaxRetryDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL.JoinPath(endpoint).String()
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	if c.maxRetryDuration <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetryDuration
	return backoff.WithContext(bo, ctx)
}

// retry runs op until it succeeds, fails permanently or the retry budget is spent
func (c *Client) retry(ctx context.Context, op backoff.Operation) error {
	logger := log.FromContext(ctx)
	notify := func(err error, next time.Duration) {
		logger.V(1).Info("retrying registry request", "error", err.Error(), "backoff", next)
	}
	return backoff.RetryNotify(op, c.newBackOff(ctx), notify)
}

// do sends a JSON request and decodes the response into out, if provided.
// Transport errors and temporary status codes are retried.
// Requests that are not idempotent must use send within a retry of their own.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	if err := c.retry(ctx, func() error {
		return c.send(ctx, method, endpoint, in, out)
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	return nil
}

// send makes a single attempt, errors that must not be retried are marked permanent
func (c *Client) send(ctx context.Context, method, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return backoff.Permanent(fmt.Errorf("encode %s %s: %w", method, endpoint, err))
		}
	}
	return c.roundTrip(ctx, method, endpoint, payload, out)
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(endpoint), body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
		if serr.Temporary() {
			return serr
		}
		return backoff.Permanent(serr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s %s response: %w", method, endpoint, err))
	}
	return nil
}
