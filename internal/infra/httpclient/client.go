// Package httpclient implements the retrying JSON GET client shared by the
// upstream API adapters.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"crypto-report/internal/observability/logging"
	"crypto-report/internal/observability/tracing"
	"crypto-report/internal/resilience/circuitbreaker"
	"crypto-report/internal/resilience/retry"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	// maxBodySize bounds how much of a response is read.
	maxBodySize = 10 << 20 // 10 MiB

	// maxErrorBody bounds the body kept on a StatusError.
	maxErrorBody = 4 << 10

	defaultUserAgent = "crypto-report/1.0"
)

// Config holds the client settings.
type Config struct {
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration

	// Retry is the attempt budget and delay.
	Retry retry.Policy

	// UserAgent is sent on every request.
	UserAgent string
}

// Client performs GET requests that must return JSON.
type Client struct {
	http      *http.Client
	cfg       Config
	sleep     retry.SleepFunc
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	headers   http.Header
	observers []Observer
}

// Observer is notified of each finished call.
type Observer interface {
	ObserveFetch(upstream string, attempts int, err error)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithRateLimit limits requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithCircuitBreaker guards every call with cb.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithObserver registers o for fetch outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observers = append(c.observers, o) }
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	c := &Client{
		http:    &http.Client{},
		cfg:     cfg,
		sleep:   retry.Sleep,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) upstream() string {
	if c.breaker != nil {
		return c.breaker.Name()
	}
	return "default"
}

// GetJSON fetches url and returns the body once it is known to be JSON.
//
// Network errors, timeouts and non-2xx statuses are retried according to the
// policy. A non-JSON body fails at once with ErrInvalidJSON. When attempts
// run out the result is a *TransientFetchError wrapping the last failure.
func (c *Client) GetJSON(ctx context.Context, url string) (body []byte, err error) {
	redacted := logging.RedactURL(url)

	ctx, span := tracing.StartSpan(ctx, "http.get_json",
		attribute.String("http.url", redacted),
		attribute.String("upstream", c.upstream()))
	defer func() { tracing.EndSpan(span, err) }()

	logger := logging.FromContext(ctx).With(slog.String("url", redacted))
	ctx = logging.WithLogger(ctx, logger)

	attempts := 0
	call := func() ([]byte, error) {
		var data []byte
		n, err := retry.Do(ctx, c.cfg.Retry, c.sleep, func(ctx context.Context, _ int) error {
			var attemptErr error
			data, attemptErr = c.attempt(ctx, url)
			return attemptErr
		})
		attempts = n
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	if c.breaker != nil {
		body, err = circuitbreaker.Call(c.breaker, call)
	} else {
		body, err = call()
	}

	for _, o := range c.observers {
		o.ObserveFetch(c.upstream(), attempts, err)
	}

	switch {
	case err == nil:
		return body, nil
	case errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, retry.ErrAborted),
		errors.Is(err, circuitbreaker.ErrOpen):
		return nil, err
	default:
		fetchErr := &TransientFetchError{URL: redacted, Attempts: attempts, Err: err}
		logger.ErrorContext(ctx, "request failed after all retries",
			slog.Int("attempts", attempts),
			slog.String("error", logging.SanitizeError(err)))
		return nil, fetchErr
	}
}

func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if !json.Valid(body) {
		return nil, retry.Permanent(fmt.Errorf("%w (status %d, %d bytes)", ErrInvalidJSON, resp.StatusCode, len(body)))
	}

	return body, nil
}
