package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "criticspicks/0.1"

// Config holds timeout, throttling and retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts per request. 1 disables retries.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
	// RequestsPerMinute throttles outgoing requests. 0 disables throttling.
	RequestsPerMinute int
	UserAgent         string
}

// DefaultConfig returns sensible defaults: one attempt, no throttling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 1,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Timeout:     30 * time.Second,
		UserAgent:   defaultUserAgent,
	}
}

// Client wraps http.Client with throttling, logging and optional retries.
type Client struct {
	http    *http.Client
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a new Client with a default http.Client.
func New(cfg Config, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

// NewWithHTTPClient creates a Client with a custom http.Client (e.g. a test transport).
func NewWithHTTPClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		http:    httpClient,
		config:  cfg,
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logger,
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Do executes an HTTP request. Only transport errors and 5xx responses to
// idempotent requests are retried, and only when MaxAttempts > 1. A 429 is
// always handed back to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var lastErr error
	for attempt := range c.config.MaxAttempts {
		if attempt > 0 {
			if err := c.waitBeforeRetry(req.Context(), attempt, redactURL(req)); err != nil {
				return nil, err
			}
			if err := replayBody(req); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			err = redactError(err, req)
			c.logger.Debug("request failed",
				slog.String("url", redactURL(req)),
				slog.String("error", err.Error()),
			)
			if !isIdempotent(req.Method) {
				return nil, err
			}
			lastErr = err
			continue
		}

		c.logger.Debug("request completed",
			slog.String("url", redactURL(req)),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)

		if !shouldRetry(resp.StatusCode, req.Method) || attempt == c.config.MaxAttempts-1 {
			return resp, nil
		}
		lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, redactURL(req))
		_ = resp.Body.Close()
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

func (c *Client) waitBeforeRetry(ctx context.Context, attempt int, target string) error {
	delay := c.backoff(attempt)

	c.logger.Debug("retrying request",
		slog.Int("attempt", attempt+1),
		slog.String("delay", delay.String()),
		slog.String("url", target),
	)

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func replayBody(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to replay request body: %w", err)
	}
	req.Body = body
	return nil
}

// redactURL returns the request URL without its query, which carries the API key.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// redactError strips the query from the URL embedded in a transport error.
func redactError(err error, req *http.Request) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = redactURL(req)
	}
	return err
}

// isIdempotent returns true for HTTP methods that are safe to retry.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// shouldRetry returns true for status codes that warrant a retry.
// 429 is deliberately absent: rate limiting is reported to the caller.
func shouldRetry(statusCode int, method string) bool {
	if !isIdempotent(method) {
		return false
	}
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff calculates the delay for a given attempt with jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.config.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.config.MaxDelay) {
		delay = float64(c.config.MaxDelay)
	}
	jitter := delay * 0.2 * rand.Float64() // #nosec G404
	return time.Duration(delay + jitter)
}
