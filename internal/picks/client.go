// Package picks fetches, caches and paginates the NYT Critics' Picks feed.
package picks

import (
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

	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/httpclient"
)

const (
	// DefaultBaseURL is the NYT Movie Reviews picks endpoint.
	DefaultBaseURL = "https://api.nytimes.com/svc/movies/v2/reviews/picks.json"
	// BatchSize is the fixed number of picks per page.
	BatchSize = 20

	imdbSearchURL    = "https://www.imdb.com/find/?s=tt&q="
	maxErrorBodySize = 512
)

// Client is a NYT Critics' Picks API client.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *httpclient.Client
	logger  *slog.Logger
}

// compile-time check.
var _ core.PicksSource = (*Client)(nil)

// New creates a new picks client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey string, httpClient *httpclient.Client, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.DefaultConfig(), logger)
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Endpoint returns the base URL without credentials. It is the URL half of
// the page cache key.
func (c *Client) Endpoint() string {
	u := *c.baseURL
	q := u.Query()
	q.Del("api-key")
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage performs one GET for the page at offset and classifies the response.
func (c *Client) FetchPage(ctx context.Context, offset int) (*core.Page, error) {
	if err := ValidateOffset(offset); err != nil {
		return nil, err
	}

	u := *c.baseURL
	q := u.Query()
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching picks", slog.Int("offset", offset))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = c.Endpoint()
		}
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if errors.Is(statusErr, ErrRateLimited) {
			c.logger.Warn("picks request rate limited", slog.Int("offset", offset))
		} else {
			c.logger.Warn("picks request failed",
				slog.Int("offset", offset),
				slog.Int("status", resp.StatusCode),
			)
		}
		return nil, fmt.Errorf("fetch picks at offset %d: %w", offset, statusErr)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	var payload picksResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	page := payload.toPage(offset)
	c.logger.Debug("fetched picks",
		slog.Int("offset", offset),
		slog.Int("count", len(page.Picks)),
		slog.Bool("has_more", page.HasMore),
	)
	return page, nil
}

// ValidateOffset reports whether offset is a non-negative multiple of BatchSize.
func ValidateOffset(offset int) error {
	if offset < 0 || offset%BatchSize != 0 {
		return fmt.Errorf("offset %d must be a non-negative multiple of %d", offset, BatchSize)
	}
	return nil
}

// IMDbSearchURL returns an IMDb title search link for a display title.
func IMDbSearchURL(title string) string {
	return imdbSearchURL + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}
