// Package sportmonks provides the HTTP client for the SportMonks v3 API.
//
// SportMonks uses token-based auth (query parameter), page-based pagination,
// and nested include-based relationships. Core entities (countries) live
// under /core, football entities under /football and bookmakers under /odds.
package sportmonks

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
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/albapepper/scoracle-sync/internal/provider"
)

const (
	DefaultBaseURL = "https://api.sportmonks.com/v3"
	defaultPerPage = 50
)

// Options tunes the HTTP client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration // per request attempt
	MaxRetries        int           // attempts after the first
	RetryInterval     time.Duration // initial backoff interval
	PerPage           int
}

// Client is the HTTP client for SportMonks endpoints.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiToken      string
	limiter       *rate.Limiter
	timeout       time.Duration
	maxTries      uint
	retryInterval time.Duration
	perPage       int
	logger        *slog.Logger
}

var _ provider.Client = (*Client)(nil)

// NewClient creates a SportMonks HTTP client with rate limiting and retries.
func NewClient(apiToken string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 180
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	rps := float64(opts.RequestsPerMinute) / 60.0
	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		apiToken:      apiToken,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		timeout:       opts.Timeout,
		maxTries:      uint(opts.MaxRetries) + 1,
		retryInterval: opts.RetryInterval,
		perPage:       opts.PerPage,
		logger:        logger,
	}
}

// Name identifies the provider in responses and logs.
func (c *Client) Name() string { return "sportmonks" }

// paginatedResponse is the common SportMonks response wrapper.
type paginatedResponse struct {
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
	Message string `json:"message"`
}

// errTransient marks failures worth another attempt.
var errTransient = errors.New("transient")

// get performs a rate-limited GET with exponential backoff on network
// errors, 429 and 5xx. Every failure other than a 404 or the caller's own
// cancellation is reported as provider.ErrUnavailable.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*paginatedResponse, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiToken)
	u := c.baseURL + path + "?" + params.Encode()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	attempt := 0
	op := func() (*paginatedResponse, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
		resp, err := c.do(ctx, path, u)
		if err != nil && errors.Is(err, errTransient) {
			c.logger.Warn("SportMonks request failed, retrying",
				"path", path, "attempt", attempt, "error", err)
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxTries),
	)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, provider.ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", provider.ErrUnavailable, err)
}

// do runs one attempt under the per-request timeout.
func (c *Client) do(ctx context.Context, path, u string) (*paginatedResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL including the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: http request %s: %w", errTransient, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", errTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: SportMonks %s returned %d: %s", errTransient, path, resp.StatusCode, truncate(body, 200))
	default:
		return nil, fmt.Errorf("SportMonks %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	var result paginatedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// getPaginated fetches all pages from a paginated endpoint.
func (c *Client) getPaginated(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", strconv.Itoa(c.perPage))

	var allData []json.RawMessage
	page := 1

	for {
		params.Set("page", strconv.Itoa(page))
		resp, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}

		// Data can be array, object or absent (no results)
		if len(resp.Data) == 0 || string(resp.Data) == "null" {
			break
		}
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			allData = append(allData, resp.Data)
			break
		}

		allData = append(allData, items...)

		if resp.Pagination == nil || !resp.Pagination.HasMore {
			break
		}
		page++
	}

	return allData, nil
}

// getOne fetches a single record by id and decodes it into out.
func (c *Client) getOne(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: %s", provider.ErrNotFound, path)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", provider.ErrUnavailable, path, err)
	}
	return nil
}

// decodeAll unmarshals raw items, skipping (and logging) malformed ones.
func decodeAll[T any](c *Client, kind string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			c.logger.Warn("Skipping malformed record", "kind", kind, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// truncate returns a truncated string for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
