// Package github provides a minimal GitHub REST v3 read client for the
// issue-thread and root-commit lookups. Calls are single-attempt: every
// failure in the publish pipeline requires a new user-initiated action, so
// the client never retries on its own.
package github

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	defaultUA      = "gitstr-agent"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Optional personal token; empty means tokenless (low quota)
	Token string
}

// Client is a read-only GitHub REST client
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("github"),
		now:  time.Now,
	}
}

// do issues a single GET with auth headers and returns the response on 2xx
func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	url := c.opts.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstreamFetch, "github new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "token "+c.opts.Token)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstreamFetch, "github request failed")
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", atoi(resp.Header.Get("X-RateLimit-Remaining"))).
		Msg("github http response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// read a small tail for diagnostics then fail
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, perr.UpstreamFetchf("github status %d on %s: %s", resp.StatusCode, path, string(body))
	}
	return resp, nil
}

// getJSON performs do and decodes the body into out, returning the headers
func (c *Client) getJSON(ctx context.Context, path string, out any) (http.Header, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstreamFetch, "github read body failed")
	}
	if err := unmarshal(b, out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstreamFetch, "github decode failed")
	}
	return resp.Header, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
