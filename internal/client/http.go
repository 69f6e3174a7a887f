package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/tgate/dataviewer/internal/logging"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// HTTPClient makes read-only REST calls to the dataviewer backend. Transient
// failures (connection errors, 5xx) are retried with backoff before an error
// is returned.
type HTTPClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// Option adjusts an HTTPClient.
type Option func(*retryablehttp.Client)

// WithTimeout bounds each attempt of a request.
func WithTimeout(d time.Duration) Option {
	return func(rc *retryablehttp.Client) {
		if d > 0 {
			rc.HTTPClient.Timeout = d
		}
	}
}

// WithRetryMax sets how many times a transient failure is retried.
func WithRetryMax(n int) Option {
	return func(rc *retryablehttp.Client) {
		if n >= 0 {
			rc.RetryMax = n
		}
	}
}

// NewHTTPClient creates a client targeting baseURL (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 4 * time.Second
	rc.HTTPClient.Timeout = requestTimeout
	rc.Logger = logging.Retryable{}
	for _, o := range opts {
		o(rc)
	}
	return &HTTPClient{baseURL: baseURL, client: rc}
}

// BaseURL returns the server root the client talks to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// FetchTable fetches GET /tables/{table} with the given filters.
func (c *HTTPClient) FetchTable(ctx context.Context, table string, f Filters) (*TablePage, error) {
	var p TablePage
	if err := c.get(ctx, "/tables/"+url.PathEscape(table), f.Values(), &p); err != nil {
		return nil, err
	}
	if p.Rows == nil {
		p.Rows = []Row{}
	}
	return &p, nil
}

// FetchSchema fetches GET /tables/{table}/schema.
func (c *HTTPClient) FetchSchema(ctx context.Context, table string) (*Schema, error) {
	var s Schema
	if err := c.get(ctx, "/tables/"+url.PathEscape(table)+"/schema", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FetchStatus fetches GET /tables/status.
func (c *HTTPClient) FetchStatus(ctx context.Context) (map[string]TableStatus, error) {
	out := make(map[string]TableStatus)
	if err := c.get(ctx, "/tables/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := retryablehttp.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("GET %s: %d %s", path, resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "GET %s: decode", path)
	}
	return nil
}
