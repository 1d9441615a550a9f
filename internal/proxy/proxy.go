// Package proxy implements the HTTP client for the scraping proxy service.
//
// The proxy exposes two call shapes: a generic URL-render fetch returning
// raw page content, and query-parameterized JSON endpoints such as the
// company feed. Both carry the API key as a query parameter.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Response bodies are capped; rendered pages can be large but bounded.
const maxBodyBytes = 10 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the scraping proxy.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPClient
}

// New creates a Client with the given base URL, API key and HTTP client.
func New(baseURL, apiKey string, client HTTPClient) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    client,
	}
}

// Scrape fetches the rendered page content of an arbitrary target URL
// through the proxy's generic scrape endpoint.
func (c *Client) Scrape(ctx context.Context, target string) ([]byte, error) {
	q := url.Values{}
	q.Set("url", target)
	q.Set("render_js", "true")
	return c.Get(ctx, "/scrape", q)
}

// Get performs a GET against a proxy endpoint path with the given query
// parameters, returning the raw response body. Any non-2xx status is an
// error; callers decide whether to collapse that to an empty result.
func (c *Client) Get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "socialpulse/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
