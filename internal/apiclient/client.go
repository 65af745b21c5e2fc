// Package apiclient talks to a running `kpicast serve` instance.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/daemon"
	"github.com/theirongolddev/kpicast/internal/model"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // 8 MB
)

var (
	// ErrNotFound indicates the requested indicator or route does not exist.
	ErrNotFound = errors.New("apiclient: not found")
	// ErrUnavailable indicates the service has no usable result yet.
	ErrUnavailable = errors.New("apiclient: service unavailable")
)

// Client calls the service API.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the service at addr ("host:port" or a URL).
// Returns nil if addr is empty.
func New(addr string) *Client {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" {
		return nil
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{base: addr, http: &http.Client{}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Status fetches /v1/status.
func (c *Client) Status(ctx context.Context) (*daemon.Status, error) {
	var st daemon.Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Forecasts fetches the latest result table.
func (c *Client) Forecasts(ctx context.Context, lang string) (*daemon.ForecastsResponse, error) {
	path := "/v1/forecasts"
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}
	var resp daemon.ForecastsResponse
	if err := c.do(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Forecast fetches one indicator by name or English label.
func (c *Client) Forecast(ctx context.Context, indicator string) (*model.ForecastRow, error) {
	var row model.ForecastRow
	if err := c.do(ctx, http.MethodGet, "/v1/forecasts/"+url.PathEscape(indicator), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Merchants looks up merchant statuses by id substring.
func (c *Client) Merchants(ctx context.Context, query string) ([]model.StatusRecord, error) {
	var resp daemon.MerchantsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/merchants/"+url.PathEscape(query), &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Refresh forces a pipeline run and returns its summary.
func (c *Client) Refresh(ctx context.Context) (*daemon.RunSummary, error) {
	var summary daemon.RunSummary
	if err := c.do(ctx, http.MethodPost, "/v1/refresh", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// do performs a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("apiclient: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "kpicast/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("apiclient: reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, errorMessage(body, resp.StatusCode))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, errorMessage(body, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("apiclient: %s", errorMessage(body, resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apiclient: parsing %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts the service's error text, falling back to the status.
func errorMessage(body []byte, status int) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fmt.Sprintf("unexpected status %d", status)
}
