// Package fundapi provides the client for the external fund data source that
// supplies fund info, NAV history and allocation breakdowns.
package fundapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when no base URL is set. Callers treat this as
// "refresh unavailable", not as a transient failure.
var ErrNotConfigured = errors.New("fundapi: base URL not configured")

// ErrNotFound is returned when the data source does not know the fund code.
var ErrNotFound = errors.New("fundapi: fund not found")

// StatusError is a non-2xx response from the data source.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fundapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is the fund data source client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new fund data client. An empty baseURL produces a client
// whose calls all fail with ErrNotConfigured.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "fundapi").Logger(),
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// FundInfo is the data source's description of a fund.
type FundInfo struct {
	FundCode string `json:"fund_code"`
	FundName string `json:"fund_name"`
	FundType string `json:"fund_type"`
}

// NavPoint is one day's NAV from the data source.
type NavPoint struct {
	Date string  `json:"date"`
	Nav  float64 `json:"nav"`
}

// AllocationEntry is one category row of a fund's reported allocation.
type AllocationEntry struct {
	Dimension  string  `json:"dimension"`
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	ReportDate string  `json:"report_date"`
}

// TopHoldingEntry is one reported top stock position.
type TopHoldingEntry struct {
	StockCode  string  `json:"stock_code"`
	StockName  string  `json:"stock_name"`
	Percentage float64 `json:"percentage"`
}

// GetFundInfo fetches basic fund metadata.
func (c *Client) GetFundInfo(ctx context.Context, fundCode string) (*FundInfo, error) {
	var info FundInfo
	if err := c.getJSON(ctx, "/funds/"+url.PathEscape(fundCode), &info); err != nil {
		return nil, err
	}
	if info.FundCode == "" {
		info.FundCode = fundCode
	}
	return &info, nil
}

// GetNavHistory fetches NAV history since the given date (inclusive). An empty
// since fetches the full history the source keeps.
func (c *Client) GetNavHistory(ctx context.Context, fundCode, since string) ([]NavPoint, error) {
	path := "/funds/" + url.PathEscape(fundCode) + "/nav"
	if since != "" {
		path += "?start=" + url.QueryEscape(since)
	}
	var points []NavPoint
	if err := c.getJSON(ctx, path, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// GetAllocation fetches the fund's allocation breakdown across all dimensions.
func (c *Client) GetAllocation(ctx context.Context, fundCode string) ([]AllocationEntry, error) {
	var entries []AllocationEntry
	if err := c.getJSON(ctx, "/funds/"+url.PathEscape(fundCode)+"/allocation", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetTopHoldings fetches the fund's reported top stock positions.
func (c *Client) GetTopHoldings(ctx context.Context, fundCode string) ([]TopHoldingEntry, error) {
	var entries []TopHoldingEntry
	if err := c.getJSON(ctx, "/funds/"+url.PathEscape(fundCode)+"/top-holdings", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("fundapi: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fundapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fundapi: failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("fundapi: failed to decode response: %w", err)
	}
	return nil
}
