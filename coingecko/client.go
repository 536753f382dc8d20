package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrRateLimited marks an HTTP 429 from upstream. It is the only error
// class the retry policy will retry.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// Client is a thin REST client for the market-data API. It does no pacing
// of its own; callers go through the rate limiter and retry policy.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListTopAssets fetches the top assets by market capitalization, one page.
// Upstream caps a page at 250 entries.
func (c *Client) ListTopAssets(ctx context.Context, limit int) ([]MarketAsset, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("page", "1")

	var assets []MarketAsset
	if err := c.getJSON(ctx, "/coins/markets", q, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAssetDetail fetches the full metadata document for one coin id.
func (c *Client) GetAssetDetail(ctx context.Context, id string) (*AssetDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "true")
	q.Set("developer_data", "true")

	var detail AssetDetail
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id), q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetHistoricalRange fetches daily price/market-cap/volume series between
// from and to (inclusive, UTC).
func (c *Client) GetHistoricalRange(ctx context.Context, id string, from, to time.Time) (*HistoricalRange, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	var rng HistoricalRange
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart/range", q, &rng); err != nil {
		return nil, err
	}
	return &rng, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: %w", path, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
