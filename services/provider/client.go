package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go_scanner_project/models"

	"github.com/shopspring/decimal"
)

const defaultRequestTimeout = 30 * time.Second

// Client is the HTTP implementation of MarketDataProvider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a provider client for the given API base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// barPayload is one daily bar in the provider's wire format.
type barPayload struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// barsResponse is the provider's bar history response.
type barsResponse struct {
	Ticker string       `json:"ticker"`
	Bars   []barPayload `json:"bars"`
}

// universeVolumeResponse is the aggregate volume response.
type universeVolumeResponse struct {
	Volumes map[string]int64 `json:"volumes"`
}

// activeTickersResponse is the active symbol listing response.
type activeTickersResponse struct {
	Tickers []string `json:"tickers"`
}

// GetBars fetches daily bars for a ticker and validates the payload.
func (c *Client) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	query := url.Values{}
	query.Set("ticker", ticker)
	query.Set("start", start.Format("2006-01-02"))
	query.Set("end", end.Format("2006-01-02"))

	var payload barsResponse
	if err := c.get(ctx, "/v1/bars", query, &payload); err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(payload.Bars))
	for _, b := range payload.Bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q for %s", ErrMalformedData, b.Date, ticker)
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("%w: inverted high/low for %s on %s", ErrMalformedData, ticker, b.Date)
		}
		bars = append(bars, models.Bar{
			Date:   date,
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: b.Volume,
		})
	}

	if !models.SortedByDate(bars) {
		return nil, fmt.Errorf("%w: non-monotonic dates for %s", ErrMalformedData, ticker)
	}

	return bars, nil
}

// GetUniverseVolume fetches aggregate share volume per ticker over the range.
func (c *Client) GetUniverseVolume(ctx context.Context, start, end time.Time) (map[string]int64, error) {
	query := url.Values{}
	query.Set("start", start.Format("2006-01-02"))
	query.Set("end", end.Format("2006-01-02"))

	var payload universeVolumeResponse
	if err := c.get(ctx, "/v1/universe/volume", query, &payload); err != nil {
		return nil, err
	}
	return payload.Volumes, nil
}

// ListActiveTickers fetches every symbol active in the range.
func (c *Client) ListActiveTickers(ctx context.Context, start, end time.Time) ([]string, error) {
	query := url.Values{}
	query.Set("start", start.Format("2006-01-02"))
	query.Set("end", end.Format("2006-01-02"))

	var payload activeTickersResponse
	if err := c.get(ctx, "/v1/universe/active", query, &payload); err != nil {
		return nil, err
	}
	return payload.Tickers, nil
}

// get performs one GET against the provider API and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	return nil
}
