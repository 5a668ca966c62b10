package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// Client implements Source against the analytics backend's REST API.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewClient creates a new REST client with optional proxy support.
func NewClient(baseURL, apiKey, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (c *Client) Name() string { return "rest" }

// apiBar is the expected JSON shape of one bar from the backend.
type apiBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// barsResponse tolerates both response envelopes the backend has shipped.
type barsResponse struct {
	History []apiBar `json:"history"`
	Bars    []apiBar `json:"bars"`
}

// Bars fetches raw history. An absent or empty array is a valid empty
// result, not a protocol error.
func (c *Client) Bars(ctx context.Context, q Query, full bool) ([]model.Bar, error) {
	outputsize := "compact"
	if full {
		outputsize = "full"
	}
	endpoint := fmt.Sprintf("%s/bars?symbol=%s&interval=%s&period=%s&outputsize=%s",
		c.BaseURL, url.QueryEscape(q.Symbol), q.Interval, q.Period, outputsize)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload barsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	raw := payload.History
	if len(raw) == 0 {
		raw = payload.Bars
	}

	bars := make([]model.Bar, len(raw))
	for i, b := range raw {
		bars[i] = model.Bar{
			Time:   time.Unix(b.Timestamp, 0),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return bars, nil
}

// Invalidate triggers the backend's cooperative cache-bust for a symbol.
func (c *Client) Invalidate(ctx context.Context, symbol string) error {
	endpoint := fmt.Sprintf("%s/force-refresh/%s", c.BaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, nil)
	if err != nil {
		return err
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("force refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("force refresh: status %d", resp.StatusCode)
	}
	return nil
}
