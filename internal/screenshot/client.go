// Package screenshot captures chart images through an external
// render-and-host service. The service loads a chart URL in a headless
// browser, uploads the capture, and returns the hosted image URL.
package screenshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tradewind-ai/tradewind/internal/httpkit"
)

// timeframes are captured in this order for every chart request.
var timeframes = []struct {
	Name     string
	Interval string
}{
	{"hourly", "1H"},
	{"daily", "1D"},
	{"weekly", "1W"},
	{"monthly", "1M"},
}

// Capture is one hosted chart image.
type Capture struct {
	Timeframe string `json:"timeframe"`
	Interval  string `json:"interval"`
	URL       string `json:"url"`
}

// Client talks to the chart-capture service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a capture service client. Rendering a chart in a
// headless browser takes a while, so the timeout is generous.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(60 * time.Second),
		),
		logger: logger.With("component", "screenshot"),
	}
}

// CaptureChart renders the chart at chartURL once per timeframe and
// returns the hosted image URLs in timeframe order. The interval is
// appended to the chart URL the way the charting site expects.
func (c *Client) CaptureChart(ctx context.Context, chartURL string) ([]Capture, error) {
	captures := make([]Capture, 0, len(timeframes))
	for _, tf := range timeframes {
		target := chartURL + "&interval=" + tf.Interval

		hosted, err := c.capture(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("capture %s chart: %w", tf.Name, err)
		}

		c.logger.Info("chart captured", "timeframe", tf.Name, "url", hosted)
		captures = append(captures, Capture{
			Timeframe: tf.Name,
			Interval:  tf.Interval,
			URL:       hosted,
		})
	}
	return captures, nil
}

// capture asks the service to render one URL and returns the hosted
// image location.
func (c *Client) capture(ctx context.Context, target string) (string, error) {
	q := url.Values{}
	q.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/capture?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request capture: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return "", fmt.Errorf("capture service error %d: %s", resp.StatusCode, body)
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("capture service returned no image URL")
	}
	return result.URL, nil
}
