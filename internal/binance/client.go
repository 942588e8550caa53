// Package binance provides clients for the Binance spot market API:
// a REST client for market data and signed account endpoints, and a
// WebSocket client for live ticker streams.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tradewind-ai/tradewind/internal/httpkit"
)

// DefaultBaseURL is the Binance spot REST API root.
const DefaultBaseURL = "https://api.binance.com/api/v3"

// defaultRecvWindow bounds how long a signed request stays valid, in
// milliseconds. Binance rejects values above 60000.
const defaultRecvWindow = 5000

// security is the Binance endpoint security type: public, API-key
// header only, or HMAC-signed.
type security int

const (
	securityNone security = iota
	securityAPIKey
	securitySigned
)

// Client is a Binance spot REST API client. Market-data methods work
// without credentials; account and order methods require an API key
// and secret.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *slog.Logger

	// now is replaceable so signed-request tests get fixed timestamps.
	now func() time.Time
}

// NewClient creates a Binance API client. An empty baseURL selects the
// production endpoint.
func NewClient(baseURL, apiKey, apiSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
		),
		logger: logger.With("component", "binance"),
		now:    time.Now,
	}
}

// HasCredentials reports whether signed endpoints are usable.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// ExchangeInfo returns exchange trading rules and symbol metadata.
// An empty symbol returns info for all symbols.
func (c *Client) ExchangeInfo(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	return c.do(ctx, http.MethodGet, "/exchangeInfo", q, securityNone)
}

// KlinesParams selects a candlestick range. StartTime and EndTime are
// Unix milliseconds; zero values are omitted.
type KlinesParams struct {
	Symbol    string
	Interval  string
	StartTime int64
	EndTime   int64
	Limit     int
}

// Klines returns candlestick data for a symbol and interval.
func (c *Client) Klines(ctx context.Context, p KlinesParams) (string, error) {
	q := url.Values{}
	q.Set("symbol", p.Symbol)
	q.Set("interval", p.Interval)
	if p.StartTime > 0 {
		q.Set("startTime", strconv.FormatInt(p.StartTime, 10))
	}
	if p.EndTime > 0 {
		q.Set("endTime", strconv.FormatInt(p.EndTime, 10))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return c.do(ctx, http.MethodGet, "/klines", q, securityNone)
}

// AggTrades returns the 20 most recent aggregate trades for a symbol.
func (c *Client) AggTrades(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", "20")
	return c.do(ctx, http.MethodGet, "/aggTrades", q, securityNone)
}

// HistoricalTrades returns the 20 most recent trades for a symbol.
// Requires an API key.
func (c *Client) HistoricalTrades(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", "20")
	return c.do(ctx, http.MethodGet, "/historicalTrades", q, securityAPIKey)
}

// Depth returns the order book for a symbol.
func (c *Client) Depth(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.do(ctx, http.MethodGet, "/depth", q, securityNone)
}

// AvgPrice returns the current average price for a symbol.
func (c *Client) AvgPrice(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.do(ctx, http.MethodGet, "/avgPrice", q, securityNone)
}

// Ticker24hr returns 24-hour rolling price change statistics.
func (c *Client) Ticker24hr(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.do(ctx, http.MethodGet, "/ticker/24hr", q, securityNone)
}

// TradingDayTicker returns trading-day price change statistics for one
// or more symbols.
func (c *Client) TradingDayTicker(ctx context.Context, symbols []string) (string, error) {
	q := url.Values{}
	if err := setSymbolsParam(q, symbols); err != nil {
		return "", err
	}
	return c.do(ctx, http.MethodGet, "/ticker/tradingDay", q, securityNone)
}

// PriceTicker returns the latest price for one symbol, a list of
// symbols, or all symbols when both are empty.
func (c *Client) PriceTicker(ctx context.Context, symbol string, symbols []string) (string, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	} else if err := setSymbolsParam(q, symbols); err != nil {
		return "", err
	}
	return c.do(ctx, http.MethodGet, "/ticker/price", q, securityNone)
}

// BookTicker returns the best bid/ask for one symbol, a list of
// symbols, or all symbols when both are empty.
func (c *Client) BookTicker(ctx context.Context, symbol string, symbols []string) (string, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	} else if err := setSymbolsParam(q, symbols); err != nil {
		return "", err
	}
	return c.do(ctx, http.MethodGet, "/ticker/bookTicker", q, securityNone)
}

// RollingWindowTicker returns price change statistics over a custom
// window (e.g. "1d", "4h"). Type is "FULL" or "MINI".
func (c *Client) RollingWindowTicker(ctx context.Context, symbol string, symbols []string, windowSize, tickerType string) (string, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	} else if err := setSymbolsParam(q, symbols); err != nil {
		return "", err
	}
	if windowSize != "" {
		q.Set("windowSize", windowSize)
	}
	if tickerType != "" {
		q.Set("type", tickerType)
	}
	return c.do(ctx, http.MethodGet, "/ticker", q, securityNone)
}

// Account returns current account balances. Signed endpoint.
func (c *Client) Account(ctx context.Context, omitZeroBalances bool) (string, error) {
	q := url.Values{}
	if omitZeroBalances {
		q.Set("omitZeroBalances", "true")
	}
	return c.do(ctx, http.MethodGet, "/account", q, securitySigned)
}

// OrderParams describes a spot order for validation.
type OrderParams struct {
	Symbol      string
	Side        string // BUY or SELL
	Type        string // e.g. LIMIT
	TimeInForce string // e.g. GTC
	Quantity    string
	Price       string
}

// TestOrder validates an order against the matching engine without
// placing it. Orders are never submitted for real from here.
func (c *Client) TestOrder(ctx context.Context, p OrderParams) (string, error) {
	q := url.Values{}
	q.Set("symbol", p.Symbol)
	q.Set("side", p.Side)
	q.Set("type", p.Type)
	q.Set("timeInForce", p.TimeInForce)
	q.Set("quantity", p.Quantity)
	q.Set("price", p.Price)
	return c.do(ctx, http.MethodPost, "/order/test", q, securitySigned)
}

// Ping checks REST API connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/ping", url.Values{}, securityNone)
	return err
}

// setSymbolsParam encodes a symbol list the way the API expects: a
// JSON array in a single query parameter.
func setSymbolsParam(q url.Values, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	enc, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}
	q.Set("symbols", string(enc))
	return nil
}

// do executes one API request and returns the raw response body.
// Bodies pass through untouched so tool results carry exactly what the
// exchange said.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, sec security) (string, error) {
	if sec != securityNone && c.apiKey == "" {
		return "", fmt.Errorf("%s requires a Binance API key", path)
	}

	query := q.Encode()
	if sec == securitySigned {
		if c.apiSecret == "" {
			return "", fmt.Errorf("%s requires a Binance API secret", path)
		}
		q.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		q.Set("recvWindow", strconv.Itoa(defaultRecvWindow))
		// The signature covers the exact query string sent.
		query = q.Encode()
		query += "&signature=" + c.sign(query)
	}

	reqURL := c.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if sec != securityNone {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	c.logger.Debug("binance request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("binance API error", "path", path, "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("binance API error %d on %s: %s", resp.StatusCode, path, string(body))
	}

	return string(body), nil
}

// sign computes the HMAC-SHA256 signature over the query string.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
