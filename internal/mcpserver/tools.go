package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tradewind-ai/tradewind/internal/binance"
	"github.com/tradewind-ai/tradewind/internal/screenshot"
)

// objectSchema builds a JSON Schema for a tool's arguments.
func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func stringListProp(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": desc,
	}
}

// stringArg extracts a string argument; missing or empty returns "".
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// numberArg extracts an integer argument. JSON numbers decode as
// float64; string digits are accepted too.
func numberArg(args map[string]any, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// stringListArg extracts a list-of-strings argument.
func stringListArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decimalArg extracts a decimal argument as its exact string form so
// quantities and prices never pick up float formatting artifacts.
func decimalArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// requireString enforces a mandatory string argument.
func requireString(args map[string]any, key string) (string, error) {
	s := stringArg(args, key)
	if s == "" {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	return s, nil
}

// BinanceTools binds the exchange's market-data and account endpoints
// as MCP tools.
func BinanceTools(client *binance.Client) []Tool {
	return []Tool{
		{
			Name:        "ExchangeInfo",
			Description: "Get exchange trading rules and symbol information. Omit symbol to list all symbols.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol to get information for, e.g. "BTCUSDT"`),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return client.ExchangeInfo(ctx, stringArg(args, "symbol"))
			},
		},
		{
			Name:        "Klines",
			Description: "Get kline/candlestick data for a symbol and interval.",
			InputSchema: objectSchema(map[string]any{
				"symbol":    stringProp(`Symbol, e.g. "BTCUSDT"`),
				"interval":  stringProp(`Kline interval, e.g. "1m", "1h", "1d"`),
				"startTime": intProp("Start time in milliseconds"),
				"endTime":   intProp("End time in milliseconds"),
				"limit":     intProp("Maximum number of klines to return"),
			}, "symbol", "interval"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				interval, err := requireString(args, "interval")
				if err != nil {
					return "", err
				}
				return client.Klines(ctx, binance.KlinesParams{
					Symbol:    symbol,
					Interval:  interval,
					StartTime: numberArg(args, "startTime"),
					EndTime:   numberArg(args, "endTime"),
					Limit:     int(numberArg(args, "limit")),
				})
			},
		},
		{
			Name:        "AggTrades",
			Description: "Get recent aggregate trades for a symbol.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol, e.g. "BTCUSDT"`),
			}, "symbol"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				return client.AggTrades(ctx, symbol)
			},
		},
		{
			Name:        "TradeHistory",
			Description: "Get recent trades for a symbol.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol, e.g. "BTCUSDT"`),
			}, "symbol"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				return client.HistoricalTrades(ctx, symbol)
			},
		},
		{
			Name:        "Depth",
			Description: "Get order book depth for a symbol.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol, e.g. "BTCUSDT"`),
			}, "symbol"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				return client.Depth(ctx, symbol)
			},
		},
		{
			Name:        "CurrentAvgPrice",
			Description: "Get the current average price for a symbol.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol, e.g. "BTCUSDT"`),
			}, "symbol"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				return client.AvgPrice(ctx, symbol)
			},
		},
		{
			Name:        "PriceTicker24h",
			Description: "Get 24-hour rolling price change statistics for a symbol.",
			InputSchema: objectSchema(map[string]any{
				"symbol": stringProp(`Symbol, e.g. "BTCUSDT"`),
			}, "symbol"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				return client.Ticker24hr(ctx, symbol)
			},
		},
		{
			Name:        "TradingDayTicker",
			Description: "Get trading-day price change statistics for a list of symbols.",
			InputSchema: objectSchema(map[string]any{
				"symbols": stringListProp("Symbols to query"),
			}, "symbols"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbols := stringListArg(args, "symbols")
				if len(symbols) == 0 {
					return "", fmt.Errorf("missing required argument: symbols")
				}
				return client.TradingDayTicker(ctx, symbols)
			},
		},
		{
			Name:        "SymbolPriceTicker",
			Description: "Get the latest price for a symbol or list of symbols.",
			InputSchema: objectSchema(map[string]any{
				"symbol":  stringProp("Single symbol to query"),
				"symbols": stringListProp("List of symbols to query"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return client.PriceTicker(ctx, stringArg(args, "symbol"), stringListArg(args, "symbols"))
			},
		},
		{
			Name:        "SymbolOrderBookTicker",
			Description: "Get the best bid/ask for a symbol or list of symbols.",
			InputSchema: objectSchema(map[string]any{
				"symbol":  stringProp("Single symbol to query"),
				"symbols": stringListProp("List of symbols to query"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return client.BookTicker(ctx, stringArg(args, "symbol"), stringListArg(args, "symbols"))
			},
		},
		{
			Name:        "RollingWindowTicker",
			Description: "Get price change statistics over a custom rolling window.",
			InputSchema: objectSchema(map[string]any{
				"symbol":     stringProp("Single symbol to query"),
				"symbols":    stringListProp("List of symbols to query"),
				"windowSize": stringProp(`Window size, e.g. "1d"`),
				"type":       stringProp(`Response type, "FULL" or "MINI"`),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return client.RollingWindowTicker(ctx,
					stringArg(args, "symbol"),
					stringListArg(args, "symbols"),
					stringArg(args, "windowSize"),
					stringArg(args, "type"),
				)
			},
		},
		{
			Name:        "AccountInformation",
			Description: "Get current account balances. Requires API credentials.",
			InputSchema: objectSchema(map[string]any{
				"omitZeroBalances": boolProp("Return only non-zero balances"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return client.Account(ctx, boolArg(args, "omitZeroBalances"))
			},
		},
		{
			Name:        "TestOrder",
			Description: "Validate an order against the matching engine without placing it.",
			InputSchema: objectSchema(map[string]any{
				"symbol":      stringProp(`Symbol, e.g. "XRPUSDT"`),
				"side":        stringProp(`"BUY" or "SELL"`),
				"type":        stringProp(`Order type, e.g. "LIMIT"`),
				"timeInForce": stringProp(`Time in force, e.g. "GTC"`),
				"quantity":    stringProp("Order quantity"),
				"price":       stringProp("Order price"),
			}, "symbol", "side", "type", "timeInForce", "quantity", "price"),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				symbol, err := requireString(args, "symbol")
				if err != nil {
					return "", err
				}
				side, err := requireString(args, "side")
				if err != nil {
					return "", err
				}
				orderType, err := requireString(args, "type")
				if err != nil {
					return "", err
				}
				tif, err := requireString(args, "timeInForce")
				if err != nil {
					return "", err
				}
				quantity := decimalArg(args, "quantity")
				price := decimalArg(args, "price")
				if quantity == "" || price == "" {
					return "", fmt.Errorf("quantity and price are required")
				}
				return client.TestOrder(ctx, binance.OrderParams{
					Symbol:      symbol,
					Side:        side,
					Type:        orderType,
					TimeInForce: tif,
					Quantity:    quantity,
					Price:       price,
				})
			},
		},
	}
}

// ScreenshotTool binds the chart capture service as an MCP tool. The
// result is a JSON array of hosted image URLs, one per timeframe.
func ScreenshotTool(client *screenshot.Client) Tool {
	return Tool{
		Name:        "TakeChartScreenshot",
		Description: "Capture hourly, daily, weekly, and monthly screenshots of a chart URL and return hosted image URLs.",
		InputSchema: objectSchema(map[string]any{
			"chart_url": stringProp("Full chart URL including the symbol parameter"),
		}, "chart_url"),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			chartURL, err := requireString(args, "chart_url")
			if err != nil {
				return "", err
			}
			captures, err := client.CaptureChart(ctx, chartURL)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(captures)
			if err != nil {
				return "", fmt.Errorf("encode captures: %w", err)
			}
			return string(out), nil
		},
	}
}
