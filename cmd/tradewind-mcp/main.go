// Tradewind-mcp serves the exchange toolset over MCP on stdio.
//
// It is normally spawned as a subprocess by the tradewind agent, which
// speaks newline-delimited JSON-RPC on its stdin/stdout. Logs go to
// stderr so they never corrupt the protocol channel.
//
// Usage:
//
//	tradewind-mcp [-config <path>]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tradewind-ai/tradewind/internal/binance"
	"github.com/tradewind-ai/tradewind/internal/buildinfo"
	"github.com/tradewind-ai/tradewind/internal/config"
	"github.com/tradewind-ai/tradewind/internal/mcpserver"
	"github.com/tradewind-ai/tradewind/internal/screenshot"
)

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "version":
			fmt.Fprintln(stdout, buildinfo.String())
			return nil
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	// Config is optional here: market-data tools work without any
	// credentials, and the agent may spawn this binary bare.
	cfg := config.Default()
	if found, err := config.FindConfig(configPath); err == nil {
		loaded, err := config.Load(found)
		if err != nil {
			return fmt.Errorf("load config %s: %w", found, err)
		}
		cfg = loaded
	} else if configPath != "" {
		return err
	}

	// Environment variables take over when the config carries no keys,
	// matching how the exchange tools were commonly deployed.
	if cfg.Binance.APIKey == "" {
		cfg.Binance.APIKey = os.Getenv("BINANCE_API_KEY")
	}
	if cfg.Binance.APISecret == "" {
		cfg.Binance.APISecret = os.Getenv("BINANCE_API_SECRET")
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		parsed, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		level = parsed
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	exchange := binance.NewClient(cfg.Binance.BaseURL, cfg.Binance.APIKey, cfg.Binance.APISecret, logger)
	if !exchange.HasCredentials() {
		logger.Info("no exchange credentials; account and order tools will reject calls")
	}

	registry := mcpserver.NewRegistry()
	if err := registry.RegisterAll(mcpserver.BinanceTools(exchange)); err != nil {
		return fmt.Errorf("register exchange tools: %w", err)
	}
	if cfg.Screenshot.URL != "" {
		tool := mcpserver.ScreenshotTool(screenshot.NewClient(cfg.Screenshot.URL, logger))
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register screenshot tool: %w", err)
		}
	} else {
		logger.Info("screenshot service not configured; chart capture tool disabled")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := mcpserver.NewServer("tradewind-mcp", registry, stdin, stdout, logger)
	return srv.Run(ctx)
}
