// Tradewind is an LLM-driven crypto trading assistant.
//
// It connects a model endpoint to a set of exchange tools served over
// MCP, drives the query loop until the model produces a final answer,
// and exposes the result over an HTTP API and a CLI. Configuration is
// loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	tradewind serve            Start the API server
//	tradewind ask <question>   Ask a single question (for testing)
//	tradewind version          Print version and build information
//	tradewind -o json version  Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tradewind-ai/tradewind/internal/agent"
	"github.com/tradewind-ai/tradewind/internal/api"
	"github.com/tradewind-ai/tradewind/internal/binance"
	"github.com/tradewind-ai/tradewind/internal/buildinfo"
	"github.com/tradewind-ai/tradewind/internal/config"
	"github.com/tradewind-ai/tradewind/internal/llm"
	"github.com/tradewind-ai/tradewind/internal/mcp"
	"github.com/tradewind-ai/tradewind/internal/prompts"
	"github.com/tradewind-ai/tradewind/internal/transcript"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the tradewind command. OS-level
// dependencies are injected as parameters so tests can drive the full
// lifecycle. Arguments are parsed by hand: the flag package relies on
// package-level globals, and the argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: tradewind ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Tradewind - LLM crypto trading assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: tradewind [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/tradewind/config.yaml, /etc/tradewind/config.yaml")
	return nil
}

// newLogger builds an slog.Logger writing to w at the given level,
// rendering the custom TRACE level by name.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// buildOrchestrator wires the model client, MCP session, and transcript
// writer into an orchestrator. The returned cleanup closes the session.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*agent.Orchestrator, *agent.SessionInvoker, func(), error) {
	session, err := mcp.Open(ctx, mcp.SessionConfig{
		Name:    "tradewind-mcp",
		Command: cfg.MCP.Command,
		Args:    cfg.MCP.Args,
		URL:     cfg.MCP.URL,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, &agent.ConnectionError{Server: "tradewind-mcp", Err: err}
	}

	writer, err := transcript.NewFileWriter(cfg.Transcript.Dir, logger)
	if err != nil {
		session.Close()
		return nil, nil, nil, err
	}
	logger.Info("transcript snapshots", "path", writer.Path())

	model := llm.NewAnthropicClient(
		cfg.Anthropic.APIKey,
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		logger,
	)

	invoker := agent.NewSessionInvoker(session)
	orch := agent.New(agent.Config{
		Model:      model,
		Tools:      invoker,
		Transcript: writer,
		System:     prompts.System,
		MaxRounds:  cfg.Agent.MaxRounds,
		Logger:     logger,
	})

	cleanup := func() {
		if err := session.Close(); err != nil {
			logger.Warn("MCP session close failed", "error", err)
		}
	}
	return orch, invoker, cleanup, nil
}

// runServe handles the "tradewind serve" subcommand.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Tradewind", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "path", cfgPath)

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch, invoker, cleanup, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Conversation archive, best-effort: serving works without it.
	var store *transcript.Store
	db, err := sql.Open("sqlite", cfg.Transcript.DB)
	if err != nil {
		logger.Warn("archive database unavailable", "error", err)
	} else {
		defer db.Close()
		store, err = transcript.NewStore(db)
		if err != nil {
			logger.Warn("archive store init failed", "error", err)
			store = nil
		}
	}

	// Live ticker stream, log-only: keeps a pulse on the watched
	// symbols while the agent serves queries.
	if cfg.Stream.Enabled && len(cfg.Stream.Symbols) > 0 {
		stream := binance.NewStream("", cfg.Stream.Symbols, logger)
		if err := stream.Connect(ctx); err != nil {
			logger.Warn("ticker stream unavailable", "error", err)
		} else {
			defer stream.Close()
			go func() {
				for tick := range stream.Events() {
					logger.Debug("ticker", "symbol", tick.Symbol, "price", tick.Close)
				}
			}()
		}
	}

	srv := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, orch, invoker, logger)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		if store != nil {
			if history := orch.History(); len(history) > 0 {
				if _, err := store.Archive("serve", history); err != nil {
					logger.Error("conversation archive failed", "error", err)
				}
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Tradewind stopped")
	return nil
}

// runAsk handles the "tradewind ask <question>" subcommand: one query
// through the full loop, answer on stdout.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	orch, _, cleanup, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := orch.ProcessQuery(ctx, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, answer)
	return nil
}
