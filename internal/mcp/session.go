package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownTool is returned by Session.CallTool when the requested
// tool name was not present in the server's tools/list response.
var ErrUnknownTool = errors.New("unknown tool")

// SessionConfig selects and configures the transport for a session.
// Command selects the stdio transport; URL selects the HTTP transport.
// Exactly one must be set.
type SessionConfig struct {
	// Name identifies the server in logs and tool namespacing.
	Name string

	// Stdio transport: subprocess command line.
	Command string
	Args    []string
	Env     []string

	// HTTP transport: server endpoint and extra headers.
	URL     string
	Headers map[string]string

	Logger *slog.Logger
}

// Session is an explicitly owned handle on one negotiated MCP
// connection. It bundles the transport and client, performs the
// handshake on open, and caches the tool descriptor list for its
// lifetime. A session may span many queries; the cached descriptor
// list is read-only after Open and safe to share across concurrent
// loop instances. There is no package-level session state.
type Session struct {
	client *Client
	tools  []ToolDefinition
	known  map[string]bool
}

// Open connects to the MCP server, performs the initialize handshake,
// and fetches the tool list. Any failure here is fatal: the returned
// error wraps the underlying cause and no Session is returned.
func Open(ctx context.Context, cfg SessionConfig) (*Session, error) {
	var transport Transport
	switch {
	case cfg.Command != "":
		transport = NewStdioTransport(StdioConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     cfg.Env,
			Logger:  cfg.Logger,
		})
	case cfg.URL != "":
		transport = NewHTTPTransport(HTTPConfig{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Logger:  cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("mcp session %q: no command or url configured", cfg.Name)
	}

	return OpenWith(ctx, cfg.Name, transport, cfg.Logger)
}

// OpenWith opens a session over an already constructed transport.
// Split out from Open so tests can inject a mock transport.
func OpenWith(ctx context.Context, name string, transport Transport, logger *slog.Logger) (*Session, error) {
	client := NewClient(name, transport, logger)

	if err := client.Initialize(ctx); err != nil {
		transport.Close()
		return nil, fmt.Errorf("mcp session %q: %w", name, err)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("mcp session %q: %w", name, err)
	}

	known := make(map[string]bool, len(tools))
	for _, td := range tools {
		known[td.Name] = true
	}

	return &Session{client: client, tools: tools, known: known}, nil
}

// Tools returns the descriptor list fetched during Open. The slice is
// shared; callers must not mutate it.
func (s *Session) Tools() []ToolDefinition {
	return s.tools
}

// CallTool invokes a named tool. Names not present in the session's
// tool list fail immediately with ErrUnknownTool; remote failures
// surface with their underlying message.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) ([]ContentBlock, error) {
	if !s.known[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return s.client.CallTool(ctx, name, args)
}

// Ping checks whether the server is responsive.
func (s *Session) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close shuts down the session and its transport.
func (s *Session) Close() error {
	return s.client.Close()
}
