package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tradewind-ai/tradewind/internal/buildinfo"
	"github.com/tradewind-ai/tradewind/internal/mcp"
)

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2024-11-05"

// maxLineSize bounds one inbound JSON-RPC message.
const maxLineSize = 10 << 20

// Server speaks MCP over newline-delimited JSON-RPC on a reader/writer
// pair, normally the process's stdin and stdout.
type Server struct {
	name     string
	registry *Registry

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex

	logger *slog.Logger
}

// NewServer creates an MCP server over the given streams.
func NewServer(name string, registry *Registry, in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		name:     name,
		registry: registry,
		in:       in,
		out:      out,
		logger:   logger.With("component", "mcpserver"),
	}
}

// inbound is a decoded incoming message. A nil ID marks a
// notification, which gets no response.
type inbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Run reads messages until the input closes or ctx is canceled.
// Malformed lines produce JSON-RPC error responses rather than
// terminating the loop.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server started", "tools", len(s.registry.List()))

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(line, &msg); err != nil {
			s.logger.Warn("malformed message", "error", err)
			s.write(mcp.NewErrorResponse(0, mcp.CodeParseError, "parse error"))
			continue
		}

		if msg.ID == nil {
			// Notification: nothing to answer.
			s.logger.Debug("notification received", "method", msg.Method)
			continue
		}

		s.write(s.dispatch(ctx, &msg))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	s.logger.Info("MCP server input closed")
	return nil
}

// dispatch routes one request to its handler and always produces a
// response.
func (s *Server) dispatch(ctx context.Context, msg *inbound) *mcp.Response {
	id := *msg.ID
	s.logger.Debug("request received", "method", msg.Method, "id", id)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return s.respond(id, map[string]any{})
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, msg.Params)
	default:
		return mcp.NewErrorResponse(id, mcp.CodeMethodNotFound, "method not found: "+msg.Method)
	}
}

func (s *Server) handleInitialize(id int64) *mcp.Response {
	return s.respond(id, mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &struct{}{},
		},
		ServerInfo: mcp.ServerInfo{
			Name:    s.name,
			Version: buildinfo.Version,
		},
	})
}

func (s *Server) handleToolsList(id int64) *mcp.Response {
	tools := s.registry.List()
	defs := make([]mcp.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, mcp.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return s.respond(id, map[string]any{"tools": defs})
}

func (s *Server) handleToolsCall(ctx context.Context, id int64, params json.RawMessage) *mcp.Response {
	var call struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return mcp.NewErrorResponse(id, mcp.CodeInvalidParams, "invalid tools/call params")
	}
	if call.Name == "" {
		return mcp.NewErrorResponse(id, mcp.CodeInvalidParams, "missing tool name")
	}

	s.logger.Info("tool call", "tool", call.Name, "id", id)

	text, err := s.registry.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		// Tool failures ride back as isError results, not RPC errors,
		// so the client can show the model what went wrong.
		s.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return s.respond(id, mcp.CallToolResult{
			Content: []mcp.ContentBlock{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	return s.respond(id, mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: text}},
	})
}

// respond builds a success response, degrading to an internal error if
// the result cannot be marshaled.
func (s *Server) respond(id int64, result any) *mcp.Response {
	resp, err := mcp.NewResponse(id, result)
	if err != nil {
		s.logger.Error("marshal result failed", "error", err)
		return mcp.NewErrorResponse(id, mcp.CodeInternalError, "internal error")
	}
	return resp
}

// write sends one response as a single line.
func (s *Server) write(resp *mcp.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response failed", "error", err)
		return
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}
