// Package agent implements the query orchestration loop: it drives the
// model, executes the tool calls the model requests, and feeds results
// back until the model produces a final text answer.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tradewind-ai/tradewind/internal/conversation"
	"github.com/tradewind-ai/tradewind/internal/llm"
	"github.com/tradewind-ai/tradewind/internal/mcp"
)

// State is the orchestrator's position in the query lifecycle.
type State string

const (
	// StateIdle means no query is in flight.
	StateIdle State = "idle"

	// StateAwaitingModel means a model request is outstanding.
	StateAwaitingModel State = "awaiting_model"

	// StateExecutingTools means requested tool calls are running.
	StateExecutingTools State = "executing_tools"

	// StateDone means the last query completed with a final answer.
	StateDone State = "done"

	// StateFailed means the last query aborted; the conversation is
	// preserved so a retry resumes where it left off.
	StateFailed State = "failed"
)

// ModelClient produces one assistant turn from the conversation so far.
type ModelClient interface {
	Chat(ctx context.Context, system string, tools []llm.Tool, messages []conversation.Message) (*llm.Reply, error)
}

// ToolInvoker exposes the available tools and executes calls against
// them. Invocation failures, including tool-reported errors, return an
// error rather than result blocks.
type ToolInvoker interface {
	Tools() []llm.Tool
	CallTool(ctx context.Context, name string, args map[string]any) ([]conversation.ContentBlock, error)
}

// TranscriptWriter records conversation snapshots. Persistence is
// best-effort: write failures are logged, never fatal to the query.
type TranscriptWriter interface {
	Persist(messages []conversation.Message) error
}

// SessionInvoker adapts an MCP session to the ToolInvoker interface,
// translating tool descriptors and result blocks into the agent's
// shapes.
type SessionInvoker struct {
	session *mcp.Session
}

// NewSessionInvoker wraps an open MCP session.
func NewSessionInvoker(s *mcp.Session) *SessionInvoker {
	return &SessionInvoker{session: s}
}

// Tools returns the session's tool list as model tool descriptors.
func (si *SessionInvoker) Tools() []llm.Tool {
	defs := si.session.Tools()
	out := make([]llm.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, llm.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return out
}

// CallTool executes one tool call and converts the result blocks,
// keeping annotation metadata for the transcript.
func (si *SessionInvoker) CallTool(ctx context.Context, name string, args map[string]any) ([]conversation.ContentBlock, error) {
	blocks, err := si.session.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}
	out := make([]conversation.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, conversation.ContentBlock{
			Type:        b.Type,
			Text:        b.Text,
			Annotations: b.Annotations,
		})
	}
	return out, nil
}

// Config holds orchestrator construction parameters.
type Config struct {
	Model      ModelClient
	Tools      ToolInvoker
	Transcript TranscriptWriter
	System     string

	// MaxRounds caps model round-trips per query. Zero means no cap.
	MaxRounds int

	Logger *slog.Logger
}

// Orchestrator runs the agent loop over a single conversation. All
// methods are safe for concurrent use; queries execute one at a time.
type Orchestrator struct {
	model      ModelClient
	tools      ToolInvoker
	transcript TranscriptWriter
	system     string
	maxRounds  int
	logger     *slog.Logger

	mu       sync.Mutex
	messages []conversation.Message
	state    State
}

// New creates an orchestrator with an empty conversation.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		model:      cfg.Model,
		tools:      cfg.Tools,
		transcript: cfg.Transcript,
		system:     cfg.System,
		maxRounds:  cfg.MaxRounds,
		logger:     logger.With("component", "agent"),
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns a deep copy of the conversation so far.
func (o *Orchestrator) History() []conversation.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]conversation.Message, len(o.messages))
	for i, m := range o.messages {
		out[i] = m.Clone()
	}
	return out
}

// ProcessQuery appends the user query to the conversation and drives
// the model/tool loop until the model answers with a single text
// block, which is returned. On failure the conversation (including the
// query and any completed turns) is kept, so calling ProcessQuery
// again with the same text resumes rather than starting over.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Resuming after a failure must not duplicate the pending user
	// turn: if the previous attempt already appended this exact query
	// and no answer followed, pick up from there.
	if !o.resumesPending(query) {
		o.append(conversation.Text(conversation.RoleUser, query))
	}

	tools := o.tools.Tools()
	o.logger.Info("processing query",
		"query_len", len(query),
		"history", len(o.messages),
		"tools", len(tools),
	)

	for round := 0; ; round++ {
		if o.maxRounds > 0 && round >= o.maxRounds {
			o.state = StateFailed
			return "", fmt.Errorf("no final answer after %d model rounds", o.maxRounds)
		}

		o.state = StateAwaitingModel
		reply, err := o.model.Chat(ctx, o.system, tools, conversation.Normalize(o.messages))
		if err != nil {
			o.state = StateFailed
			return "", &ModelCallError{Err: err}
		}

		o.append(reply.Message)

		if reply.Message.IsFinal() {
			o.state = StateDone
			answer := reply.Message.FinalText()
			o.logger.Info("query complete",
				"rounds", round+1,
				"history", len(o.messages),
				"answer_len", len(answer),
			)
			return answer, nil
		}

		uses := reply.Message.ToolUses()
		if len(uses) == 0 {
			// Model produced neither a lone text answer nor tool
			// calls. Loop again so it can finish its thought.
			o.logger.Warn("assistant turn had no tool calls and no final answer",
				"blocks", len(reply.Message.Blocks),
				"stop_reason", reply.StopReason,
			)
			continue
		}

		o.state = StateExecutingTools
		if err := o.executeTools(ctx, uses); err != nil {
			o.state = StateFailed
			return "", err
		}
	}
}

// executeTools runs requested tool calls one at a time, in the order
// the model emitted them, appending a tool_result message per call.
// The first failure aborts the query.
func (o *Orchestrator) executeTools(ctx context.Context, uses []conversation.ContentBlock) error {
	for _, use := range uses {
		o.logger.Info("executing tool", "tool", use.Name, "id", use.ID)
		o.logger.Debug("tool input", "tool", use.Name, "input", use.Input)

		blocks, err := o.tools.CallTool(ctx, use.Name, use.Input)
		if err != nil {
			o.logger.Error("tool failed", "tool", use.Name, "id", use.ID, "error", err)
			return &ToolExecutionError{Tool: use.Name, ToolUseID: use.ID, Err: err}
		}

		o.append(conversation.ToolResultMessage(use.ID, blocks))
	}
	return nil
}

// resumesPending reports whether query matches an already-appended
// user turn that never received an answer.
func (o *Orchestrator) resumesPending(query string) bool {
	if len(o.messages) == 0 {
		return false
	}
	last := o.messages[len(o.messages)-1]
	return last.Role == conversation.RoleUser && last.IsText() && last.Content == query
}

// append adds a message and snapshots the transcript. Callers hold o.mu.
func (o *Orchestrator) append(m conversation.Message) {
	o.messages = append(o.messages, m)
	if o.transcript == nil {
		return
	}
	if err := o.transcript.Persist(o.messages); err != nil {
		o.logger.Warn("transcript persist failed", "error", err)
	}
}
