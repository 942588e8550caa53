// Package llm provides the model endpoint client for the agent loop.
package llm

import (
	"log/slog"

	"github.com/tradewind-ai/tradewind/internal/conversation"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Tool describes one invocable tool to the model: name, human
// description, and a JSON Schema for its arguments. Descriptors are
// sourced from the MCP session at startup and never change afterwards.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// Reply is one assistant turn from the model: an ordered list of
// content blocks (text and/or tool_use) plus usage metadata.
type Reply struct {
	Message    conversation.Message
	Model      string
	StopReason string

	InputTokens  int
	OutputTokens int
}
