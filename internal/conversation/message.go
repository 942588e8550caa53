// Package conversation defines the message history shared by the agent
// loop, the model client, and the transcript logger. A conversation is
// an append-only slice of messages; each message carries either plain
// string content or an ordered list of typed content blocks.
package conversation

import (
	"encoding/json"
	"fmt"
)

// Roles for conversation messages. Tool results travel inside
// user-role messages as tool_result blocks; there is no tool role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block type tags.
const (
	TypeText       = "text"
	TypeToolUse    = "tool_use"
	TypeToolResult = "tool_result"
)

// ContentBlock is one item in a block-content message. Type selects
// which of the variant fields are meaningful:
//
//   - text: Text (and, on tool output, Annotations)
//   - tool_use: ID, Name, Input
//   - tool_result: ToolUseID, Content
//
// Blocks of unknown type round-trip through Extra so nothing is lost
// between the wire and the transcript.
type ContentBlock struct {
	Type string `json:"type"`

	// Text fields.
	Text        string         `json:"text,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`

	// ToolUse fields.
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// ToolResult fields. Content holds nested blocks (usually text);
	// Raw holds a non-block payload when the tool returned one.
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
	Raw       any            `json:"raw,omitempty"`

	// Extra preserves fields we do not model for unknown block types.
	Extra map[string]any `json:"-"`
}

// Message is one turn in a conversation. Exactly one of Content or
// Blocks is populated. Role never changes after the message is
// appended.
type Message struct {
	Role    string         `json:"role"`
	Content string         `json:"content,omitempty"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

// IsText reports whether the message carries plain string content.
func (m Message) IsText() bool {
	return len(m.Blocks) == 0
}

// Text returns a message with plain string content.
func Text(role, content string) Message {
	return Message{Role: role, Content: content}
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: TypeText, Text: text}
}

// ToolUseBlock returns a tool_use content block as emitted by the model.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: TypeToolUse, ID: id, Name: name, Input: input}
}

// ToolResultMessage wraps a tool invocation's output in a user-role
// message containing a single tool_result block, correlated to the
// originating tool_use by id. One message per result, never batched.
func ToolResultMessage(toolUseID string, content []ContentBlock) Message {
	return Message{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: toolUseID,
			Content:   content,
		}},
	}
}

// ToolUses returns the tool_use blocks of the message in emission order.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Blocks {
		if b.Type == TypeToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// IsFinal reports whether an assistant reply is a terminal answer:
// exactly one text block and nothing else. This is the loop's only
// termination condition.
func (m Message) IsFinal() bool {
	if m.IsText() {
		return true
	}
	return len(m.Blocks) == 1 && m.Blocks[0].Type == TypeText
}

// FinalText returns the terminal answer text for a final message.
func (m Message) FinalText() string {
	if m.IsText() {
		return m.Content
	}
	if len(m.Blocks) == 1 && m.Blocks[0].Type == TypeText {
		return m.Blocks[0].Text
	}
	return ""
}

// Clone returns a deep copy of the message. Callers that project or
// rewrite history must never mutate the original.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Content: m.Content}
	if m.Blocks != nil {
		out.Blocks = cloneBlocks(m.Blocks)
	}
	return out
}

func cloneBlocks(blocks []ContentBlock) []ContentBlock {
	out := make([]ContentBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b
		out[i].Annotations = cloneMap(b.Annotations)
		out[i].Input = cloneMap(b.Input)
		out[i].Extra = cloneMap(b.Extra)
		if b.Content != nil {
			out[i].Content = cloneBlocks(b.Content)
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Coerce renders an arbitrary value as a string for degraded handling
// of content shapes we do not recognize. JSON first, then %v.
func Coerce(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}
