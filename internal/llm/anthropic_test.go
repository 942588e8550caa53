package llm

import (
	"encoding/json"
	"testing"

	"github.com/tradewind-ai/tradewind/internal/conversation"
)

func TestToWire_StringContent(t *testing.T) {
	messages := []conversation.Message{
		conversation.Text(conversation.RoleUser, "What is the price of BTC?"),
		conversation.Text(conversation.RoleAssistant, "Let me check."),
	}

	wire := toWire(messages)

	if len(wire) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(wire))
	}
	if wire[0].Role != "user" || wire[0].Content != "What is the price of BTC?" {
		t.Errorf("unexpected first message: %+v", wire[0])
	}
	if wire[1].Role != "assistant" {
		t.Errorf("expected assistant role, got %s", wire[1].Role)
	}
}

func TestToWire_ToolUseAndResult(t *testing.T) {
	messages := []conversation.Message{
		conversation.Text(conversation.RoleUser, "Price of BTCUSDT?"),
		{
			Role: conversation.RoleAssistant,
			Blocks: []conversation.ContentBlock{
				conversation.TextBlock("Checking."),
				conversation.ToolUseBlock("toolu_01", "SymbolPriceTicker", map[string]any{"symbol": "BTCUSDT"}),
			},
		},
		conversation.ToolResultMessage("toolu_01", []conversation.ContentBlock{
			conversation.TextBlock(`{"symbol":"BTCUSDT","price":"64000.00"}`),
		}),
	}

	wire := toWire(messages)

	if len(wire) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(wire))
	}

	assistant, ok := wire[1].Content.([]anthropicContent)
	if !ok {
		t.Fatal("expected assistant content to be []anthropicContent")
	}
	if len(assistant) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(assistant))
	}
	if assistant[0].Type != "text" || assistant[0].Text != "Checking." {
		t.Errorf("unexpected text block: %+v", assistant[0])
	}
	if assistant[1].Type != "tool_use" || assistant[1].ID != "toolu_01" {
		t.Errorf("unexpected tool_use block: %+v", assistant[1])
	}
	if assistant[1].Input["symbol"] != "BTCUSDT" {
		t.Errorf("unexpected tool input: %v", assistant[1].Input)
	}

	result, ok := wire[2].Content.([]anthropicContent)
	if !ok {
		t.Fatal("expected tool result content to be []anthropicContent")
	}
	if result[0].Type != "tool_result" || result[0].ToolUseID != "toolu_01" {
		t.Errorf("unexpected tool_result block: %+v", result[0])
	}
	nested, ok := result[0].Content.([]anthropicContent)
	if !ok || len(nested) != 1 || nested[0].Type != "text" {
		t.Errorf("unexpected nested content: %+v", result[0].Content)
	}
}

func TestToWire_EmptyToolInputSerializesAsObject(t *testing.T) {
	messages := []conversation.Message{
		{
			Role: conversation.RoleAssistant,
			Blocks: []conversation.ContentBlock{
				conversation.ToolUseBlock("toolu_02", "AccountInformation", nil),
			},
		},
	}

	data, err := json.Marshal(toWire(messages))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// The API rejects tool_use blocks whose input is null.
	if string(data) == "" || !json.Valid(data) {
		t.Fatal("invalid JSON output")
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	blocks := decoded[0]["content"].([]any)
	input, ok := blocks[0].(map[string]any)["input"]
	if !ok {
		t.Fatal("tool_use input missing from wire JSON")
	}
	if _, ok := input.(map[string]any); !ok {
		t.Errorf("input = %v (%T), want object", input, input)
	}
}

func TestFromWire_TextOnly(t *testing.T) {
	resp := &anthropicResponse{
		Model:      "claude-3-5-sonnet-latest",
		StopReason: "end_turn",
		Content: []anthropicContent{
			{Type: "text", Text: "BTC is trading at $64,000."},
		},
		Usage: anthropicUsage{InputTokens: 120, OutputTokens: 15},
	}

	reply := fromWire(resp)

	if !reply.Message.IsFinal() {
		t.Error("expected single-text reply to be final")
	}
	if got := reply.Message.FinalText(); got != "BTC is trading at $64,000." {
		t.Errorf("FinalText = %q", got)
	}
	if reply.InputTokens != 120 || reply.OutputTokens != 15 {
		t.Errorf("unexpected usage: %d/%d", reply.InputTokens, reply.OutputTokens)
	}
}

func TestFromWire_ToolUsePreservesOrder(t *testing.T) {
	resp := &anthropicResponse{
		StopReason: "tool_use",
		Content: []anthropicContent{
			{Type: "text", Text: "Looking up two symbols."},
			{Type: "tool_use", ID: "toolu_a", Name: "SymbolPriceTicker", Input: map[string]any{"symbol": "BTCUSDT"}},
			{Type: "tool_use", ID: "toolu_b", Name: "SymbolPriceTicker", Input: map[string]any{"symbol": "ETHUSDT"}},
		},
	}

	reply := fromWire(resp)

	if reply.Message.Role != conversation.RoleAssistant {
		t.Errorf("role = %q, want assistant", reply.Message.Role)
	}
	if reply.Message.IsFinal() {
		t.Error("tool_use reply must not be final")
	}

	uses := reply.Message.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].ID != "toolu_a" || uses[1].ID != "toolu_b" {
		t.Errorf("tool use order not preserved: %s, %s", uses[0].ID, uses[1].ID)
	}
}

func TestFromWire_UnknownBlockTypeDegrades(t *testing.T) {
	resp := &anthropicResponse{
		Content: []anthropicContent{
			{Type: "thinking", Text: "hmm"},
			{Type: "text", Text: "answer"},
		},
	}

	reply := fromWire(resp)
	if len(reply.Message.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(reply.Message.Blocks))
	}
	if reply.Message.Blocks[0].Type != "thinking" {
		t.Errorf("unknown type not carried through: %q", reply.Message.Blocks[0].Type)
	}
	// More than one block, so not a final answer.
	if reply.Message.IsFinal() {
		t.Error("multi-block reply must not be final")
	}
}

func TestRequestJSONShape(t *testing.T) {
	req := anthropicRequest{
		Model:     "claude-3-5-sonnet-latest",
		MaxTokens: 1000,
		System:    "You are CryptoTradeGPT.",
		Messages:  []anthropicMessage{{Role: "user", Content: "hi"}},
		Tools: []Tool{{
			Name:        "SymbolPriceTicker",
			Description: "Latest price for a symbol.",
			InputSchema: map[string]any{"type": "object"},
		}},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"model", "messages", "system", "max_tokens", "tools"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing %q in request JSON", key)
		}
	}
	tools := decoded["tools"].([]any)
	tool := tools[0].(map[string]any)
	if _, ok := tool["input_schema"]; !ok {
		t.Error("tool missing input_schema key")
	}
}
