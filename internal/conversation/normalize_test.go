package conversation

import (
	"reflect"
	"testing"
)

func TestNormalize_StringContentPassesThrough(t *testing.T) {
	in := []Message{
		Text(RoleUser, "price of BTCUSDT"),
		Text(RoleAssistant, "BTC is at $65,000"),
	}

	got := Normalize(in)

	if !reflect.DeepEqual(got, in) {
		t.Errorf("Normalize() = %+v, want %+v", got, in)
	}
}

func TestNormalize_StripsToolResultAnnotations(t *testing.T) {
	in := []Message{{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: "t1",
			Content: []ContentBlock{{
				Type:        TypeText,
				Text:        `{"price":"65000.00"}`,
				Annotations: map[string]any{"audience": []string{"assistant"}},
			}},
		}},
	}}

	got := Normalize(in)

	want := []Message{{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: "t1",
			Content: []ContentBlock{{
				Type: TypeText,
				Text: `{"price":"65000.00"}`,
			}},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalize_ToolUsePassesThrough(t *testing.T) {
	in := []Message{{
		Role: RoleAssistant,
		Blocks: []ContentBlock{
			TextBlock("checking the price"),
			ToolUseBlock("t1", "SymbolPriceTicker", map[string]any{"symbol": "BTCUSDT"}),
		},
	}}

	got := Normalize(in)

	if len(got[0].Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(got[0].Blocks))
	}
	use := got[0].Blocks[1]
	if use.Type != TypeToolUse || use.ID != "t1" || use.Name != "SymbolPriceTicker" {
		t.Errorf("tool_use block mangled: %+v", use)
	}
	if use.Input["symbol"] != "BTCUSDT" {
		t.Errorf("input = %v, want symbol BTCUSDT", use.Input)
	}
}

func TestNormalize_RawResultCoercedToText(t *testing.T) {
	in := []Message{{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: "t9",
			Raw:       map[string]any{"price": "65000.00"},
		}},
	}}

	got := Normalize(in)

	content := got[0].Blocks[0].Content
	if len(content) != 1 || content[0].Type != TypeText {
		t.Fatalf("content = %+v, want one text block", content)
	}
	if content[0].Text != `{"price":"65000.00"}` {
		t.Errorf("text = %q", content[0].Text)
	}
}

func TestNormalize_UnknownBlockDegradesToText(t *testing.T) {
	in := []Message{{
		Role: RoleAssistant,
		Blocks: []ContentBlock{{
			Type:  "thinking",
			Extra: map[string]any{"thinking": "hmm"},
		}},
	}}

	got := Normalize(in)

	b := got[0].Blocks[0]
	if b.Type != TypeText {
		t.Errorf("type = %q, want text", b.Type)
	}
	if b.Text == "" {
		t.Error("coerced text is empty")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := []Message{
		Text(RoleUser, "hello"),
		{
			Role: RoleAssistant,
			Blocks: []ContentBlock{
				TextBlock("let me check"),
				ToolUseBlock("t1", "Depth", map[string]any{"symbol": "ETHUSDT"}),
			},
		},
		{
			Role: RoleUser,
			Blocks: []ContentBlock{{
				Type:      TypeToolResult,
				ToolUseID: "t1",
				Content: []ContentBlock{{
					Type:        TypeText,
					Text:        "order book",
					Annotations: map[string]any{"priority": 1},
				}},
			}},
		},
		{
			Role:   RoleAssistant,
			Blocks: []ContentBlock{{Type: "audio", Extra: map[string]any{"url": "x"}}},
		},
	}

	once := Normalize(in)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	annotations := map[string]any{"audience": "assistant"}
	in := []Message{{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: "t1",
			Content:   []ContentBlock{{Type: TypeText, Text: "v", Annotations: annotations}},
		}},
	}}

	_ = Normalize(in)

	if in[0].Blocks[0].Content[0].Annotations == nil {
		t.Error("input annotations were stripped in place")
	}
}

// Fixture invariant: every tool_result must reference a tool_use that
// appears earlier in the conversation. Runtime code assumes this holds.
func TestFixtures_ToolResultReferencesPriorToolUse(t *testing.T) {
	conv := []Message{
		Text(RoleUser, "price of BTCUSDT"),
		{
			Role:   RoleAssistant,
			Blocks: []ContentBlock{ToolUseBlock("t1", "SymbolPriceTicker", map[string]any{"symbol": "BTCUSDT"})},
		},
		ToolResultMessage("t1", []ContentBlock{TextBlock(`{"price":"65000.00"}`)}),
		Text(RoleAssistant, "BTC is at $65,000"),
	}

	seen := map[string]bool{}
	for i, m := range conv {
		for _, b := range m.Blocks {
			switch b.Type {
			case TypeToolUse:
				seen[b.ID] = true
			case TypeToolResult:
				if !seen[b.ToolUseID] {
					t.Errorf("message %d: tool_result %q has no prior tool_use", i, b.ToolUseID)
				}
			}
		}
	}
}
