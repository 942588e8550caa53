package conversation

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestToPlain_StringContent(t *testing.T) {
	got := ToPlain(Text(RoleUser, "hello"))
	want := map[string]any{"role": "user", "content": "hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToPlain() = %v, want %v", got, want)
	}
}

func TestToPlain_KeepsAnnotationsInLog(t *testing.T) {
	m := Message{
		Role: RoleUser,
		Blocks: []ContentBlock{{
			Type:      TypeToolResult,
			ToolUseID: "t1",
			Content: []ContentBlock{{
				Type:        TypeText,
				Text:        "payload",
				Annotations: map[string]any{"audience": "assistant"},
			}},
		}},
	}

	plain := ToPlain(m)

	// The transcript keeps the full unnormalized shape, annotations
	// included. Only the model-facing view strips them.
	data, err := json.Marshal(plain)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "annotations") {
		t.Errorf("log projection lost annotations: %s", s)
	}
	if !strings.Contains(s, `"tool_use_id":"t1"`) {
		t.Errorf("log projection lost tool_use_id: %s", s)
	}
}

func TestToPlain_ToolUse(t *testing.T) {
	m := Message{
		Role:   RoleAssistant,
		Blocks: []ContentBlock{ToolUseBlock("t1", "Depth", nil)},
	}

	plain := ToPlain(m)

	content, ok := plain["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v", plain["content"])
	}
	block := content[0].(map[string]any)
	if block["name"] != "Depth" || block["id"] != "t1" {
		t.Errorf("block = %v", block)
	}
	if _, ok := block["input"].(map[string]any); !ok {
		t.Errorf("nil input not defaulted to empty map: %v", block["input"])
	}
}

func TestDisplayText(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "plain string",
			msg:  Text(RoleAssistant, "BTC is at $65,000"),
			want: "BTC is at $65,000",
		},
		{
			name: "text plus tool use",
			msg: Message{
				Role: RoleAssistant,
				Blocks: []ContentBlock{
					TextBlock("checking"),
					ToolUseBlock("t1", "SymbolPriceTicker", nil),
				},
			},
			want: "checking\n[tool: SymbolPriceTicker]",
		},
		{
			name: "tool result text",
			msg:  ToolResultMessage("t1", []ContentBlock{TextBlock("65000.00")}),
			want: "65000.00",
		},
		{
			name: "unknown block",
			msg:  Message{Role: RoleAssistant, Blocks: []ContentBlock{{Type: "image"}}},
			want: "[image]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayText(tt.msg); got != tt.want {
				t.Errorf("DisplayText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	if got := Coerce("plain"); got != "plain" {
		t.Errorf("Coerce(string) = %q", got)
	}
	if got := Coerce(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Errorf("Coerce(map) = %q", got)
	}
	if got := Coerce(make(chan int)); got == "" {
		t.Error("Coerce(chan) returned empty string")
	}
}
