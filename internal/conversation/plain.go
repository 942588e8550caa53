package conversation

import "strings"

// ToPlain converts a message to the plain-data shape used for the
// persisted transcript: role plus either a string or a list of maps.
// Every block variant has an explicit conversion; there is no runtime
// probing for serialization methods. Values that still resist JSON
// encoding downstream are stringified by the writer.
func ToPlain(m Message) map[string]any {
	if m.IsText() {
		return map[string]any{"role": m.Role, "content": m.Content}
	}

	content := make([]any, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		content = append(content, blockToPlain(b))
	}
	return map[string]any{"role": m.Role, "content": content}
}

func blockToPlain(b ContentBlock) map[string]any {
	out := map[string]any{"type": b.Type}

	switch b.Type {
	case TypeText:
		out["text"] = b.Text
		if len(b.Annotations) > 0 {
			out["annotations"] = b.Annotations
		}

	case TypeToolUse:
		out["id"] = b.ID
		out["name"] = b.Name
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		out["input"] = input

	case TypeToolResult:
		out["tool_use_id"] = b.ToolUseID
		if len(b.Content) > 0 {
			nested := make([]any, 0, len(b.Content))
			for _, c := range b.Content {
				nested = append(nested, blockToPlain(c))
			}
			out["content"] = nested
		} else if b.Raw != nil {
			out["content"] = Coerce(b.Raw)
		}

	default:
		for k, v := range b.Extra {
			out[k] = v
		}
		if b.Text != "" {
			out["text"] = b.Text
		}
	}

	return out
}

// DisplayText flattens a message for human-facing rendering. Text
// blocks are joined; tool interactions collapse to inline markers.
func DisplayText(m Message) string {
	if m.IsText() {
		return m.Content
	}

	var parts []string
	for _, b := range m.Blocks {
		switch b.Type {
		case TypeText:
			parts = append(parts, b.Text)
		case TypeToolUse:
			parts = append(parts, "[tool: "+b.Name+"]")
		case TypeToolResult:
			var nested []string
			for _, c := range b.Content {
				if c.Type == TypeText && c.Text != "" {
					nested = append(nested, c.Text)
				}
			}
			if len(nested) == 0 && b.Raw != nil {
				nested = append(nested, Coerce(b.Raw))
			}
			parts = append(parts, strings.Join(nested, "\n"))
		default:
			parts = append(parts, "["+b.Type+"]")
		}
	}
	return strings.Join(parts, "\n")
}
