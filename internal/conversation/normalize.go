package conversation

// Normalize projects a conversation into the restricted shape the model
// endpoint accepts. It is a pure function: the input is never mutated,
// the same input always yields the same output, and it never fails:
// shapes it does not recognize degrade to a best-effort string rather
// than an error.
//
// Rules:
//   - Plain string content passes through unchanged.
//   - tool_result blocks are rewritten to keep only type, tool_use_id
//     and content; nested text blocks keep only type and text (the
//     endpoint rejects enrichment fields such as annotations).
//   - text and tool_use blocks pass through structurally unchanged,
//     minus fields the endpoint does not accept.
//   - Unknown block types are coerced to text blocks.
//
// Normalize(Normalize(m)) == Normalize(m) for all m.
func Normalize(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, normalizeMessage(m))
	}
	return out
}

func normalizeMessage(m Message) Message {
	if m.IsText() {
		return Message{Role: m.Role, Content: m.Content}
	}

	blocks := make([]ContentBlock, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		blocks = append(blocks, normalizeBlock(b))
	}
	return Message{Role: m.Role, Blocks: blocks}
}

func normalizeBlock(b ContentBlock) ContentBlock {
	switch b.Type {
	case TypeText:
		return ContentBlock{Type: TypeText, Text: b.Text}

	case TypeToolUse:
		return ContentBlock{Type: TypeToolUse, ID: b.ID, Name: b.Name, Input: b.Input}

	case TypeToolResult:
		out := ContentBlock{Type: TypeToolResult, ToolUseID: b.ToolUseID}
		switch {
		case len(b.Content) > 0:
			nested := make([]ContentBlock, 0, len(b.Content))
			for _, c := range b.Content {
				nested = append(nested, normalizeNested(c))
			}
			out.Content = nested
		case b.Raw != nil:
			// Tools occasionally return a bare value instead of
			// content blocks. The endpoint wants blocks, so coerce.
			out.Content = []ContentBlock{{Type: TypeText, Text: Coerce(b.Raw)}}
		}
		return out

	default:
		// Unknown shape: degrade to text rather than reject.
		return ContentBlock{Type: TypeText, Text: coerceUnknown(b)}
	}
}

// normalizeNested handles blocks nested inside a tool_result. Only
// plain text survives; anything else is flattened to text.
func normalizeNested(b ContentBlock) ContentBlock {
	if b.Type == TypeText {
		return ContentBlock{Type: TypeText, Text: b.Text}
	}
	return ContentBlock{Type: TypeText, Text: coerceUnknown(b)}
}

func coerceUnknown(b ContentBlock) string {
	if b.Text != "" {
		return b.Text
	}
	if len(b.Extra) > 0 {
		return Coerce(b.Extra)
	}
	return Coerce(map[string]any{"type": b.Type})
}
