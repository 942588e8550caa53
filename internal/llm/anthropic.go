package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tradewind-ai/tradewind/internal/conversation"
	"github.com/tradewind-ai/tradewind/internal/httpkit"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"

	// DefaultModel is used when the config does not name one.
	DefaultModel = "claude-3-5-sonnet-latest"

	// DefaultMaxTokens caps the model's output size per turn.
	DefaultMaxTokens = 1000
)

// AnthropicClient is a client for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAnthropicClient creates a new Anthropic client. Model and
// maxTokens fall back to defaults when zero-valued.
func NewAnthropicClient(apiKey, model string, maxTokens int, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// Model responses can take significant time before sending headers
	// (long prompts, many tools). Use a generous response header timeout
	// and rely on ctx deadlines for overall timeout control.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &AnthropicClient{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With("provider", "anthropic"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// Anthropic request/response wire types.

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []Tool             `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthropicContent
}

type anthropicContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   any            `json:"content,omitempty"` // for tool_result
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Chat sends one Messages API request and returns the assistant turn.
// The messages must already be normalized (conversation.Normalize);
// this client maps shapes to the wire format but does not filter.
// There is no retry here; failures surface to the caller with the
// status and body preserved.
func (c *AnthropicClient) Chat(ctx context.Context, system string, tools []Tool, messages []conversation.Message) (*Reply, error) {
	req := anthropicRequest{
		Model:     c.model,
		Messages:  toWire(messages),
		System:    system,
		MaxTokens: c.maxTokens,
		Tools:     tools,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("calling model",
		"model", c.model,
		"messages", len(req.Messages),
		"tools", len(tools),
		"system_len", len(system),
	)
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, errBody)
	}

	var wire anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	reply := fromWire(&wire)

	c.logger.Debug("response received",
		"model", reply.Model,
		"stop_reason", reply.StopReason,
		"input_tokens", reply.InputTokens,
		"output_tokens", reply.OutputTokens,
		"blocks", len(reply.Message.Blocks),
	)

	return reply, nil
}

// Ping verifies the API key with a minimal one-token request.
func (c *AnthropicClient) Ping(ctx context.Context) error {
	req := anthropicRequest{
		Model:     c.model,
		Messages:  []anthropicMessage{{Role: conversation.RoleUser, Content: "ping"}},
		MaxTokens: 1,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(httpResp.Body, 4096)

	if httpResp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status from Anthropic API: %d", httpResp.StatusCode)
	}
	return nil
}

// toWire converts conversation messages to the Messages API shape.
// String content passes through as-is; block content maps per variant.
func toWire(messages []conversation.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.IsText() {
			out = append(out, anthropicMessage{Role: m.Role, Content: m.Content})
			continue
		}

		blocks := make([]anthropicContent, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			blocks = append(blocks, blockToWire(b))
		}
		out = append(out, anthropicMessage{Role: m.Role, Content: blocks})
	}
	return out
}

func blockToWire(b conversation.ContentBlock) anthropicContent {
	switch b.Type {
	case conversation.TypeToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return anthropicContent{
			Type:  conversation.TypeToolUse,
			ID:    b.ID,
			Name:  b.Name,
			Input: input,
		}

	case conversation.TypeToolResult:
		out := anthropicContent{
			Type:      conversation.TypeToolResult,
			ToolUseID: b.ToolUseID,
		}
		if len(b.Content) > 0 {
			nested := make([]anthropicContent, 0, len(b.Content))
			for _, c := range b.Content {
				nested = append(nested, anthropicContent{Type: conversation.TypeText, Text: c.Text})
			}
			out.Content = nested
		} else if b.Raw != nil {
			out.Content = conversation.Coerce(b.Raw)
		}
		return out

	default:
		return anthropicContent{Type: conversation.TypeText, Text: b.Text}
	}
}

// fromWire converts an API response to the internal reply shape,
// preserving block order exactly as emitted.
func fromWire(resp *anthropicResponse) *Reply {
	blocks := make([]conversation.ContentBlock, 0, len(resp.Content))
	for _, c := range resp.Content {
		switch c.Type {
		case conversation.TypeText:
			blocks = append(blocks, conversation.TextBlock(c.Text))
		case conversation.TypeToolUse:
			blocks = append(blocks, conversation.ToolUseBlock(c.ID, c.Name, c.Input))
		default:
			blocks = append(blocks, conversation.ContentBlock{
				Type:  c.Type,
				Text:  c.Text,
				Extra: map[string]any{"type": c.Type},
			})
		}
	}

	return &Reply{
		Message: conversation.Message{
			Role:   conversation.RoleAssistant,
			Blocks: blocks,
		},
		Model:        resp.Model,
		StopReason:   resp.StopReason,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
}
