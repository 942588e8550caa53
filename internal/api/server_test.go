package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tradewind-ai/tradewind/internal/conversation"
	"github.com/tradewind-ai/tradewind/internal/llm"
)

type fakeProcessor struct {
	answer  string
	err     error
	history []conversation.Message
	gotQuery string
}

func (f *fakeProcessor) ProcessQuery(ctx context.Context, query string) (string, error) {
	f.gotQuery = query
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeProcessor) History() []conversation.Message { return f.history }

type fakeTools struct {
	tools []llm.Tool
}

func (f *fakeTools) Tools() []llm.Tool { return f.tools }

func newTestServer(p *fakeProcessor, tl *fakeTools) *httptest.Server {
	if tl == nil {
		tl = &fakeTools{}
	}
	s := NewServer("", 0, p, tl, nil)
	return httptest.NewServer(s.Handler())
}

func TestHandleQuery(t *testing.T) {
	proc := &fakeProcessor{
		answer: "BTC is at $64,000.",
		history: []conversation.Message{
			conversation.Text(conversation.RoleUser, "price of BTCUSDT?"),
			{
				Role: conversation.RoleAssistant,
				Blocks: []conversation.ContentBlock{
					conversation.ToolUseBlock("t1", "SymbolPriceTicker", map[string]any{"symbol": "BTCUSDT"}),
				},
			},
			conversation.ToolResultMessage("t1", []conversation.ContentBlock{
				conversation.TextBlock("64000.00"),
			}),
			{
				Role:   conversation.RoleAssistant,
				Blocks: []conversation.ContentBlock{conversation.TextBlock("BTC is at $64,000.")},
			},
		},
	}
	srv := newTestServer(proc, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"price of BTCUSDT?"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if proc.gotQuery != "price of BTCUSDT?" {
		t.Errorf("query = %q", proc.gotQuery)
	}

	var body struct {
		Answer   string `json:"answer"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Answer != "BTC is at $64,000." {
		t.Errorf("answer = %q", body.Answer)
	}
	if len(body.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(body.Messages))
	}
	if !strings.Contains(body.Messages[1].Content, "SymbolPriceTicker") {
		t.Errorf("tool turn display = %q", body.Messages[1].Content)
	}
}

func TestHandleQuery_BadRequests(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, nil)
	defer srv.Close()

	for name, payload := range map[string]string{
		"empty query":  `{"query":""}`,
		"invalid json": `{`,
	} {
		resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(payload))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
}

func TestHandleQuery_ProcessorFailure(t *testing.T) {
	srv := newTestServer(&fakeProcessor{err: fmt.Errorf("model call failed")}, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/query", "application/json", strings.NewReader(`{"query":"hi"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body["detail"], "model call failed") {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestHandleTools(t *testing.T) {
	tools := &fakeTools{tools: []llm.Tool{
		{
			Name:        "SymbolPriceTicker",
			Description: "Latest price for a symbol.",
			InputSchema: map[string]any{"type": "object"},
		},
	}}
	srv := newTestServer(&fakeProcessor{}, tools)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tools")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tools) != 1 || body.Tools[0]["name"] != "SymbolPriceTicker" {
		t.Errorf("tools = %+v", body.Tools)
	}
	if _, ok := body.Tools[0]["input_schema"]; !ok {
		t.Error("missing input_schema")
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/query", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}
