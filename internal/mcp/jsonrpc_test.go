package mcp

import (
	"encoding/json"
	"testing"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest(7, "tools/call", map[string]any{"name": "Depth"})
	if req.JSONRPC != "2.0" || req.ID != 7 || req.Method != "tools/call" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestNewResponse_RoundTrip(t *testing.T) {
	resp, err := NewResponse(3, map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != 3 || decoded.Error != nil {
		t.Errorf("unexpected response: %+v", decoded)
	}

	var result map[string]any
	if err := json.Unmarshal(decoded.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result["ok"] != true {
		t.Errorf("result = %v", result)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(9, CodeMethodNotFound, "method not found: resources/list")
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Error.Error() == "" {
		t.Error("RPCError.Error() is empty")
	}
}

func TestNotification_OmitsID(t *testing.T) {
	n := NewNotification("notifications/initialized", nil)
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, hasID := decoded["id"]; hasID {
		t.Error("notification must not carry an id")
	}
}
