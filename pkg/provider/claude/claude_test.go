package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CyberWeaverX/poly-survivor/pkg/provider"
)

func TestCreateMessage(t *testing.T) {
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Write([]byte(`{
			"id": "msg_1",
			"model": "test-model",
			"content": [
				{"type": "text", "text": "I will check the markets. "},
				{"type": "tool_use", "id": "tu_1", "name": "get_markets_list", "input": {"limit": 20}}
			],
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 50, "output_tokens": 25}
		}`))
	}))
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	resp, err := p.CreateMessage(context.Background(), &provider.Request{
		Model: "test-model",
		Messages: []provider.Message{{
			Role:    provider.RoleUser,
			Content: []provider.ContentBlock{&provider.TextBlock{Text: "start"}},
		}},
		Tools: []provider.Tool{{
			Name:        "get_markets_list",
			Description: "list markets",
			InputSchema: json.RawMessage(`{"type": "object"}`),
		}},
		ServerTools: []provider.ServerTool{{
			Type:    "web_search_20250305",
			Name:    "web_search",
			MaxUses: 3,
		}},
		MaxTokens: 4096,
		System:    "system prompt",
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	// Client and server tools share one wire array
	tools := gotBody["tools"].([]interface{})
	if len(tools) != 2 {
		t.Fatalf("tools length = %d, want 2", len(tools))
	}
	client := tools[0].(map[string]interface{})
	if client["name"] != "get_markets_list" {
		t.Errorf("client tool = %v", client)
	}
	server := tools[1].(map[string]interface{})
	if server["type"] != "web_search_20250305" || server["max_uses"] != 3.0 {
		t.Errorf("server tool = %v", server)
	}

	if gotBody["system"] != "system prompt" {
		t.Errorf("system = %v", gotBody["system"])
	}
	if gotBody["max_tokens"] != 4096.0 {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}

	// Response conversion
	if resp.StopReason != provider.StopReasonToolUse {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
	if resp.Text() != "I will check the markets. " {
		t.Errorf("Text = %q", resp.Text())
	}
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("ToolUses length = %d", len(uses))
	}
	if uses[0].Name != "get_markets_list" {
		t.Errorf("tool use name = %q", uses[0].Name)
	}
	if uses[0].Input["limit"] != 20.0 {
		t.Errorf("tool input = %v", uses[0].Input)
	}
	if resp.Usage.InputTokens != 50 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestCreateMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"type": "overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	_, err := p.CreateMessage(context.Background(), &provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestConvertResponseWebSearchBlocks(t *testing.T) {
	p := New("k")

	resp := p.convertResponse(&claudeResponse{
		Content: []claudeContentBlock{
			{Type: "server_tool_use", ID: "st_1", Name: "web_search", Input: map[string]interface{}{"query": "polls"}},
			{Type: "web_search_tool_result", ToolUseID: "st_1", Content: json.RawMessage(`[{"title": "T", "url": "u"}]`)},
			{Type: "text", Text: "summary"},
		},
	})

	if len(resp.Content) != 3 {
		t.Fatalf("content length = %d", len(resp.Content))
	}
	if _, ok := resp.Content[0].(*provider.ServerToolUseBlock); !ok {
		t.Error("expected server tool use block")
	}
	wsr, ok := resp.Content[1].(*provider.WebSearchResultBlock)
	if !ok {
		t.Fatal("expected web search result block")
	}
	if wsr.ToolUseID != "st_1" {
		t.Errorf("ToolUseID = %q", wsr.ToolUseID)
	}
}
