package tool

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }
func (f *fakeTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (f *fakeTool) Execute(ctx context.Context, input *Input) (*Output, error) {
	return &Output{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeTool{name: "get_balance"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&fakeTool{name: "get_balance"}); err == nil {
		t.Error("duplicate registration should fail")
	}

	tool, err := r.Get("get_balance")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tool.Name() != "get_balance" {
		t.Errorf("Name = %q", tool.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Get of unknown tool should fail")
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"get_markets_list", "get_balance", "place_bet"}
	for _, name := range names {
		if err := r.Register(&fakeTool{name: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	got := r.Names()
	if len(got) != len(names) {
		t.Fatalf("Names length = %d", len(got))
	}
	for i := range names {
		if got[i] != names[i] {
			t.Errorf("Names[%d] = %q, want %q", i, got[i], names[i])
		}
	}

	api := r.ToAPITools()
	if len(api) != 3 {
		t.Fatalf("ToAPITools length = %d", len(api))
	}
	if api[2].Name != "place_bet" {
		t.Errorf("api order broken: %q", api[2].Name)
	}
	if api[0].Description == "" {
		t.Error("description not carried over")
	}
}

func TestErrorOutput(t *testing.T) {
	out := ErrorOutput("limit reached")

	if !out.IsError {
		t.Error("IsError should be set")
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(out.Content), &payload); err != nil {
		t.Fatalf("error payload is not JSON: %v", err)
	}
	if payload["error"] != "limit reached" {
		t.Errorf("payload = %v", payload)
	}
}

func TestJSONOutput(t *testing.T) {
	out, err := JSONOutput(map[string]interface{}{"success": true})
	if err != nil {
		t.Fatalf("JSONOutput failed: %v", err)
	}
	if out.IsError {
		t.Error("IsError should not be set")
	}
	if out.Content != `{"success":true}` {
		t.Errorf("Content = %q", out.Content)
	}
}

func TestParamsTo(t *testing.T) {
	type betParams struct {
		MarketID string  `json:"market_id"`
		Amount   float64 `json:"amount"`
	}

	params, err := ParamsTo[betParams](map[string]interface{}{
		"market_id": "mkt-1",
		"amount":    12.5,
	})
	if err != nil {
		t.Fatalf("ParamsTo failed: %v", err)
	}
	if params.MarketID != "mkt-1" || params.Amount != 12.5 {
		t.Errorf("params = %+v", params)
	}

	// Unknown fields are ignored, missing ones zeroed
	params, err = ParamsTo[betParams](map[string]interface{}{"other": 1})
	if err != nil {
		t.Fatalf("ParamsTo failed: %v", err)
	}
	if params.MarketID != "" || params.Amount != 0 {
		t.Errorf("params = %+v", params)
	}
}
