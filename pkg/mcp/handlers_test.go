package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/dilemma/pkg/replay"
)

func newTools(t *testing.T) *Tools {
	t.Helper()
	script, err := replay.LoadScript("testdata/lifeboat.yaml")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	svc := replay.NewService(script, nil)
	tools := NewTools(Config{Catalog: svc, Submitter: svc})
	t.Cleanup(tools.Close)
	return tools
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", result.Content[0])
	}
	return tc.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected error result: %s", text(t, result))
	}
	var v T
	if err := json.Unmarshal([]byte(text(t, result)), &v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return v
}

func TestHandleListScenarios(t *testing.T) {
	tools := newTools(t)
	list := decode[[]summaryView](t, call(t, tools.HandleListScenarios, map[string]any{}))
	if len(list) != 1 || list[0].ID != "lifeboat" || list[0].Decisions != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestHandleStart_MissingID(t *testing.T) {
	tools := newTools(t)
	if result := call(t, tools.HandleStart, map[string]any{}); !result.IsError {
		t.Error("expected error for missing scenario_id")
	}
}

func TestHandleStart_UnknownScenario(t *testing.T) {
	tools := newTools(t)
	result := call(t, tools.HandleStart, map[string]any{"scenario_id": "nope"})
	if !result.IsError {
		t.Error("expected error for unknown scenario")
	}
	if tools.controller() != nil {
		t.Error("failed start must not install a traversal")
	}
}

func TestHandlersRequireStart(t *testing.T) {
	tools := newTools(t)
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"choose":  tools.HandleChoose,
		"state":   tools.HandleState,
		"history": tools.HandleHistory,
		"restart": tools.HandleRestart,
	}
	for name, h := range handlers {
		result := call(t, h, map[string]any{"choice": "a"})
		if !result.IsError || !strings.Contains(text(t, result), "dilemma/start") {
			t.Errorf("%s before start: %q", name, text(t, result))
		}
	}
}

func TestWalkScenario(t *testing.T) {
	tools := newTools(t)

	st := decode[stateView](t, call(t, tools.HandleStart, map[string]any{"scenario_id": "lifeboat"}))
	if st.Phase != "awaiting_choice" || st.Step != 1 || st.TotalSteps != 2 || st.Point == nil {
		t.Fatalf("start state = %+v", st)
	}
	if st.SessionID != "" {
		t.Errorf("session before first submission = %q", st.SessionID)
	}

	// Position 1 is choice "a"; JSON numbers arrive as float64.
	first := decode[chooseView](t, call(t, tools.HandleChoose, map[string]any{"choice": float64(1)}))
	if first.Decision.ChoiceID != "a" || first.Decision.Analysis.Utilitarian == "" {
		t.Errorf("decision = %+v", first.Decision)
	}
	if first.State.Step != 2 || first.State.Phase != "awaiting_choice" || first.State.SessionID == "" {
		t.Errorf("state after first choice = %+v", first.State)
	}

	result := call(t, tools.HandleChoose, map[string]any{"choice": "z"})
	if !result.IsError {
		t.Error("unknown choice should be an error result")
	}

	final := decode[chooseView](t, call(t, tools.HandleChoose, map[string]any{"choice": "b"}))
	if !final.State.Complete || final.State.Point != nil {
		t.Errorf("final state = %+v", final.State)
	}
	if final.Decision.Consequence == "" || final.Decision.Origin != `your choice at step 1: "Pull them aboard"` {
		t.Errorf("final decision = %+v", final.Decision)
	}

	hist := decode[[]recordView](t, call(t, tools.HandleHistory, nil))
	if len(hist) != 2 || hist[0].Step != 1 || hist[1].Step != 2 {
		t.Errorf("history = %+v", hist)
	}

	st = decode[stateView](t, call(t, tools.HandleRestart, nil))
	if st.Step != 1 || st.Complete || st.Decisions != 0 || st.SessionID != "" {
		t.Errorf("restart state = %+v", st)
	}
}

func TestNewServer(t *testing.T) {
	if s := NewServer("test", newTools(t)); s == nil {
		t.Fatal("NewServer returned nil")
	}
}
