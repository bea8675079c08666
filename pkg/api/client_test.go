package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", 5*time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New("not a url", time.Second, nil); err == nil {
		t.Fatal("expected error for invalid base URL")
	}
}

func TestListScenarios(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/scenarios" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":"a","title":"A","decision_point_count":3,"estimated_time":5},
			{"id":"b","title":"B","decision_points":[{"step":1,"prompt":"p","choices":[]}]}
		]`))
	}))

	list, err := c.ListScenarios(context.Background())
	if err != nil {
		t.Fatalf("ListScenarios: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Decisions() != 3 || list[1].Decisions() != 1 {
		t.Errorf("decision counts = %d, %d", list[0].Decisions(), list[1].Decisions())
	}
}

func TestGetScenario(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scenarios/trolley v2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"trolley v2","title":"T","decision_points":[
			{"step":1,"context":"c","prompt":"p","choices":[{"id":"a","text":"A"}]},
			{"step":5,"context":"c","prompt":"q","choices":[{"id":"b","text":"B"}]}
		]}`))
	}))

	s, err := c.GetScenario(context.Background(), "trolley v2")
	if err != nil {
		t.Fatalf("GetScenario: %v", err)
	}
	if dp, ok := s.Point(5); !ok || dp.Prompt != "q" {
		t.Errorf("Point(5) = %v, %v", dp, ok)
	}
}

func TestGetScenario_InvalidPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","title":"X","decision_points":[{"step":1},{"step":1}]}`))
	}))
	_, err := c.GetScenario(context.Background(), "x")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("err = %v, want ErrRequestFailed", err)
	}
}

func TestSubmitDecision_RequestShape(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/decisions/submit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"session_id":"s1","analysis":{"utilitarian":"u","deontological":"d","virtue_ethics":"v","care_ethics":"c"},
			"consequence":null,"consequence_trigger_step":null,"consequence_trigger_choice":null,"is_final":false,"next_step":2}`))
	}))

	resp, err := c.SubmitDecision(context.Background(), SubmitRequest{
		ScenarioID: "trolley", Step: 1, ChoiceID: "a", ChoiceText: "Pull the lever",
	})
	if err != nil {
		t.Fatalf("SubmitDecision: %v", err)
	}

	if v, ok := got["session_id"]; !ok || v != nil {
		t.Errorf("session_id should be sent as null, got %v (present=%v)", v, ok)
	}
	if got["step"] != float64(1) || got["choice_id"] != "a" || got["scenario_id"] != "trolley" {
		t.Errorf("request body = %v", got)
	}

	if resp.SessionID != "s1" || resp.IsFinal || resp.NextStep == nil || *resp.NextStep != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Consequence != nil {
		t.Errorf("consequence = %v, want nil", *resp.Consequence)
	}
	if resp.Analysis.VirtueEthics != "v" {
		t.Errorf("virtue_ethics = %q", resp.Analysis.VirtueEthics)
	}
}

func TestSubmitDecision_NonSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"scenario not found"}`, http.StatusNotFound)
	}))
	_, err := c.SubmitDecision(context.Background(), SubmitRequest{ScenarioID: "x", Step: 1, ChoiceID: "a"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("err = %v, want ErrRequestFailed", err)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("err = %v, want HTTP 404 mention", err)
	}
}

func TestSubmitDecision_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	_, err := c.SubmitDecision(context.Background(), SubmitRequest{ScenarioID: "x", Step: 1, ChoiceID: "a"})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("err = %v, want ErrRequestFailed", err)
	}
}

func TestSubmitDecision_ContextCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SubmitDecision(ctx, SubmitRequest{ScenarioID: "x", Step: 1, ChoiceID: "a"})
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrRequestFailed wrapping context.Canceled", err)
	}
}

func TestGenerateScenario(t *testing.T) {
	var got GenerateRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"saved":true,"scenario":{"id":"gen-1","title":"G","decision_points":[
			{"step":1,"context":"","prompt":"p","choices":[{"id":"a","text":"A"},{"id":"b","text":"B"}]}]}}`))
	}))

	req := NewGenerateRequest("  A nurse sees a colleague steal medication  ")
	req.SaveToLibrary = false
	res, err := c.GenerateScenario(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateScenario: %v", err)
	}
	if !got.SaveToLibrary {
		t.Error("save_to_library must always be true")
	}
	if got.Topic != "A nurse sees a colleague steal medication" {
		t.Errorf("topic not trimmed: %q", got.Topic)
	}
	if !res.Saved || res.Scenario.ID != "gen-1" {
		t.Errorf("result = %+v", res)
	}
	if _, ok := res.Scenario.Point(1); !ok {
		t.Error("generated scenario should be prepared")
	}
}

func TestValidateGenerate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerateRequest)
		wantErr string
	}{
		{"defaults", func(r *GenerateRequest) {}, ""},
		{"empty topic", func(r *GenerateRequest) { r.Topic = "" }, "topic"},
		{"bad category", func(r *GenerateRequest) { r.Category = "sports" }, "category"},
		{"bad difficulty", func(r *GenerateRequest) { r.Difficulty = "expert" }, "difficulty"},
		{"too few points", func(r *GenerateRequest) { r.NumDecisionPoints = 1 }, "num_decision_points"},
		{"too many points", func(r *GenerateRequest) { r.NumDecisionPoints = 6 }, "num_decision_points"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewGenerateRequest("topic")
			tt.mutate(&req)
			err := ValidateGenerate(nil, req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateScenario_InvalidNoRequest(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	_, err := c.GenerateScenario(context.Background(), NewGenerateRequest("   "))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if called {
		t.Error("invalid request must not reach the service")
	}
}

func TestFrameworksOrder(t *testing.T) {
	a := Analysis{Utilitarian: "1", Deontological: "2", VirtueEthics: "3", CareEthics: "4"}
	var got []string
	for _, f := range Frameworks {
		got = append(got, f.Get(a))
	}
	if strings.Join(got, "") != "1234" {
		t.Errorf("framework order = %v", got)
	}
}
