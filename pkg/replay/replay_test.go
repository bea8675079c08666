package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

func loadTrolley(t *testing.T) *Service {
	t.Helper()
	s, err := LoadScript("testdata/trolley.yaml")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	svc := NewService(s, nil)
	n := 0
	svc.newToken = func() string {
		n++
		return []string{"", "sess-1", "sess-2", "sess-3"}[n]
	}
	return svc
}

func TestLoadScript(t *testing.T) {
	s, err := LoadScript("testdata/trolley.yaml")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if s.Scenario.ID != "trolley-redux" || s.Scenario.TotalSteps() != 4 {
		t.Errorf("scenario = %q with %d steps", s.Scenario.ID, s.Scenario.TotalSteps())
	}
	if len(s.Responses) != 6 {
		t.Errorf("responses = %d, want 6", len(s.Responses))
	}
	if _, ok := s.Scenario.Point(4); !ok {
		t.Error("scenario should be prepared")
	}
}

func TestParseScript_Rejects(t *testing.T) {
	const scen = `
scenario:
  id: s
  title: S
  decision_points:
    - step: 1
      prompt: p
      choices:
        - {id: a, text: A}
        - {id: b, text: B}
`
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", `{{{`},
		{"no scenario", "responses:\n  - {step: 1, choice: a, final: true}\n"},
		{"no responses", scen},
		{"unknown field", scen + "bogus: 1\n"},
		{"unknown step", scen + "responses:\n  - {step: 2, choice: a, final: true}\n"},
		{"unknown choice", scen + "responses:\n  - {step: 1, choice: z, final: true}\n"},
		{"missing next", scen + "responses:\n  - {step: 1, choice: a}\n"},
		{"final with next", scen + "responses:\n  - {step: 1, choice: a, final: true, next: \"1\"}\n"},
		{"bad expression", scen + "responses:\n  - {step: 1, choice: a, next: \"choice +\"}\n"},
		{"non-int expression", scen + "responses:\n  - {step: 1, choice: a, next: \"choice\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScript([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSubmitDecision_SessionAndRouting(t *testing.T) {
	svc := loadTrolley(t)
	ctx := context.Background()

	resp, err := svc.SubmitDecision(ctx, api.SubmitRequest{ScenarioID: "trolley-redux", Step: 1, ChoiceID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess-1" || resp.IsFinal || resp.NextStep == nil || *resp.NextStep != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Analysis.Utilitarian != "Inaction cost four net lives." {
		t.Errorf("analysis = %+v", resp.Analysis)
	}

	tok := resp.SessionID
	resp, err = svc.SubmitDecision(ctx, api.SubmitRequest{ScenarioID: "trolley-redux", SessionID: &tok, Step: 2, ChoiceID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if *resp.NextStep != 3 {
		t.Errorf("after 1:b next = %d, want 3", *resp.NextStep)
	}
	if resp.SessionID != tok {
		t.Errorf("session = %q, want %q", resp.SessionID, tok)
	}

	resp, err = svc.SubmitDecision(ctx, api.SubmitRequest{ScenarioID: "trolley-redux", SessionID: &tok, Step: 3, ChoiceID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if *resp.NextStep != 4 {
		t.Errorf("step + 1 = %d, want 4", *resp.NextStep)
	}
}

func TestSubmitDecision_FailClosed(t *testing.T) {
	svc := loadTrolley(t)
	ctx := context.Background()
	unknown := "nope"

	tests := []struct {
		name string
		req  api.SubmitRequest
	}{
		{"wrong scenario", api.SubmitRequest{ScenarioID: "other", Step: 1, ChoiceID: "a"}},
		{"unknown session", api.SubmitRequest{ScenarioID: "trolley-redux", SessionID: &unknown, Step: 1, ChoiceID: "a"}},
		{"unrecorded step", api.SubmitRequest{ScenarioID: "trolley-redux", Step: 9, ChoiceID: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitDecision(ctx, tt.req)
			if !errors.Is(err, api.ErrRequestFailed) {
				t.Errorf("err = %v, want ErrRequestFailed", err)
			}
		})
	}
}

func TestGetScenario(t *testing.T) {
	svc := loadTrolley(t)
	if _, err := svc.GetScenario(context.Background(), "missing"); !errors.Is(err, api.ErrRequestFailed) {
		t.Errorf("err = %v, want ErrRequestFailed", err)
	}
	list, err := svc.ListScenarios(context.Background())
	if err != nil || len(list) != 1 || list[0].Decisions() != 4 {
		t.Errorf("list = %+v, err = %v", list, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.GetScenario(ctx, "trolley-redux"); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled err = %v", err)
	}
}

// TestTraversal drives the controller end to end against the replay script.
func TestTraversal(t *testing.T) {
	svc := loadTrolley(t)
	c := traversal.New(traversal.Config{Submitter: svc, AdvanceDelay: time.Millisecond})
	defer c.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Load(ctx, svc, "trolley-redux"); err != nil {
		t.Fatal(err)
	}

	var rec *history.Record
	for _, choice := range []string{"a", "a", "a"} {
		var err error
		rec, err = c.SubmitChoice(ctx, choice, "")
		if err != nil {
			t.Fatalf("submit %q: %v", choice, err)
		}
		if _, err := c.WaitSettled(ctx); err != nil {
			t.Fatal(err)
		}
	}

	st := c.State()
	if st.Phase != traversal.Complete {
		t.Fatalf("phase = %s, want complete", st.Phase)
	}
	var steps []int
	for _, r := range st.History.Records() {
		steps = append(steps, r.Step)
	}
	if len(steps) != 3 || steps[0] != 1 || steps[1] != 2 || steps[2] != 4 {
		t.Errorf("steps = %v, want [1 2 4]", steps)
	}
	res := history.Resolve(*rec, st.History)
	if res.Status != history.Resolved || res.Origin.Step != 1 {
		t.Errorf("consequence origin = %+v", res)
	}
}
