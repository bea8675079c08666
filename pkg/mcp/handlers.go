package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
	"github.com/ormasoftchile/dilemma/pkg/trace"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

// Catalog lists and fetches scenarios.
type Catalog interface {
	ListScenarios(ctx context.Context) ([]scenario.Summary, error)
	traversal.Fetcher
}

// Config holds what the tools need.
type Config struct {
	Catalog      Catalog
	Submitter    traversal.Submitter
	AdvanceDelay time.Duration
	Logger       *zap.Logger
	Trace        *trace.Writer
	Scheduler    traversal.Scheduler // nil uses the wall clock
}

// Tools holds the single traversal an MCP client drives.
type Tools struct {
	cfg Config

	mu   sync.Mutex
	ctrl *traversal.Controller
}

// NewTools creates the tool handlers.
func NewTools(cfg Config) *Tools {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Tools{cfg: cfg}
}

// Close disposes the active traversal.
func (t *Tools) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctrl != nil {
		t.ctrl.Dispose()
		t.ctrl = nil
	}
}

func (t *Tools) controller() *traversal.Controller {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctrl
}

// HandleListScenarios implements the dilemma/list_scenarios MCP tool.
func (t *Tools) HandleListScenarios(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := t.cfg.Catalog.ListScenarios(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	out := make([]summaryView, 0, len(list))
	for _, s := range list {
		out = append(out, summaryView{
			ID:            s.ID,
			Title:         s.Title,
			Category:      s.Category,
			Difficulty:    s.Difficulty,
			Decisions:     s.Decisions(),
			EstimatedTime: s.EstimatedTime,
		})
	}
	return jsonResult(out)
}

// HandleStart implements the dilemma/start MCP tool.
func (t *Tools) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, _ := args["scenario_id"].(string)
	if id == "" {
		return errorResult("scenario_id argument is required"), nil
	}

	ctrl := traversal.New(traversal.Config{
		Submitter:    t.cfg.Submitter,
		Scheduler:    t.cfg.Scheduler,
		AdvanceDelay: t.cfg.AdvanceDelay,
		Logger:       t.cfg.Logger,
		Trace:        t.cfg.Trace,
	})
	if err := ctrl.Load(ctx, t.cfg.Catalog, id); err != nil {
		ctrl.Dispose()
		return errorResult(err.Error()), nil
	}

	t.mu.Lock()
	if t.ctrl != nil {
		t.ctrl.Dispose()
	}
	t.ctrl = ctrl
	t.mu.Unlock()

	return jsonResult(newStateView(ctrl.State()))
}

// HandleChoose implements the dilemma/choose MCP tool. It waits for the
// auto-advance so the result names the next decision point.
func (t *Tools) HandleChoose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctrl := t.controller()
	if ctrl == nil {
		return errorResult("no traversal started; call dilemma/start first"), nil
	}
	args := req.GetArguments()
	choiceID, err := resolveChoice(ctrl.State(), args["choice"])
	if err != nil {
		return errorResult(err.Error()), nil
	}

	rec, err := ctrl.SubmitChoice(ctx, choiceID, "")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	st, err := ctrl.WaitSettled(ctx)
	if err != nil && !errors.Is(err, traversal.ErrDisposed) {
		return errorResult(err.Error()), nil
	}
	return jsonResult(chooseView{
		Decision: newRecordView(*rec, st.History),
		State:    newStateView(st),
	})
}

// HandleState implements the dilemma/state MCP tool.
func (t *Tools) HandleState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctrl := t.controller()
	if ctrl == nil {
		return errorResult("no traversal started; call dilemma/start first"), nil
	}
	return jsonResult(newStateView(ctrl.State()))
}

// HandleHistory implements the dilemma/history MCP tool.
func (t *Tools) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctrl := t.controller()
	if ctrl == nil {
		return errorResult("no traversal started; call dilemma/start first"), nil
	}
	log := ctrl.State().History
	out := make([]recordView, 0, log.Len())
	for _, r := range log.Records() {
		out = append(out, newRecordView(r, log))
	}
	return jsonResult(out)
}

// HandleRestart implements the dilemma/restart MCP tool.
func (t *Tools) HandleRestart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctrl := t.controller()
	if ctrl == nil {
		return errorResult("no traversal started; call dilemma/start first"), nil
	}
	ctrl.Restart()
	return jsonResult(newStateView(ctrl.State()))
}

// resolveChoice accepts a choice id or a 1-based position, as a string or
// a JSON number.
func resolveChoice(st traversal.State, raw any) (string, error) {
	var arg string
	switch v := raw.(type) {
	case string:
		arg = v
	case float64:
		arg = strconv.Itoa(int(v))
	}
	if arg == "" {
		return "", errors.New("choice argument is required")
	}
	dp, ok := st.Point()
	if !ok {
		return arg, nil
	}
	if _, ok := dp.Choice(arg); ok {
		return arg, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(dp.Choices) {
			return "", fmt.Errorf("choice %d out of range 1-%d", n, len(dp.Choices))
		}
		return dp.Choices[n-1].ID, nil
	}
	return arg, nil
}

type summaryView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Category      string `json:"category,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	Decisions     int    `json:"decision_points"`
	EstimatedTime int    `json:"estimated_time,omitempty"`
}

type stateView struct {
	ScenarioID string                  `json:"scenario_id,omitempty"`
	Title      string                  `json:"title,omitempty"`
	Phase      string                  `json:"phase"`
	Step       int                     `json:"step,omitempty"`
	TotalSteps int                     `json:"total_steps,omitempty"`
	Complete   bool                    `json:"complete"`
	SessionID  string                  `json:"session_id,omitempty"`
	Decisions  int                     `json:"decisions_made"`
	Point      *scenario.DecisionPoint `json:"decision_point,omitempty"`
}

type recordView struct {
	Seq         int          `json:"seq"`
	Step        int          `json:"step"`
	ChoiceID    string       `json:"choice_id"`
	ChoiceText  string       `json:"choice_text"`
	Analysis    api.Analysis `json:"analysis"`
	Consequence string       `json:"consequence,omitempty"`
	Origin      string       `json:"consequence_origin,omitempty"`
}

type chooseView struct {
	Decision recordView `json:"decision"`
	State    stateView  `json:"state"`
}

func newStateView(st traversal.State) stateView {
	v := stateView{
		Phase:     st.Phase.String(),
		Complete:  st.Complete,
		Decisions: st.History.Len(),
	}
	if st.Scenario != nil {
		v.ScenarioID = st.Scenario.ID
		v.Title = st.Scenario.Title
		v.Step = st.Step
		v.TotalSteps = st.Scenario.TotalSteps()
	}
	v.SessionID, _ = st.Session.Token()
	if dp, ok := st.Point(); ok && st.AcceptsChoice() {
		v.Point = dp
	}
	return v
}

func newRecordView(r history.Record, log history.Log) recordView {
	v := recordView{
		Seq:        r.Seq,
		Step:       r.Step,
		ChoiceID:   r.ChoiceID,
		ChoiceText: r.ChoiceText,
		Analysis:   r.Analysis,
	}
	if r.HasConsequence() {
		v.Consequence = *r.Consequence
		v.Origin = history.Resolve(r, log).Describe()
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
