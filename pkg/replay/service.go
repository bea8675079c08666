package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

// Service answers the catalog and decision calls from a Script.
// It is safe for concurrent use.
type Service struct {
	script   *Script
	logger   *zap.Logger
	newToken func() string

	mu       sync.Mutex
	sessions map[string][]string // session token -> path so far
}

// NewService creates a replay service. logger may be nil.
func NewService(s *Script, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		script:   s,
		logger:   logger.Named("replay"),
		newToken: uuid.NewString,
		sessions: make(map[string][]string),
	}
}

// ListScenarios returns the single scripted scenario.
func (s *Service) ListScenarios(ctx context.Context) ([]scenario.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []scenario.Summary{s.script.Scenario.Summary()}, nil
}

// GetScenario returns the scripted scenario when id matches.
func (s *Service) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id != s.script.Scenario.ID {
		return nil, fmt.Errorf("%w: replay: scenario %q not in script", api.ErrRequestFailed, id)
	}
	return s.script.Scenario, nil
}

// SubmitDecision returns the recorded response for the submission. A null
// session starts a new one; an unknown session or unrecorded (step, choice)
// fails.
func (s *Service) SubmitDecision(ctx context.Context, req api.SubmitRequest) (*api.DecisionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ScenarioID != s.script.Scenario.ID {
		return nil, fmt.Errorf("%w: replay: scenario %q not in script", api.ErrRequestFailed, req.ScenarioID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var token string
	var path []string
	if req.SessionID == nil {
		token = s.newToken()
	} else {
		var ok bool
		token = *req.SessionID
		path, ok = s.sessions[token]
		if !ok {
			return nil, fmt.Errorf("%w: replay: unknown session %q", api.ErrRequestFailed, token)
		}
	}

	rec, ok := s.script.match(req.Step, req.ChoiceID)
	if !ok {
		return nil, fmt.Errorf("%w: replay: no recorded response for step %d choice %q", api.ErrRequestFailed, req.Step, req.ChoiceID)
	}

	resp := &api.DecisionResponse{
		SessionID: token,
		Analysis:  rec.Analysis,
		IsFinal:   rec.Final,
	}
	if rec.Consequence != "" {
		c := rec.Consequence
		resp.Consequence = &c
	}
	if rec.Trigger != nil {
		step := rec.Trigger.Step
		resp.ConsequenceTriggerStep = &step
		if rec.Trigger.Choice != "" {
			choice := rec.Trigger.Choice
			resp.ConsequenceTriggerChoice = &choice
		}
	}
	if !rec.Final {
		next, err := rec.route(req.Step, req.ChoiceID, path)
		if err != nil {
			return nil, fmt.Errorf("%w: replay: %v", api.ErrRequestFailed, err)
		}
		resp.NextStep = &next
	}

	n := len(path)
	s.sessions[token] = append(path[:n:n], pathEntry(req.Step, req.ChoiceID))
	s.logger.Debug("replayed decision",
		zap.String("session_id", token),
		zap.Int("step", req.Step),
		zap.String("choice_id", req.ChoiceID),
		zap.Bool("final", rec.Final))
	return resp, nil
}
