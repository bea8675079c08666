// Package scenario defines the in-memory model of an ethical-dilemma scenario:
// its metadata, the decision points keyed by step number, and the choices offered
// at each point. A Scenario is immutable once prepared.
package scenario

import (
	"errors"
	"fmt"
)

// Known categories and difficulty levels offered by the authoring service.
var (
	Categories   = []string{"business", "medical", "personal", "civic"}
	Difficulties = []string{"beginner", "intermediate", "advanced"}
)

var (
	// ErrDuplicateStep is returned when two decision points share a step number.
	ErrDuplicateStep = errors.New("duplicate decision point step")
	// ErrInvalidStep is returned for step numbers below 1.
	ErrInvalidStep = errors.New("decision point step must be >= 1")
)

// Scenario is a complete branching dilemma as served by GET /scenarios/{id}.
type Scenario struct {
	ID             string          `yaml:"id"                       json:"id"                       jsonschema:"required"`
	Title          string          `yaml:"title"                    json:"title"                    jsonschema:"required"`
	Description    string          `yaml:"description,omitempty"    json:"description,omitempty"`
	Category       string          `yaml:"category,omitempty"       json:"category,omitempty"       jsonschema:"enum=business,enum=medical,enum=personal,enum=civic"`
	Difficulty     string          `yaml:"difficulty,omitempty"     json:"difficulty,omitempty"     jsonschema:"enum=beginner,enum=intermediate,enum=advanced"`
	EstimatedTime  int             `yaml:"estimated_time,omitempty" json:"estimated_time,omitempty" jsonschema:"minimum=0"`
	DecisionPoints []DecisionPoint `yaml:"decision_points"          json:"decision_points"          jsonschema:"required,minItems=1"`

	// byStep maps step number to index in DecisionPoints. Built by Prepare.
	byStep map[int]int
}

// DecisionPoint is one prompt in the scenario. Step numbers are sparse: the
// server decides which step follows which.
type DecisionPoint struct {
	Step    int      `yaml:"step"    json:"step"    jsonschema:"required,minimum=1"`
	Context string   `yaml:"context" json:"context"`
	Prompt  string   `yaml:"prompt"  json:"prompt"  jsonschema:"required"`
	Choices []Choice `yaml:"choices" json:"choices" jsonschema:"required,minItems=1"`
}

// Choice is a selectable answer within a decision point.
type Choice struct {
	ID   string `yaml:"id"   json:"id"   jsonschema:"required"`
	Text string `yaml:"text" json:"text" jsonschema:"required"`
}

// Summary is an entry of GET /scenarios. Older services return full decision
// points instead of a count, so both are accepted.
type Summary struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Category           string          `json:"category,omitempty"`
	Difficulty         string          `json:"difficulty,omitempty"`
	EstimatedTime      int             `json:"estimated_time,omitempty"`
	DecisionPointCount int             `json:"decision_point_count,omitempty"`
	DecisionPoints     []DecisionPoint `json:"decision_points,omitempty"`
}

// Decisions returns the number of decision points in the summarized scenario.
func (s Summary) Decisions() int {
	if s.DecisionPointCount > 0 {
		return s.DecisionPointCount
	}
	return len(s.DecisionPoints)
}

// Prepare builds the step index and checks the step-number invariants.
// It must be called once after decoding and before the scenario is shared.
func (s *Scenario) Prepare() error {
	idx := make(map[int]int, len(s.DecisionPoints))
	for i, dp := range s.DecisionPoints {
		if dp.Step < 1 {
			return fmt.Errorf("decision_points[%d]: %w (got %d)", i, ErrInvalidStep, dp.Step)
		}
		if prev, ok := idx[dp.Step]; ok {
			return fmt.Errorf("decision_points[%d]: %w %d (also at index %d)", i, ErrDuplicateStep, dp.Step, prev)
		}
		idx[dp.Step] = i
	}
	s.byStep = idx
	return nil
}

// Point returns the decision point for a step number.
func (s *Scenario) Point(step int) (*DecisionPoint, bool) {
	if s == nil {
		return nil, false
	}
	if s.byStep == nil {
		// Unprepared scenario (e.g. a literal in a test): scan.
		for i := range s.DecisionPoints {
			if s.DecisionPoints[i].Step == step {
				return &s.DecisionPoints[i], true
			}
		}
		return nil, false
	}
	i, ok := s.byStep[step]
	if !ok {
		return nil, false
	}
	return &s.DecisionPoints[i], true
}

// TotalSteps is the number of decision points. Used for progress display only;
// it says nothing about how many steps a traversal will visit.
func (s *Scenario) TotalSteps() int {
	if s == nil {
		return 0
	}
	return len(s.DecisionPoints)
}

// Summary returns the list-view summary of the scenario.
func (s *Scenario) Summary() Summary {
	return Summary{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Category:           s.Category,
		Difficulty:         s.Difficulty,
		EstimatedTime:      s.EstimatedTime,
		DecisionPointCount: len(s.DecisionPoints),
	}
}

// Choice looks up a choice by id.
func (dp *DecisionPoint) Choice(id string) (Choice, bool) {
	for _, c := range dp.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}
