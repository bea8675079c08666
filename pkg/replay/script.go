// Package replay serves scenarios and decision responses from a recorded
// script, standing in for the remote analysis service. Replay is
// fail-closed: a submission with no recorded response is an error.
package replay

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

// AnyChoice matches every choice at a step.
const AnyChoice = "*"

// Script is a replay file: one scenario and the responses the service
// would give for each (step, choice) pair.
type Script struct {
	Scenario  *scenario.Scenario `yaml:"scenario"`
	Responses []Response         `yaml:"responses"`
}

// Response is one recorded answer.
type Response struct {
	Step        int          `yaml:"step"`
	Choice      string       `yaml:"choice"`
	Analysis    api.Analysis `yaml:"analysis"`
	Consequence string       `yaml:"consequence,omitempty"`
	Trigger     *Trigger     `yaml:"trigger,omitempty"`
	Final       bool         `yaml:"final,omitempty"`

	// Next is an expression yielding the next step, evaluated against
	// step, choice and path (the "step:choice" pairs chosen so far).
	Next string `yaml:"next,omitempty"`

	program *vm.Program
}

// Trigger names the earlier decision a recorded consequence stems from.
type Trigger struct {
	Step   int    `yaml:"step"`
	Choice string `yaml:"choice,omitempty"`
}

// LoadScript reads and parses a replay script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses replay script YAML and compiles its routing
// expressions.
func ParseScript(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse replay script: %w", err)
	}
	if s.Scenario == nil {
		return nil, fmt.Errorf("replay script must contain a scenario")
	}
	if len(s.Responses) == 0 {
		return nil, fmt.Errorf("replay script must have at least one response")
	}
	for _, e := range scenario.Validate(s.Scenario) {
		if e.Severity == "error" {
			return nil, fmt.Errorf("replay scenario: %s", e.Error())
		}
	}
	if err := s.Scenario.Prepare(); err != nil {
		return nil, fmt.Errorf("replay scenario: %w", err)
	}

	for i := range s.Responses {
		r := &s.Responses[i]
		dp, ok := s.Scenario.Point(r.Step)
		if !ok {
			return nil, fmt.Errorf("responses[%d]: step %d not in scenario", i, r.Step)
		}
		if r.Choice != AnyChoice {
			if _, ok := dp.Choice(r.Choice); !ok {
				return nil, fmt.Errorf("responses[%d]: choice %q not offered at step %d", i, r.Choice, r.Step)
			}
		}
		if r.Final {
			if r.Next != "" {
				return nil, fmt.Errorf("responses[%d]: final response must not route to a next step", i)
			}
			continue
		}
		if r.Next == "" {
			return nil, fmt.Errorf("responses[%d]: non-final response needs next", i)
		}
		program, err := expr.Compile(r.Next, expr.Env(routeEnv(0, "", nil)), expr.AsInt())
		if err != nil {
			return nil, fmt.Errorf("responses[%d]: compile next %q: %w", i, r.Next, err)
		}
		r.program = program
	}
	return &s, nil
}

// match returns the recorded response for (step, choice). An exact choice
// wins over AnyChoice.
func (s *Script) match(step int, choice string) (*Response, bool) {
	var wildcard *Response
	for i := range s.Responses {
		r := &s.Responses[i]
		if r.Step != step {
			continue
		}
		if r.Choice == choice {
			return r, true
		}
		if r.Choice == AnyChoice && wildcard == nil {
			wildcard = r
		}
	}
	return wildcard, wildcard != nil
}

func routeEnv(step int, choice string, path []string) map[string]any {
	if path == nil {
		path = []string{}
	}
	return map[string]any{
		"step":   step,
		"choice": choice,
		"path":   path,
	}
}

// route evaluates r.Next for the submission.
func (r *Response) route(step int, choice string, path []string) (int, error) {
	out, err := expr.Run(r.program, routeEnv(step, choice, path))
	if err != nil {
		return 0, fmt.Errorf("eval next %q: %w", r.Next, err)
	}
	next, ok := out.(int)
	if !ok {
		return 0, fmt.Errorf("next %q did not return int (got %T: %v)", r.Next, out, out)
	}
	return next, nil
}

func pathEntry(step int, choice string) string {
	return strconv.Itoa(step) + ":" + choice
}
