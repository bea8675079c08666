package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

// ValidateFile runs the three validation phases on a scenario file:
// structural (strict YAML decode), semantic (JSON Schema) and domain rules.
// On success the returned scenario is prepared.
func ValidateFile(path string) (*Scenario, []*ValidationError) {
	s, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	errs := Validate(s)
	if HasErrors(errs) {
		return s, errs
	}
	if err := s.Prepare(); err != nil {
		errs = append(errs, &ValidationError{Phase: "domain", Message: err.Error(), Severity: "error"})
		return s, errs
	}
	if len(errs) > 0 {
		return s, errs
	}
	return s, nil
}

// Validate runs the semantic and domain phases on a decoded scenario.
func Validate(s *Scenario) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateSemantic(s)...)
	errs = append(errs, ValidateDomain(s)...)
	return errs
}

func semanticError(format string, args ...any) []*ValidationError {
	return []*ValidationError{{
		Phase:    "semantic",
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}}
}

// validateSemantic validates the scenario against the generated JSON Schema.
func validateSemantic(s *Scenario) []*ValidationError {
	data, err := json.Marshal(s)
	if err != nil {
		return semanticError("marshal for schema validation: %v", err)
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return semanticError("generate schema: %v", err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return semanticError("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("scenario-v1.json", schemaDoc); err != nil {
		return semanticError("add schema resource: %v", err)
	}
	sch, err := c.Compile("scenario-v1.json")
	if err != nil {
		return semanticError("compile schema: %v", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return semanticError("unmarshal document: %v", err)
	}

	if err := sch.Validate(doc); err != nil {
		var ve *sjsonschema.ValidationError
		if !errors.As(err, &ve) {
			return semanticError("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateDomain checks the rules the schema cannot express: unique step
// numbers, an entry step 1, and unique choice ids per decision point.
func ValidateDomain(s *Scenario) []*ValidationError {
	var errs []*ValidationError
	add := func(sev, path, format string, args ...any) {
		errs = append(errs, &ValidationError{
			Phase:    "domain",
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	if strings.TrimSpace(s.ID) == "" {
		add("error", "id", "scenario id must not be empty")
	}

	seen := make(map[int]int)
	hasEntry := false
	for i, dp := range s.DecisionPoints {
		path := fmt.Sprintf("decision_points[%d]", i)
		if dp.Step < 1 {
			add("error", path+".step", "step must be >= 1, got %d", dp.Step)
		}
		if prev, ok := seen[dp.Step]; ok {
			add("error", path+".step", "step %d already used by decision_points[%d]", dp.Step, prev)
		} else {
			seen[dp.Step] = i
		}
		if dp.Step == 1 {
			hasEntry = true
		}

		ids := make(map[string]bool)
		for j, c := range dp.Choices {
			cpath := fmt.Sprintf("%s.choices[%d].id", path, j)
			if strings.TrimSpace(c.ID) == "" {
				add("error", cpath, "choice id must not be empty")
				continue
			}
			if ids[c.ID] {
				add("error", cpath, "duplicate choice id %q at step %d", c.ID, dp.Step)
			}
			ids[c.ID] = true
		}
		if len(dp.Choices) == 1 {
			add("warning", path+".choices", "step %d offers a single choice; it is not a dilemma", dp.Step)
		}
	}
	if len(s.DecisionPoints) > 0 && !hasEntry {
		add("error", "decision_points", "no decision point for step 1; traversal always starts at step 1")
	}
	return errs
}
