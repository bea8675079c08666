package scenario

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateFile_Valid(t *testing.T) {
	s, errs := ValidateFile("testdata/layoffs.yaml")
	if errs != nil {
		for _, e := range errs {
			t.Errorf("unexpected: %v", e)
		}
		t.FailNow()
	}
	if _, ok := s.Point(4); !ok {
		t.Error("validated scenario should be prepared with step 4")
	}
}

func TestValidateFile_Missing(t *testing.T) {
	_, errs := ValidateFile("testdata/nope.yaml")
	if len(errs) != 1 || errs[0].Phase != "structural" {
		t.Fatalf("errs = %v, want one structural error", errs)
	}
}

func TestValidateFile_DomainErrors(t *testing.T) {
	_, errs := ValidateFile("testdata/invalid.yaml")
	if !HasErrors(errs) {
		t.Fatal("expected errors")
	}

	var msgs []string
	for _, e := range errs {
		if e.Phase == "domain" {
			msgs = append(msgs, e.Message)
		}
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{
		"duplicate choice id \"a\"",
		"step 2 already used",
		"no decision point for step 1",
		"single choice",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing domain finding %q in:\n%s", want, joined)
		}
	}
}

func TestValidate_SemanticEnum(t *testing.T) {
	s := sparseScenario()
	s.Category = "sports"
	errs := Validate(s)
	found := false
	for _, e := range errs {
		if e.Phase == "semantic" && strings.Contains(e.Path, "category") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected semantic error at category, got %v", errs)
	}
}

func TestValidate_SemanticEmptyChoices(t *testing.T) {
	s := sparseScenario()
	s.DecisionPoints[1].Choices = []Choice{}
	errs := Validate(s)
	if !HasErrors(errs) {
		t.Fatal("expected error for decision point without choices")
	}
}

func TestHasErrors_WarningsOnly(t *testing.T) {
	errs := []*ValidationError{{Phase: "domain", Severity: "warning"}}
	if HasErrors(errs) {
		t.Error("warnings alone should not count as errors")
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc["$id"] != schemaID {
		t.Errorf("$id = %v", doc["$id"])
	}
	if !strings.Contains(string(data), "decision_points") {
		t.Error("schema should describe decision_points")
	}
}
