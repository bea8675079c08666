package scenario

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

//go:generate go run ../../scripts/gen-schema.go ../../schemas/scenario-v1.json

const schemaID = "https://github.com/ormasoftchile/dilemma/schemas/scenario-v1.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// Scenario struct.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Scenario{})
	s.ID = schemaID
	s.Title = "Dilemma Scenario v1"
	s.Description = "Schema for branching ethical-dilemma scenario documents"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
