package api

import "github.com/ormasoftchile/dilemma/pkg/scenario"

// SubmitRequest is the body of POST /decisions/submit.
type SubmitRequest struct {
	ScenarioID string  `json:"scenario_id"`
	SessionID  *string `json:"session_id"` // null before the first submission
	Step       int     `json:"step"`
	ChoiceID   string  `json:"choice_id"`
	ChoiceText string  `json:"choice_text"`
}

// Analysis holds one textual assessment per ethical framework.
type Analysis struct {
	Utilitarian   string `json:"utilitarian"   yaml:"utilitarian"`
	Deontological string `json:"deontological" yaml:"deontological"`
	VirtueEthics  string `json:"virtue_ethics" yaml:"virtue_ethics"`
	CareEthics    string `json:"care_ethics"   yaml:"care_ethics"`
}

// Framework names one ethical lens and reads its assessment from an Analysis.
type Framework struct {
	Key  string
	Name string
	Get  func(Analysis) string
}

// Frameworks lists the ethical frameworks in display order.
var Frameworks = []Framework{
	{Key: "utilitarian", Name: "Utilitarian", Get: func(a Analysis) string { return a.Utilitarian }},
	{Key: "deontological", Name: "Deontological", Get: func(a Analysis) string { return a.Deontological }},
	{Key: "virtue_ethics", Name: "Virtue Ethics", Get: func(a Analysis) string { return a.VirtueEthics }},
	{Key: "care_ethics", Name: "Care Ethics", Get: func(a Analysis) string { return a.CareEthics }},
}

// DecisionResponse is the analysis service's answer to a submission.
// NextStep is present iff IsFinal is false.
type DecisionResponse struct {
	SessionID                string   `json:"session_id"`
	Analysis                 Analysis `json:"analysis"`
	Consequence              *string  `json:"consequence"`
	ConsequenceTriggerStep   *int     `json:"consequence_trigger_step"`
	ConsequenceTriggerChoice *string  `json:"consequence_trigger_choice"`
	IsFinal                  bool     `json:"is_final"`
	NextStep                 *int     `json:"next_step"`
}

// GenerateRequest is the body of POST /generate/generate.
type GenerateRequest struct {
	Topic             string `json:"topic"               validate:"required"`
	Category          string `json:"category"            validate:"required,oneof=business medical personal civic"`
	Difficulty        string `json:"difficulty"          validate:"required,oneof=beginner intermediate advanced"`
	NumDecisionPoints int    `json:"num_decision_points" validate:"min=2,max=5"`
	SaveToLibrary     bool   `json:"save_to_library"`
}

// GenerateResult is the authoring service's answer.
type GenerateResult struct {
	Scenario *scenario.Scenario `json:"scenario"`
	Saved    bool               `json:"saved"`
}

// NewGenerateRequest fills the defaults used by the authoring form.
func NewGenerateRequest(topic string) GenerateRequest {
	return GenerateRequest{
		Topic:             topic,
		Category:          "business",
		Difficulty:        "intermediate",
		NumDecisionPoints: 3,
		SaveToLibrary:     true,
	}
}
