package history

import (
	"fmt"

	"github.com/ormasoftchile/dilemma/pkg/api"
)

// Submission identifies the step and choice a response answers.
type Submission struct {
	Step       int
	ChoiceID   string
	ChoiceText string
}

// Bind builds the record for a newly arrived response. The trigger reference
// is copied as the service sent it; the service decides which earlier
// decision caused a consequence, so nothing is checked here.
func Bind(sub Submission, resp *api.DecisionResponse, sofar Log) Record {
	rec := Record{
		Seq:        sofar.Len() + 1,
		Step:       sub.Step,
		ChoiceID:   sub.ChoiceID,
		ChoiceText: sub.ChoiceText,
	}
	if resp == nil {
		return rec
	}
	rec.Analysis = resp.Analysis
	if resp.Consequence != nil {
		c := *resp.Consequence
		rec.Consequence = &c
	}
	if resp.ConsequenceTriggerStep != nil {
		t := &Trigger{Step: *resp.ConsequenceTriggerStep}
		if resp.ConsequenceTriggerChoice != nil {
			t.ChoiceID = *resp.ConsequenceTriggerChoice
		}
		rec.Trigger = t
	}
	return rec
}

// Status classifies a trigger lookup.
type Status int

const (
	NoTrigger Status = iota
	Resolved
	Unresolved
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	}
	return "none"
}

// Resolution is the display-time outcome of looking up a record's trigger.
type Resolution struct {
	Status  Status
	Trigger Trigger
	Origin  Record // valid when Status == Resolved
	Self    bool   // the consequence stems from the record's own choice
}

// Resolve locates the record a trigger points at. Only the record itself and
// records before it qualify. A missing origin is not an error.
func Resolve(r Record, log Log) Resolution {
	if r.Trigger == nil {
		return Resolution{Status: NoTrigger}
	}
	res := Resolution{Status: Unresolved, Trigger: *r.Trigger}
	origin, ok := log.Find(r.Trigger.Step, r.Trigger.ChoiceID, r.Seq)
	if !ok {
		return res
	}
	res.Status = Resolved
	res.Origin = origin
	res.Self = origin.Seq == r.Seq
	return res
}

// Describe renders the resolution for humans.
func (res Resolution) Describe() string {
	switch res.Status {
	case Resolved:
		if res.Self {
			return "this choice"
		}
		return fmt.Sprintf("your choice at step %d: %q", res.Origin.Step, res.Origin.ChoiceText)
	case Unresolved:
		return "a past choice (details unavailable)"
	}
	return ""
}
