package history

import (
	"testing"

	"github.com/ormasoftchile/dilemma/pkg/api"
)

func strp(s string) *string { return &s }
func intp(i int) *int { return &i }

func TestLog_AppendDoesNotAlias(t *testing.T) {
	var base Log
	base = base.Append(Record{Seq: 1, Step: 1, ChoiceID: "a"})

	left := base.Append(Record{Seq: 2, Step: 2, ChoiceID: "left"})
	right := base.Append(Record{Seq: 2, Step: 2, ChoiceID: "right"})

	if base.Len() != 1 {
		t.Errorf("base.Len = %d, want 1", base.Len())
	}
	if left.At(1).ChoiceID != "left" || right.At(1).ChoiceID != "right" {
		t.Errorf("branches aliased: left=%q right=%q", left.At(1).ChoiceID, right.At(1).ChoiceID)
	}
}

func TestLog_RecordsIsCopy(t *testing.T) {
	l := Log{}.Append(Record{Step: 1, ChoiceID: "a"})
	recs := l.Records()
	recs[0].ChoiceID = "mutated"
	if l.At(0).ChoiceID != "a" {
		t.Error("Records must return a copy")
	}
}

func TestLog_Last(t *testing.T) {
	var l Log
	if _, ok := l.Last(); ok {
		t.Error("empty log has no last record")
	}
	l = l.Append(Record{Step: 1}).Append(Record{Step: 3})
	if r, ok := l.Last(); !ok || r.Step != 3 {
		t.Errorf("Last = %+v, %v", r, ok)
	}
}

func TestBind(t *testing.T) {
	sofar := Log{}.Append(Record{Seq: 1, Step: 1, ChoiceID: "a", ChoiceText: "Lie"})
	resp := &api.DecisionResponse{
		SessionID:                "s1",
		Analysis:                 api.Analysis{Utilitarian: "u"},
		Consequence:              strp("Earlier choice caused X"),
		ConsequenceTriggerStep:   intp(1),
		ConsequenceTriggerChoice: strp("a"),
		IsFinal:                  true,
	}
	rec := Bind(Submission{Step: 2, ChoiceID: "b", ChoiceText: "Confess"}, resp, sofar)

	if rec.Seq != 2 || rec.Step != 2 || rec.ChoiceID != "b" || rec.ChoiceText != "Confess" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Analysis.Utilitarian != "u" {
		t.Errorf("analysis not copied")
	}
	if !rec.HasConsequence() || *rec.Consequence != "Earlier choice caused X" {
		t.Errorf("consequence = %v", rec.Consequence)
	}
	if rec.Trigger == nil || rec.Trigger.Step != 1 || rec.Trigger.ChoiceID != "a" {
		t.Errorf("trigger = %+v", rec.Trigger)
	}

	// The record owns its consequence text.
	*resp.Consequence = "changed"
	if *rec.Consequence != "Earlier choice caused X" {
		t.Error("record must not share the response's consequence pointer")
	}
}

func TestBind_NoTrigger(t *testing.T) {
	rec := Bind(Submission{Step: 1, ChoiceID: "a"}, &api.DecisionResponse{}, Log{})
	if rec.Trigger != nil || rec.Consequence != nil || rec.HasConsequence() {
		t.Errorf("record = %+v", rec)
	}
	if Resolve(rec, Log{}.Append(rec)).Status != NoTrigger {
		t.Error("record without trigger should resolve to NoTrigger")
	}
}

func TestResolve(t *testing.T) {
	first := Record{Seq: 1, Step: 1, ChoiceID: "a", ChoiceText: "Lie"}
	log := Log{}.Append(first)

	tests := []struct {
		name    string
		trigger *Trigger
		status  Status
		self    bool
		desc    string
	}{
		{"earlier step", &Trigger{Step: 1, ChoiceID: "a"}, Resolved, false, `your choice at step 1: "Lie"`},
		{"any choice at step", &Trigger{Step: 1}, Resolved, false, `your choice at step 1: "Lie"`},
		{"self", &Trigger{Step: 4, ChoiceID: "c"}, Resolved, true, "this choice"},
		{"wrong choice", &Trigger{Step: 1, ChoiceID: "b"}, Unresolved, false, "a past choice (details unavailable)"},
		{"step not in history", &Trigger{Step: 9, ChoiceID: "a"}, Unresolved, false, "a past choice (details unavailable)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{Seq: 2, Step: 4, ChoiceID: "c", Trigger: tt.trigger}
			res := Resolve(rec, log.Append(rec))
			if res.Status != tt.status {
				t.Fatalf("status = %v, want %v", res.Status, tt.status)
			}
			if res.Self != tt.self {
				t.Errorf("self = %v, want %v", res.Self, tt.self)
			}
			if got := res.Describe(); got != tt.desc {
				t.Errorf("Describe = %q, want %q", got, tt.desc)
			}
		})
	}
}

func TestResolve_IgnoresLaterRecords(t *testing.T) {
	early := Record{Seq: 1, Step: 1, ChoiceID: "a", Trigger: &Trigger{Step: 2, ChoiceID: "b"}}
	later := Record{Seq: 2, Step: 2, ChoiceID: "b"}
	log := Log{}.Append(early).Append(later)
	if res := Resolve(early, log); res.Status != Unresolved {
		t.Errorf("trigger must not resolve to a later record, got %v", res.Status)
	}
}
