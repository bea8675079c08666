// Package history implements the decision history of one traversal: an
// append-only log of completed steps, and the binder that attaches the
// service's delayed-consequence trigger references to each new record.
package history

import "github.com/ormasoftchile/dilemma/pkg/api"

// Trigger references the earlier decision a consequence originates from.
// An empty ChoiceID matches any choice made at Step.
type Trigger struct {
	Step     int    `json:"step"`
	ChoiceID string `json:"choice_id,omitempty"`
}

// Record is one completed step. Records are never mutated after creation.
type Record struct {
	Seq         int          `json:"seq"` // 1-based position in the log
	Step        int          `json:"step"`
	ChoiceID    string       `json:"choice_id"`
	ChoiceText  string       `json:"choice_text"`
	Analysis    api.Analysis `json:"analysis"`
	Consequence *string      `json:"consequence,omitempty"`
	Trigger     *Trigger     `json:"trigger,omitempty"`
}

// HasConsequence reports whether the record carries consequence text.
func (r Record) HasConsequence() bool {
	return r.Consequence != nil && *r.Consequence != ""
}

// Log is an append-only sequence of records. The zero value is empty.
// Append never writes into a backing array another Log can observe, so a Log
// value can be shared freely as a read-only snapshot.
type Log struct {
	records []Record
}

// Append returns a new log with r at the end.
func (l Log) Append(r Record) Log {
	n := len(l.records)
	return Log{records: append(l.records[:n:n], r)}
}

// Len is the number of completed steps.
func (l Log) Len() int { return len(l.records) }

// At returns the i-th record (0-based).
func (l Log) At(i int) Record { return l.records[i] }

// Last returns the most recent record.
func (l Log) Last() (Record, bool) {
	if len(l.records) == 0 {
		return Record{}, false
	}
	return l.records[len(l.records)-1], true
}

// Records returns a copy of the records in append order.
func (l Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Find returns the most recent record at step whose choice matches choiceID
// (any choice when choiceID is empty), considering only the first upTo records.
func (l Log) Find(step int, choiceID string, upTo int) (Record, bool) {
	if upTo > len(l.records) {
		upTo = len(l.records)
	}
	for i := upTo - 1; i >= 0; i-- {
		r := l.records[i]
		if r.Step == step && (choiceID == "" || r.ChoiceID == choiceID) {
			return r, true
		}
	}
	return Record{}, false
}
