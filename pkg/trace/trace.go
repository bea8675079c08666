// Package trace writes the append-only JSONL audit trail of a traversal.
// The trail is diagnostic output only; nothing reads it back to restore state.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType enumerates traversal trace event types.
type EventType string

const (
	EventTraversalStart    EventType = "traversal_start"
	EventDecisionSubmitted EventType = "decision_submitted"
	EventDecisionRecorded  EventType = "decision_recorded"
	EventSubmissionFailed  EventType = "submission_failed"
	EventResponseDiscarded EventType = "response_discarded"
	EventStepAdvanced      EventType = "step_advanced"
	EventTraversalComplete EventType = "traversal_complete"
	EventTraversalRestart  EventType = "traversal_restart"
)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	TraversalID string         `json:"traversal_id"`
	Data        map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream.
// A nil *Writer discards everything, so callers need not check.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	c     io.Closer
	id    string
	enc   *json.Encoder
	clock func() time.Time
}

// NewWriter creates a trace writer on w for the traversal id.
func NewWriter(w io.Writer, traversalID string) *Writer {
	tw := &Writer{
		w:     w,
		id:    traversalID,
		enc:   json.NewEncoder(w),
		clock: func() time.Time { return time.Now().UTC() },
	}
	if c, ok := w.(io.Closer); ok {
		tw.c = c
	}
	return tw
}

// NewFileWriter creates a trace writer that appends to a JSONL file.
func NewFileWriter(path, traversalID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return NewWriter(f, traversalID), nil
}

// Close closes the underlying file, if any.
func (tw *Writer) Close() error {
	if tw == nil || tw.c == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.c.Close()
}

// Emit writes a single trace event.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.enc.Encode(Event{
		Type:        eventType,
		Timestamp:   tw.clock(),
		TraversalID: tw.id,
		Data:        data,
	})
}

// EmitStart records the scenario a traversal runs against.
func (tw *Writer) EmitStart(scenarioID, title string, totalSteps int) error {
	return tw.Emit(EventTraversalStart, map[string]any{
		"scenario_id": scenarioID,
		"title":       title,
		"total_steps": totalSteps,
	})
}

// EmitSubmitted records an outgoing submission.
func (tw *Writer) EmitSubmitted(gen uint64, step int, choiceID string, sessionID *string) error {
	data := map[string]any{
		"generation": gen,
		"step":       step,
		"choice_id":  choiceID,
	}
	if sessionID != nil {
		data["session_id"] = *sessionID
	}
	return tw.Emit(EventDecisionSubmitted, data)
}

// EmitRecorded records an applied response. trigger is nil when the
// response carries no consequence trigger.
func (tw *Writer) EmitRecorded(seq, step int, choiceID, sessionID string, hasConsequence bool, trigger map[string]any) error {
	data := map[string]any{
		"seq":             seq,
		"step":            step,
		"choice_id":       choiceID,
		"session_id":      sessionID,
		"has_consequence": hasConsequence,
	}
	if trigger != nil {
		data["trigger"] = trigger
	}
	return tw.Emit(EventDecisionRecorded, data)
}

// EmitFailed records a failed submission.
func (tw *Writer) EmitFailed(gen uint64, step int, err error) error {
	return tw.Emit(EventSubmissionFailed, map[string]any{
		"generation": gen,
		"step":       step,
		"error":      err.Error(),
	})
}

// EmitDiscarded records a response that no longer matched the traversal.
func (tw *Writer) EmitDiscarded(gen uint64, reason string) error {
	return tw.Emit(EventResponseDiscarded, map[string]any{
		"generation": gen,
		"reason":     reason,
	})
}

// EmitAdvanced records the server-directed move to the next step.
func (tw *Writer) EmitAdvanced(from, to int) error {
	return tw.Emit(EventStepAdvanced, map[string]any{
		"from": from,
		"to":   to,
	})
}

// EmitComplete records the final decision.
func (tw *Writer) EmitComplete(decisions int, sessionID string, duration time.Duration) error {
	return tw.Emit(EventTraversalComplete, map[string]any{
		"decisions":  decisions,
		"session_id": sessionID,
		"duration":   duration.String(),
	})
}

// EmitRestart records a restart and how much history it dropped.
func (tw *Writer) EmitRestart(dropped int) error {
	return tw.Emit(EventTraversalRestart, map[string]any{
		"dropped_decisions": dropped,
	})
}
