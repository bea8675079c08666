// Package traversal drives one user through a scenario's decision graph.
//
// Every mutation is a pure Transition(state, event) returning the next state.
// Controller owns one State, performs the network round-trip between the
// Submit and Responded/Failed events, and owns the auto-advance timer.
package traversal

import (
	"errors"
	"fmt"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
	"github.com/ormasoftchile/dilemma/pkg/session"
)

var (
	ErrNotLoaded       = errors.New("no scenario loaded")
	ErrBusy            = errors.New("a submission is already in flight")
	ErrComplete        = errors.New("traversal is complete")
	ErrUnknownChoice   = errors.New("choice not offered at current step")
	ErrStale           = errors.New("stale response")
	ErrDisposed        = errors.New("controller disposed")
	ErrProtocol        = errors.New("response violates protocol")
	ErrInvalidScenario = errors.New("scenario cannot be traversed")
)

// Phase is the traversal state machine position.
type Phase int

const (
	Loading Phase = iota
	AwaitingChoice
	Submitting
	Transitioning
	Complete
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case AwaitingChoice:
		return "awaiting_choice"
	case Submitting:
		return "submitting"
	case Transitioning:
		return "transitioning"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Pending describes the submission in flight. Valid only in Submitting.
type Pending struct {
	Gen        uint64
	Step       int
	ChoiceID   string
	ChoiceText string
}

// State is a snapshot of one traversal. State values are safe to share:
// the scenario is read-only and History never aliases on append.
type State struct {
	Scenario *scenario.Scenario
	Phase    Phase
	Step     int
	Complete bool
	Session  session.Tracker
	History  history.Log
	Pending  Pending
	NextStep int // server-directed step, valid in Transitioning

	// Gen identifies the latest submission or restart. Responses and
	// advance ticks carrying a different generation are stale.
	Gen uint64
}

// Initial is the state before any scenario is loaded.
func Initial() State {
	return State{Phase: Loading}
}

// InFlight reports whether a submission is outstanding.
func (s State) InFlight() bool { return s.Phase == Submitting }

// AcceptsChoice reports whether choice input is enabled.
func (s State) AcceptsChoice() bool { return s.Phase == AwaitingChoice }

// Settled reports whether nothing is pending: no request and no advance.
func (s State) Settled() bool {
	return s.Phase == AwaitingChoice || s.Phase == Complete
}

// Point returns the decision point for the current step.
func (s State) Point() (*scenario.DecisionPoint, bool) {
	return s.Scenario.Point(s.Step)
}

// Event is an input to Transition.
type Event interface{ event() }

// Loaded starts a fresh traversal of a fetched scenario.
type Loaded struct{ Scenario *scenario.Scenario }

// Submit selects a choice at the current step. An empty ChoiceText is
// filled from the scenario.
type Submit struct {
	ChoiceID   string
	ChoiceText string
}

// Responded delivers the service's answer to submission Gen.
type Responded struct {
	Gen      uint64
	Response *api.DecisionResponse
}

// Failed reports that submission Gen did not produce a usable response.
type Failed struct {
	Gen uint64
	Err error
}

// Advance fires when the post-response delay of submission Gen elapses.
type Advance struct{ Gen uint64 }

// Restart clears session and history and returns to step 1.
type Restart struct{}

func (Loaded) event()    {}
func (Submit) event()    {}
func (Responded) event() {}
func (Failed) event()    {}
func (Advance) event()   {}
func (Restart) event()   {}

// Transition applies ev to s. On error the returned state equals s.
func Transition(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case Loaded:
		return loaded(s, ev)
	case Submit:
		return submit(s, ev)
	case Responded:
		return responded(s, ev)
	case Failed:
		if s.Phase != Submitting || s.Pending.Gen != ev.Gen {
			return s, ErrStale
		}
		s.Phase = AwaitingChoice
		s.Pending = Pending{}
		return s, nil
	case Advance:
		if s.Phase != Transitioning || s.Gen != ev.Gen {
			return s, ErrStale
		}
		s.Step = s.NextStep
		s.NextStep = 0
		s.Phase = AwaitingChoice
		return s, nil
	case Restart:
		return restart(s), nil
	}
	return s, fmt.Errorf("unknown event %T", ev)
}

func loaded(s State, ev Loaded) (State, error) {
	if ev.Scenario == nil {
		return s, ErrNotLoaded
	}
	if _, ok := ev.Scenario.Point(1); !ok {
		return s, fmt.Errorf("%w: %q has no decision point for step 1", ErrInvalidScenario, ev.Scenario.ID)
	}
	return restart(State{Scenario: ev.Scenario, Gen: s.Gen}), nil
}

func submit(s State, ev Submit) (State, error) {
	switch s.Phase {
	case Loading:
		return s, ErrNotLoaded
	case Submitting, Transitioning:
		return s, ErrBusy
	case Complete:
		return s, ErrComplete
	}
	dp, ok := s.Point()
	if !ok {
		return s, fmt.Errorf("%w: no decision point for step %d", ErrProtocol, s.Step)
	}
	c, ok := dp.Choice(ev.ChoiceID)
	if !ok {
		return s, fmt.Errorf("%w: %q at step %d", ErrUnknownChoice, ev.ChoiceID, s.Step)
	}
	text := ev.ChoiceText
	if text == "" {
		text = c.Text
	}
	s.Gen++
	s.Phase = Submitting
	s.Pending = Pending{Gen: s.Gen, Step: s.Step, ChoiceID: c.ID, ChoiceText: text}
	return s, nil
}

func responded(s State, ev Responded) (State, error) {
	if s.Phase != Submitting || s.Pending.Gen != ev.Gen {
		return s, ErrStale
	}
	resp := ev.Response
	if resp == nil {
		return s, fmt.Errorf("%w: empty response", ErrProtocol)
	}
	tracker, err := s.Session.Adopt(resp.SessionID)
	if err != nil {
		return s, err
	}
	if !resp.IsFinal {
		if resp.NextStep == nil {
			return s, fmt.Errorf("%w: next_step missing on non-final response", ErrProtocol)
		}
		if _, ok := s.Scenario.Point(*resp.NextStep); !ok {
			return s, fmt.Errorf("%w: next_step %d not in scenario", ErrProtocol, *resp.NextStep)
		}
	}

	p := s.Pending
	rec := history.Bind(history.Submission{Step: p.Step, ChoiceID: p.ChoiceID, ChoiceText: p.ChoiceText}, resp, s.History)
	s.History = s.History.Append(rec)
	s.Session = tracker
	s.Pending = Pending{}
	if resp.IsFinal {
		s.Phase = Complete
		s.Complete = true
		return s, nil
	}
	s.Phase = Transitioning
	s.NextStep = *resp.NextStep
	return s, nil
}

func restart(s State) State {
	next := State{
		Scenario: s.Scenario,
		Phase:    Loading,
		Gen:      s.Gen + 1,
	}
	if s.Scenario != nil {
		next.Phase = AwaitingChoice
		next.Step = 1
	}
	return next
}
