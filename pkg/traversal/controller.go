package traversal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
	"github.com/ormasoftchile/dilemma/pkg/trace"
)

// DefaultAdvanceDelay is how long analysis stays on screen before the
// controller moves to the server-directed next step.
const DefaultAdvanceDelay = 3 * time.Second

// Submitter is the decision boundary: one request, one response.
type Submitter interface {
	SubmitDecision(ctx context.Context, req api.SubmitRequest) (*api.DecisionResponse, error)
}

// Fetcher loads a full scenario by id.
type Fetcher interface {
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
}

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config configures a Controller. Only Submitter is required.
type Config struct {
	ID           string // traversal id for logs and trace; generated when empty
	Submitter    Submitter
	Scheduler    Scheduler     // nil uses the wall clock
	AdvanceDelay time.Duration // negative means zero
	Logger       *zap.Logger
	Trace        *trace.Writer

	// OnChange is called after every state change, outside the controller
	// lock. It may call back into the controller.
	OnChange func(State)
}

// Controller owns one traversal. It is safe for concurrent use; at most one
// submission is in flight at any time.
type Controller struct {
	id        string
	submitter Submitter
	sched     Scheduler
	delay     time.Duration
	logger    *zap.Logger
	trace     *trace.Writer
	onChange  func(State)
	now       func() time.Time

	mu       sync.Mutex
	state    State
	timer    Timer
	disposed bool
	changed  chan struct{}
	started  time.Time
}

// New creates a controller in the Loading phase.
func New(cfg Config) *Controller {
	c := &Controller{
		id:        cfg.ID,
		submitter: cfg.Submitter,
		sched:     cfg.Scheduler,
		delay:     cfg.AdvanceDelay,
		logger:    cfg.Logger,
		trace:     cfg.Trace,
		onChange:  cfg.OnChange,
		now:       time.Now,
		state:     Initial(),
		changed:   make(chan struct{}),
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.sched == nil {
		c.sched = wallScheduler{}
	}
	if c.delay < 0 {
		c.delay = 0
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("traversal").With(zap.String("traversal_id", c.id))
	return c
}

// ID returns the traversal id.
func (c *Controller) ID() string { return c.id }

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches a scenario and starts a fresh traversal of it. A failed fetch
// leaves the controller untouched.
func (c *Controller) Load(ctx context.Context, f Fetcher, id string) error {
	if c.isDisposed() {
		return ErrDisposed
	}
	s, err := f.GetScenario(ctx, id)
	if err != nil {
		c.logger.Warn("scenario fetch failed", zap.String("scenario_id", id), zap.Error(err))
		return fmt.Errorf("load scenario %q: %w", id, err)
	}
	return c.Start(s)
}

// Start begins a fresh traversal of an already fetched scenario. Any
// outstanding submission becomes stale.
func (c *Controller) Start(s *scenario.Scenario) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	next, err := Transition(c.state, Loaded{Scenario: s})
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.stopTimerLocked()
	c.state = next
	c.started = c.now()
	c.trace.EmitStart(s.ID, s.Title, s.TotalSteps())
	c.logger.Info("traversal started", zap.String("scenario_id", s.ID), zap.Int("total_steps", s.TotalSteps()))
	snap := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SubmitChoice submits a choice at the current step and applies the
// response. It returns the new decision record on success. While a
// submission is in flight or the analysis is on screen it returns ErrBusy
// without issuing a request. A response superseded by Restart, Start or
// Dispose is discarded and reported as ErrStale.
func (c *Controller) SubmitChoice(ctx context.Context, choiceID, choiceText string) (*history.Record, error) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	next, err := Transition(c.state, Submit{ChoiceID: choiceID, ChoiceText: choiceText})
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.state = next
	p := next.Pending
	req := api.SubmitRequest{
		ScenarioID: next.Scenario.ID,
		SessionID:  next.Session.Ptr(),
		Step:       p.Step,
		ChoiceID:   p.ChoiceID,
		ChoiceText: p.ChoiceText,
	}
	c.trace.EmitSubmitted(p.Gen, p.Step, p.ChoiceID, req.SessionID)
	c.logger.Debug("submitting decision", zap.Uint64("gen", p.Gen), zap.Int("step", p.Step), zap.String("choice_id", p.ChoiceID))
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)

	resp, submitErr := c.submitter.SubmitDecision(ctx, req)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		c.logger.Debug("response after dispose discarded", zap.Uint64("gen", p.Gen))
		return nil, ErrStale
	}
	if submitErr != nil {
		return nil, c.failLocked(p, submitErr)
	}
	next, err = Transition(c.state, Responded{Gen: p.Gen, Response: resp})
	if errors.Is(err, ErrStale) {
		c.discardLocked(p.Gen, "superseded")
		return nil, ErrStale
	}
	if err != nil {
		return nil, c.failLocked(p, err)
	}
	c.state = next
	rec, _ := next.History.Last()
	token, _ := next.Session.Token()
	c.trace.EmitRecorded(rec.Seq, rec.Step, rec.ChoiceID, token, rec.HasConsequence(), triggerData(rec.Trigger))
	c.logger.Info("decision recorded",
		zap.Int("seq", rec.Seq),
		zap.Int("step", rec.Step),
		zap.String("choice_id", rec.ChoiceID),
		zap.Bool("final", next.Complete))
	if next.Phase == Complete {
		c.trace.EmitComplete(next.History.Len(), token, c.now().Sub(c.started))
	} else {
		c.scheduleAdvanceLocked(next.Gen)
	}
	snap = c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
	return &rec, nil
}

// failLocked reverts the pending submission and unlocks c.
func (c *Controller) failLocked(p Pending, cause error) error {
	next, err := Transition(c.state, Failed{Gen: p.Gen, Err: cause})
	if err != nil {
		c.discardLocked(p.Gen, "failure for superseded request")
		return ErrStale
	}
	c.state = next
	c.trace.EmitFailed(p.Gen, p.Step, cause)
	c.logger.Warn("submission failed", zap.Uint64("gen", p.Gen), zap.Int("step", p.Step), zap.Error(cause))
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
	return fmt.Errorf("submit step %d: %w", p.Step, cause)
}

// discardLocked logs a stale response and unlocks c.
func (c *Controller) discardLocked(gen uint64, reason string) {
	c.trace.EmitDiscarded(gen, reason)
	c.mu.Unlock()
	c.logger.Debug("stale response discarded", zap.Uint64("gen", gen), zap.String("reason", reason))
}

func (c *Controller) scheduleAdvanceLocked(gen uint64) {
	c.stopTimerLocked()
	c.timer = c.sched.AfterFunc(c.delay, func() { c.advance(gen) })
}

func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	from := c.state.Step
	next, err := Transition(c.state, Advance{Gen: gen})
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("advance tick ignored", zap.Uint64("gen", gen), zap.Error(err))
		return
	}
	c.state = next
	c.timer = nil
	c.trace.EmitAdvanced(from, next.Step)
	c.logger.Debug("advanced", zap.Int("from", from), zap.Int("to", next.Step))
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Restart clears session and history and returns to step 1. It performs no
// I/O and always succeeds; an in-flight response will be discarded.
func (c *Controller) Restart() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	dropped := c.state.History.Len()
	c.state, _ = Transition(c.state, Restart{})
	c.started = c.now()
	c.trace.EmitRestart(dropped)
	c.logger.Info("traversal restarted", zap.Int("dropped_decisions", dropped))
	snap := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Dispose tears the controller down. The pending advance is cancelled and
// any later response is discarded. Dispose is idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.stopTimerLocked()
	c.publishLocked()
}

func (c *Controller) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// WaitSettled blocks until no submission or advance is pending, then
// returns the settled state.
func (c *Controller) WaitSettled(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		st, ch, disposed := c.state, c.changed, c.disposed
		c.mu.Unlock()
		if disposed {
			return st, ErrDisposed
		}
		if st.Settled() {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// publishLocked wakes waiters and returns the state to hand to OnChange.
func (c *Controller) publishLocked() State {
	close(c.changed)
	c.changed = make(chan struct{})
	return c.state
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func triggerData(t *history.Trigger) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{"step": t.Step, "choice_id": t.ChoiceID}
}
