package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
	"github.com/ormasoftchile/dilemma/pkg/trace"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

// Catalog lists and fetches scenarios.
type Catalog interface {
	ListScenarios(ctx context.Context) ([]scenario.Summary, error)
	traversal.Fetcher
}

// Generator authors new scenarios. Optional.
type Generator interface {
	GenerateScenario(ctx context.Context, req api.GenerateRequest) (*api.GenerateResult, error)
}

// --- Tea messages ---

// scenariosMsg carries the result of listing scenarios.
type scenariosMsg struct {
	list []scenario.Summary
	err  error
}

// loadedMsg is sent once a traversal controller has its scenario.
type loadedMsg struct {
	ctrl *traversal.Controller
	err  error
}

// stateMsg signals that the controller state changed.
type stateMsg struct{}

// submittedMsg is sent when SubmitChoice returns.
type submittedMsg struct {
	ctrl *traversal.Controller
	rec  *history.Record
	err  error
}

// generatedMsg carries an authored scenario.
type generatedMsg struct {
	res *api.GenerateResult
	err error
}

type screen int

const (
	screenList screen = iota
	screenTraversal
	screenGenerate
)

// Config holds what the TUI needs to run.
type Config struct {
	Catalog      Catalog
	Submitter    traversal.Submitter
	Generator    Generator     // nil hides the authoring form
	ScenarioID   string        // open this scenario directly instead of the list
	AdvanceDelay time.Duration // zero advances immediately
	Logger       *zap.Logger
	Trace        *trace.Writer
	Scheduler    traversal.Scheduler // nil uses the wall clock
}

// Model is the top-level Bubble Tea model.
type Model struct {
	cfg     Config
	ctx     context.Context
	screen  screen
	spinner spinner.Model
	width   int
	height  int

	// Scenario list
	summaries []scenario.Summary
	cursor    int
	loading   bool
	listErr   string

	// Traversal
	ctrl         *traversal.Controller
	signal       chan struct{}
	snap         traversal.State
	choiceCursor int
	submitErr    string

	// Authoring
	form generateForm
}

// NewModel builds the initial model.
func NewModel(ctx context.Context, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		cfg:     cfg,
		ctx:     ctx,
		spinner: sp,
		signal:  make(chan struct{}, 1),
		loading: true,
		form:    newGenerateForm(),
		width:   80,
		height:  24,
	}
	if cfg.ScenarioID != "" {
		m.screen = screenTraversal
	}
	return m
}

// Run starts the TUI and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	m := NewModel(ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.ctrl != nil {
		fm.ctrl.Dispose()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the spinner, the state listener and the first fetch.
func (m Model) Init() tea.Cmd {
	first := m.listScenarios()
	if m.cfg.ScenarioID != "" {
		first = m.startTraversal(m.cfg.ScenarioID)
	}
	return tea.Batch(m.spinner.Tick, m.waitForState(), first)
}

func (m Model) listScenarios() tea.Cmd {
	return func() tea.Msg {
		list, err := m.cfg.Catalog.ListScenarios(m.ctx)
		return scenariosMsg{list: list, err: err}
	}
}

// startTraversal creates a controller and loads the scenario into it.
// Every state change pings m.signal; the buffer of one coalesces bursts.
func (m Model) startTraversal(id string) tea.Cmd {
	signal := m.signal
	ctrl := traversal.New(traversal.Config{
		Submitter:    m.cfg.Submitter,
		Scheduler:    m.cfg.Scheduler,
		AdvanceDelay: m.cfg.AdvanceDelay,
		Logger:       m.cfg.Logger,
		Trace:        m.cfg.Trace,
		OnChange: func(traversal.State) {
			select {
			case signal <- struct{}{}:
			default:
			}
		},
	})
	return func() tea.Msg {
		err := ctrl.Load(m.ctx, m.cfg.Catalog, id)
		return loadedMsg{ctrl: ctrl, err: err}
	}
}

// waitForState blocks until the controller signals a change.
func (m Model) waitForState() tea.Cmd {
	signal := m.signal
	return func() tea.Msg {
		<-signal
		return stateMsg{}
	}
}

func (m Model) submit(choiceID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		rec, err := ctrl.SubmitChoice(m.ctx, choiceID, "")
		return submittedMsg{ctrl: ctrl, rec: rec, err: err}
	}
}

func (m Model) generate(req api.GenerateRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.cfg.Generator.GenerateScenario(m.ctx, req)
		return generatedMsg{res: res, err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case scenariosMsg:
		m.loading = false
		if msg.err != nil {
			m.listErr = msg.err.Error()
			break
		}
		m.listErr = ""
		m.summaries = msg.list
		if m.cursor >= len(m.summaries) {
			m.cursor = 0
		}

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			msg.ctrl.Dispose()
			m.listErr = msg.err.Error()
			m.screen = screenList
			if m.summaries == nil {
				cmds = append(cmds, m.listScenarios())
			}
			break
		}
		if m.ctrl != nil {
			m.ctrl.Dispose()
		}
		m.ctrl = msg.ctrl
		m.snap = msg.ctrl.State()
		m.choiceCursor = 0
		m.submitErr = ""
		m.screen = screenTraversal

	case stateMsg:
		if m.ctrl != nil {
			prev := m.snap
			m.snap = m.ctrl.State()
			if m.snap.Step != prev.Step {
				m.choiceCursor = 0
			}
			m.choiceCursor = clampCursor(m.choiceCursor, m.snap)
		}
		cmds = append(cmds, m.waitForState())

	case submittedMsg:
		if msg.ctrl != m.ctrl {
			break
		}
		m.snap = m.ctrl.State()
		switch {
		case msg.err == nil:
			m.submitErr = ""
			m.choiceCursor = 0
		case errors.Is(msg.err, traversal.ErrStale), errors.Is(msg.err, traversal.ErrBusy):
		default:
			m.submitErr = msg.err.Error()
		}

	case generatedMsg:
		m.form.busy = false
		if msg.err != nil {
			m.form.err = msg.err.Error()
			break
		}
		m.form.err = ""
		m.form.saved = msg.res.Saved
		if msg.res.Scenario != nil {
			m.form.lastTitle = msg.res.Scenario.Title
			m.summaries = append(m.summaries, msg.res.Scenario.Summary())
			m.cursor = len(m.summaries) - 1
		}
		m.screen = screenList
	}

	return m, tea.Batch(cmds...)
}

func clampCursor(cursor int, s traversal.State) int {
	dp, ok := s.Point()
	if !ok || cursor >= len(dp.Choices) {
		return 0
	}
	return cursor
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || (m.screen != screenGenerate && key.Matches(msg, keys.Quit)) {
		if m.ctrl != nil {
			m.ctrl.Dispose()
		}
		return m, tea.Quit
	}

	switch m.screen {
	case screenList:
		return m.handleListKey(msg)
	case screenGenerate:
		return m.handleFormKey(msg)
	}
	return m.handleTraversalKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.summaries)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Select):
		if m.loading || len(m.summaries) == 0 {
			return m, nil
		}
		m.loading = true
		m.listErr = ""
		return m, m.startTraversal(m.summaries[m.cursor].ID)
	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, m.listScenarios()
	case key.Matches(msg, keys.Generate):
		if m.cfg.Generator != nil {
			m.screen = screenGenerate
			return m, m.form.focus()
		}
	}
	return m, nil
}

func (m Model) handleTraversalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		if key.Matches(msg, keys.Back) {
			m.screen = screenList
			return m, m.listScenarios()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		m.ctrl.Dispose()
		m.ctrl = nil
		m.snap = traversal.State{}
		m.submitErr = ""
		m.screen = screenList
		if m.summaries == nil {
			m.loading = true
			return m, m.listScenarios()
		}
		return m, nil

	case key.Matches(msg, keys.Restart):
		m.ctrl.Restart()
		m.snap = m.ctrl.State()
		m.choiceCursor = 0
		m.submitErr = ""
		return m, nil
	}

	if !m.snap.AcceptsChoice() {
		return m, nil
	}
	dp, ok := m.snap.Point()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if m.choiceCursor > 0 {
			m.choiceCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.choiceCursor < len(dp.Choices)-1 {
			m.choiceCursor++
		}
	case key.Matches(msg, keys.Select):
		return m.choose(dp.Choices[m.choiceCursor].ID)
	default:
		s := msg.String()
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			idx := int(s[0] - '1')
			if idx < len(dp.Choices) {
				m.choiceCursor = idx
				return m.choose(dp.Choices[idx].ID)
			}
		}
	}
	return m, nil
}

// choose marks the input disabled immediately; the controller is the
// authority on whether the submission is accepted.
func (m Model) choose(choiceID string) (tea.Model, tea.Cmd) {
	m.snap.Phase = traversal.Submitting
	m.submitErr = ""
	return m, m.submit(choiceID)
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Back) && msg.String() == "esc" {
		m.screen = screenList
		m.form.blur()
		return m, nil
	}
	if m.form.busy {
		return m, nil
	}
	if key.Matches(msg, keys.Select) {
		req, err := m.form.request()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.form.busy = true
		m.form.err = ""
		return m, m.generate(req)
	}
	cmd := m.form.update(msg)
	return m, cmd
}

// View renders the active screen.
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenList:
		body = m.listView()
	case screenGenerate:
		body = m.form.view(m.width, m.spinner.View())
	default:
		body = m.traversalView()
	}
	return body + "\n\n" + keyBarText(m)
}

func (m Model) header(title string) string {
	return headerStyle.Render(truncate(title, m.width-2))
}

func (m Model) traversalView() string {
	if m.ctrl == nil {
		var b strings.Builder
		b.WriteString(m.header("Loading scenario"))
		b.WriteString("\n\n  " + m.spinner.View() + " fetching " + m.cfg.ScenarioID)
		if m.listErr != "" {
			b.WriteString("\n\n" + errorStyle.Render(m.listErr))
		}
		return b.String()
	}

	st := m.snap
	var b strings.Builder
	b.WriteString(m.header(st.Scenario.Title))
	b.WriteString("  ")
	b.WriteString(progressStyle.Render(progressText(st)))
	b.WriteString("\n\n")

	if st.Complete {
		b.WriteString(completeView(st, m.width))
		return b.String()
	}

	if dp, ok := st.Point(); ok {
		b.WriteString(decisionView(dp, m.choiceCursor, st.AcceptsChoice(), m.width))
	}

	switch st.Phase {
	case traversal.Submitting:
		b.WriteString("\n\n  " + m.spinner.View() + " analysing your choice…")
	case traversal.Transitioning:
		if rec, ok := st.History.Last(); ok {
			b.WriteString("\n\n" + analysisView(rec, st.History, m.width))
			b.WriteString("\n\n  " + progressStyle.Render(fmt.Sprintf("%s moving to step %d…", m.spinner.View(), st.NextStep)))
		}
	}
	if m.submitErr != "" {
		b.WriteString("\n\n" + errorStyle.Render("Submission failed: "+m.submitErr))
		b.WriteString("\n" + keyDescStyle.Render("Choose again to retry."))
	}
	return b.String()
}

// progressText reports position for display only.
func progressText(s traversal.State) string {
	if s.Complete {
		return fmt.Sprintf("%d decisions made", s.History.Len())
	}
	return fmt.Sprintf("Step %d of %d", s.Step, s.Scenario.TotalSteps())
}
