package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

type formField int

const (
	fieldTopic formField = iota
	fieldCategory
	fieldDifficulty
	fieldSteps
	fieldCount
)

const (
	minDecisionPoints = 2
	maxDecisionPoints = 5
)

// generateForm collects the authoring request. Category, difficulty and
// the decision point count cycle with the arrow keys.
type generateForm struct {
	topic      textinput.Model
	focused    formField
	category   int
	difficulty int
	steps      int

	busy      bool
	err       string
	saved     bool
	lastTitle string
}

func newGenerateForm() generateForm {
	ti := textinput.New()
	ti.Placeholder = "e.g. a whistleblower at a pharmaceutical company"
	ti.CharLimit = 200
	ti.Width = 50

	def := api.NewGenerateRequest("")
	return generateForm{
		topic:      ti,
		category:   indexOf(scenario.Categories, def.Category),
		difficulty: indexOf(scenario.Difficulties, def.Difficulty),
		steps:      def.NumDecisionPoints,
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return 0
}

func (f *generateForm) focus() tea.Cmd {
	f.focused = fieldTopic
	return f.topic.Focus()
}

func (f *generateForm) blur() {
	f.topic.Blur()
}

// request builds and validates the request.
func (f *generateForm) request() (api.GenerateRequest, error) {
	req := api.NewGenerateRequest(strings.TrimSpace(f.topic.Value()))
	req.Category = scenario.Categories[f.category]
	req.Difficulty = scenario.Difficulties[f.difficulty]
	req.NumDecisionPoints = f.steps
	if err := api.ValidateGenerate(nil, req); err != nil {
		return req, err
	}
	return req, nil
}

func (f *generateForm) update(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Tab):
		if msg.String() == "shift+tab" {
			f.focused = (f.focused + fieldCount - 1) % fieldCount
		} else {
			f.focused = (f.focused + 1) % fieldCount
		}
		if f.focused == fieldTopic {
			return f.topic.Focus()
		}
		f.topic.Blur()
		return nil
	case f.focused == fieldTopic:
		var cmd tea.Cmd
		f.topic, cmd = f.topic.Update(msg)
		return cmd
	case key.Matches(msg, keys.Left):
		f.cycle(-1)
	case key.Matches(msg, keys.Right):
		f.cycle(1)
	}
	return nil
}

func (f *generateForm) cycle(delta int) {
	wrap := func(i, n int) int { return ((i+delta)%n + n) % n }
	switch f.focused {
	case fieldCategory:
		f.category = wrap(f.category, len(scenario.Categories))
	case fieldDifficulty:
		f.difficulty = wrap(f.difficulty, len(scenario.Difficulties))
	case fieldSteps:
		f.steps += delta
		if f.steps < minDecisionPoints {
			f.steps = minDecisionPoints
		}
		if f.steps > maxDecisionPoints {
			f.steps = maxDecisionPoints
		}
	}
}

func (f *generateForm) view(width int, spin string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Generate a scenario"))
	b.WriteString("\n\n")

	row := func(field formField, label, value string) {
		l := fieldLabel.Render(fmt.Sprintf("%-18s", label))
		if f.focused == field {
			l = fieldFocused.Render(fmt.Sprintf("%-18s", GlyphCursor+" "+label))
		}
		b.WriteString(l + fieldValue.Render(value) + "\n")
	}
	row(fieldTopic, "Topic", f.topic.View())
	row(fieldCategory, "Category", "‹ "+scenario.Categories[f.category]+" ›")
	row(fieldDifficulty, "Difficulty", "‹ "+scenario.Difficulties[f.difficulty]+" ›")
	row(fieldSteps, "Decision points", fmt.Sprintf("‹ %d ›", f.steps))

	if f.busy {
		b.WriteString("\n  " + spin + " generating, this can take a while…")
	}
	if f.err != "" {
		b.WriteString("\n" + errorStyle.Render(truncate(f.err, width-2)))
	}
	return b.String()
}
