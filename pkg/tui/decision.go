package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

func contentWidth(width int) int {
	w := width - 4
	if w < 40 {
		w = 40
	}
	return w
}

// decisionView renders the context, prompt and numbered choices. Choices are
// faint while input is disabled.
func decisionView(dp *scenario.DecisionPoint, cursor int, enabled bool, width int) string {
	w := contentWidth(width)
	var b strings.Builder
	if dp.Context != "" {
		b.WriteString(renderMarkdown(dp.Context, w-4))
		b.WriteString("\n\n")
	}
	b.WriteString(promptStyle.Render(dp.Prompt))
	b.WriteString("\n\n")
	for i, c := range dp.Choices {
		prefix := "  "
		if enabled && i == cursor {
			prefix = GlyphCursor + " "
		}
		line := fmt.Sprintf("%s%d. %s", prefix, i+1, c.Text)
		switch {
		case !enabled:
			line = choiceDisabled.Render(line)
		case i == cursor:
			line = itemCurrent.Render(line)
		default:
			line = itemNormal.Render(line)
		}
		b.WriteString(line)
		if i < len(dp.Choices)-1 {
			b.WriteString("\n")
		}
	}
	return panelBorder.Width(w).Render(b.String())
}

// analysisView renders one card per framework, then the consequence and
// the decision it originates from.
func analysisView(rec history.Record, log history.Log, width int) string {
	w := contentWidth(width)
	cols := 2
	if w < 80 {
		cols = 1
	}
	cardW := w/cols - 2

	var cards []string
	for i, f := range api.Frameworks {
		color := frameworkColors[i%len(frameworkColors)]
		text := f.Get(rec.Analysis)
		if strings.TrimSpace(text) == "" {
			text = "(no assessment)"
		}
		card := cardStyle.BorderForeground(color).Width(cardW).Render(
			cardTitle.Foreground(color).Render(f.Name) + "\n" + text)
		cards = append(cards, card)
	}
	var rows []string
	for i := 0; i < len(cards); i += cols {
		end := i + cols
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	out := lipgloss.JoinVertical(lipgloss.Left, rows...)
	if c := consequenceView(rec, log, w); c != "" {
		out += "\n" + c
	}
	return out
}

// consequenceView renders the consequence banner, or "" when there is none.
func consequenceView(rec history.Record, log history.Log, width int) string {
	if !rec.HasConsequence() {
		return ""
	}
	body := GlyphConsequence + " " + *rec.Consequence
	if res := history.Resolve(rec, log); res.Status != history.NoTrigger {
		body += "\n" + originStyle.Render("Because of "+res.Describe())
	}
	return consequenceStyle.Width(width - 2).Render(body)
}

// completeView renders the final analysis and the decision path.
func completeView(st traversal.State, width int) string {
	var b strings.Builder
	b.WriteString(completeBannerStyle.Render("Scenario complete"))
	b.WriteString("\n\n")
	if rec, ok := st.History.Last(); ok {
		b.WriteString(analysisView(rec, st.History, width))
		b.WriteString("\n\n")
	}
	b.WriteString(headerStyle.Render("Your path"))
	b.WriteString("\n")
	b.WriteString(pathView(st.History, width))
	return b.String()
}

// pathView lists every decision in order, marking those with consequences.
func pathView(log history.Log, width int) string {
	var lines []string
	for _, r := range log.Records() {
		mark := GlyphDone
		if r.HasConsequence() {
			mark = GlyphConsequence
		}
		line := summaryStepStyle.Render(fmt.Sprintf("  %s Step %d", mark, r.Step)) + "  " +
			summaryChoiceStyle.Render(truncate(r.ChoiceText, contentWidth(width)-14))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
