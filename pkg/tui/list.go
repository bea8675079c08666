package tui

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

func (m Model) listView() string {
	var b strings.Builder
	b.WriteString(m.header("Ethical Dilemmas"))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.summaries) == 0:
		b.WriteString("  " + m.spinner.View() + " loading scenarios…")
	case len(m.summaries) == 0 && m.listErr == "":
		b.WriteString(itemMeta.Render("  No scenarios yet."))
		if m.cfg.Generator != nil {
			b.WriteString(itemMeta.Render(" Press g to generate one."))
		}
	}

	for i, s := range m.summaries {
		b.WriteString(summaryLine(s, i == m.cursor, m.width))
		b.WriteString("\n")
	}
	if m.loading && len(m.summaries) > 0 {
		b.WriteString("\n  " + m.spinner.View() + " loading…")
	}
	if m.form.lastTitle != "" {
		saved := "not saved"
		if m.form.saved {
			saved = "saved to library"
		}
		b.WriteString("\n" + itemMeta.Render(fmt.Sprintf("  Generated %q (%s)", m.form.lastTitle, saved)))
	}
	if m.listErr != "" {
		b.WriteString("\n" + errorStyle.Render("  "+m.listErr))
	}
	return b.String()
}

// summaryLine renders one list entry: title, then category, difficulty,
// decision count and estimated minutes, cut to the terminal width.
func summaryLine(s scenario.Summary, selected bool, width int) string {
	prefix := "  "
	style := itemNormal
	if selected {
		prefix = GlyphCursor + " "
		style = itemCurrent
	}
	meta := summaryMeta(s)
	titleW := width - len(prefix) - len(meta) - 4
	if titleW < 12 {
		titleW = 12
	}
	return style.Render(prefix+truncate(s.Title, titleW)) + "  " + itemMeta.Render(meta)
}

func summaryMeta(s scenario.Summary) string {
	var parts []string
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	if s.Difficulty != "" {
		parts = append(parts, s.Difficulty)
	}
	parts = append(parts, fmt.Sprintf("%d decisions", s.Decisions()))
	if s.EstimatedTime > 0 {
		parts = append(parts, fmt.Sprintf("~%d min", s.EstimatedTime))
	}
	return strings.Join(parts, " · ")
}
