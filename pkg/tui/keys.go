package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds all TUI key bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Tab      key.Binding
	Select   key.Binding
	Restart  key.Binding
	Refresh  key.Binding
	Back     key.Binding
	Generate key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "next field"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "try again"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "b"),
		key.WithHelp("esc", "back"),
	),
	Generate: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "generate"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func hint(k, desc string) string {
	return keyStyle.Render(k) + keyDescStyle.Render(":"+desc)
}

// keyBarText renders the key hints for the active screen.
func keyBarText(m Model) string {
	var parts []string
	switch m.screen {
	case screenList:
		parts = []string{hint("↑↓", "select"), hint("enter", "open"), hint("g", "generate"), hint("r", "refresh"), hint("q", "quit")}
	case screenGenerate:
		parts = []string{hint("tab", "field"), hint("←→", "change"), hint("enter", "generate"), hint("esc", "back")}
	case screenTraversal:
		switch {
		case m.snap.Complete:
			parts = []string{hint("r", "try again"), hint("esc", "scenarios"), hint("q", "quit")}
		case m.snap.AcceptsChoice():
			parts = []string{hint("↑↓", "select"), hint("enter", "choose"), hint("1-9", "quick"), hint("r", "restart"), hint("esc", "back")}
		default:
			parts = []string{hint("r", "restart"), hint("esc", "back"), hint("q", "quit")}
		}
	}
	return keyBarStyle.Render(strings.Join(parts, "  "))
}
