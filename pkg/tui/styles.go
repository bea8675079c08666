// Package tui implements the interactive terminal front end: a scenario
// list, the step-by-step decision view with per-framework analysis, the
// completion summary, and the scenario authoring form.
package tui

import "github.com/charmbracelet/lipgloss"

// Glyphs convey meaning without relying on color alone.
const (
	GlyphCursor      = "▸"
	GlyphDone        = "✓"
	GlyphConsequence = "◆"
	GlyphPending     = "○"
)

var (
	colorGreen   = lipgloss.Color("42")
	colorRed     = lipgloss.Color("196")
	colorYellow  = lipgloss.Color("214")
	colorBlue    = lipgloss.Color("39")
	colorCyan    = lipgloss.Color("51")
	colorDim     = lipgloss.Color("240")
	colorWhite   = lipgloss.Color("255")
	colorMagenta = lipgloss.Color("201")
)

// frameworkColors follows the display order of api.Frameworks.
var frameworkColors = []lipgloss.Color{colorBlue, colorGreen, colorMagenta, colorYellow}

// --- Header ---

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var badgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(colorYellow).
	Padding(0, 1)

var progressStyle = lipgloss.NewStyle().
	Foreground(colorDim)

// --- List ---

var (
	itemNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	itemCurrent = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	itemMeta = lipgloss.NewStyle().
			Foreground(colorDim)
)

// --- Decision point ---

var (
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	choiceDisabled = lipgloss.NewStyle().
			Faint(true)
)

// --- Analysis ---

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	cardTitle = lipgloss.NewStyle().
			Bold(true)

	consequenceStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(colorYellow).
				Foreground(colorYellow).
				Padding(0, 1)

	originStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorDim)
)

// --- Completion ---

var completeBannerStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(colorCyan).
	Foreground(colorCyan).
	Bold(true).
	Padding(0, 2).
	Align(lipgloss.Center)

var (
	summaryStepStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	summaryChoiceStyle = lipgloss.NewStyle().
				Foreground(colorWhite)
)

// --- Form ---

var (
	fieldLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	fieldFocused = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	fieldValue = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// --- Key bar ---

var (
	keyStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	keyBarStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

var errorStyle = lipgloss.NewStyle().
	Foreground(colorRed).
	Bold(true)

var spinnerStyle = lipgloss.NewStyle().
	Foreground(colorYellow)
