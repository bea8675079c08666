// Package repl implements the plain line-mode walkthrough of a scenario.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

// Config holds what a walkthrough needs.
type Config struct {
	Controller *traversal.Controller // loaded before Run
	Input      io.ReadCloser         // nil reads stdin
	Output     io.Writer             // nil writes stdout
}

// Walker drives a traversal from a readline prompt.
type Walker struct {
	ctrl   *traversal.Controller
	input  io.ReadCloser
	output io.Writer
}

// New creates a walker over a loaded controller.
func New(cfg Config) *Walker {
	w := &Walker{ctrl: cfg.Controller, input: cfg.Input, output: cfg.Output}
	if w.output == nil {
		w.output = os.Stdout
	}
	return w
}

// Run starts the REPL loop and returns when the user quits or input ends.
func (w *Walker) Run(ctx context.Context) error {
	commands := []string{"choose", "state", "history", "restart", "help", "quit"}
	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          w.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdin:           w.input,
		Stdout:          w.output,
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	st := w.ctrl.State()
	fmt.Fprintf(w.output, "%s (%d steps)\n", st.Scenario.Title, st.Scenario.TotalSteps())
	fmt.Fprintf(w.output, "Type a choice number to decide, 'help' for commands.\n\n")
	w.printPoint(st)

	for {
		if ctx.Err() != nil {
			return nil
		}
		rl.SetPrompt(w.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if w.exec(ctx, line) {
			return nil
		}
	}
}

// exec runs one input line and reports whether the user asked to quit.
func (w *Walker) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch cmd := parts[0]; cmd {
	case "choose", "c":
		if len(parts) < 2 {
			fmt.Fprintf(w.output, "Usage: choose <number|choice id>\n")
			return false
		}
		w.handleChoose(ctx, parts[1])
	case "state", "s":
		w.printPoint(w.ctrl.State())
	case "history", "h":
		w.handleHistory()
	case "restart", "r":
		w.ctrl.Restart()
		fmt.Fprintf(w.output, "Restarted.\n\n")
		w.printPoint(w.ctrl.State())
	case "help", "?":
		w.handleHelp()
	case "quit", "q":
		fmt.Fprintf(w.output, "Goodbye.\n")
		return true
	default:
		if len(parts) == 1 && isNumber(cmd) {
			w.handleChoose(ctx, cmd)
			return false
		}
		fmt.Fprintf(w.output, "Unknown command: %q. Type 'help' for available commands.\n", cmd)
	}
	return false
}

// buildPrompt creates the prompt string: dilemma[step N/total]>
func (w *Walker) buildPrompt() string {
	st := w.ctrl.State()
	switch {
	case st.Complete:
		return "dilemma[done]> "
	case st.Scenario == nil:
		return "dilemma> "
	}
	return fmt.Sprintf("dilemma[%d/%d]> ", st.Step, st.Scenario.TotalSteps())
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
