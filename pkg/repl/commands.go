package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/history"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
)

// handleChoose submits a choice, prints the analysis and waits for the
// next decision point.
func (w *Walker) handleChoose(ctx context.Context, arg string) {
	st := w.ctrl.State()
	dp, ok := st.Point()
	if !ok || !st.AcceptsChoice() {
		fmt.Fprintf(w.output, "No decision is open (%s).\n", st.Phase)
		return
	}
	choiceID := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(dp.Choices) {
			fmt.Fprintf(w.output, "Choose 1-%d.\n", len(dp.Choices))
			return
		}
		choiceID = dp.Choices[n-1].ID
	}

	fmt.Fprintf(w.output, "Analysing your choice…\n")
	rec, err := w.ctrl.SubmitChoice(ctx, choiceID, "")
	if err != nil {
		fmt.Fprintf(w.output, "Error: %v\n", err)
		return
	}
	st = w.ctrl.State()
	w.printAnalysis(*rec, st.History)

	if !st.Complete {
		next := st.NextStep
		if st.Phase != traversal.Transitioning {
			next = st.Step // a zero delay may already have advanced
		}
		fmt.Fprintf(w.output, "Moving to step %d…\n\n", next)
	}
	st, err = w.ctrl.WaitSettled(ctx)
	if err != nil {
		fmt.Fprintf(w.output, "Error: %v\n", err)
		return
	}
	if st.Complete {
		w.printComplete(st)
		return
	}
	w.printPoint(st)
}

// handleHistory lists the decisions made so far.
func (w *Walker) handleHistory() {
	log := w.ctrl.State().History
	if log.Len() == 0 {
		fmt.Fprintf(w.output, "No decisions yet.\n")
		return
	}
	for _, r := range log.Records() {
		mark := "✓"
		if r.HasConsequence() {
			mark = "!"
		}
		fmt.Fprintf(w.output, "  %s [%d] step %d: %s\n", mark, r.Seq, r.Step, r.ChoiceText)
		if r.HasConsequence() {
			fmt.Fprintf(w.output, "       consequence: %s\n", *r.Consequence)
		}
	}
}

// handleHelp displays available commands.
func (w *Walker) handleHelp() {
	fmt.Fprintln(w.output, "Available commands:")
	fmt.Fprintln(w.output, "  <n>              Choose option n at the current decision")
	fmt.Fprintln(w.output, "  choose (c) <id>  Choose by number or choice id")
	fmt.Fprintln(w.output, "  state (s)        Show the current decision point")
	fmt.Fprintln(w.output, "  history (h)      Show decisions made so far")
	fmt.Fprintln(w.output, "  restart (r)      Start the scenario over")
	fmt.Fprintln(w.output, "  help (?)         Show this help")
	fmt.Fprintln(w.output, "  quit (q)         Exit")
}

func (w *Walker) printPoint(st traversal.State) {
	if st.Complete {
		w.printComplete(st)
		return
	}
	dp, ok := st.Point()
	if !ok {
		fmt.Fprintf(w.output, "Nothing loaded.\n")
		return
	}
	fmt.Fprintf(w.output, "Step %d of %d\n", st.Step, st.Scenario.TotalSteps())
	if dp.Context != "" {
		fmt.Fprintf(w.output, "%s\n\n", strings.TrimSpace(dp.Context))
	}
	fmt.Fprintf(w.output, "%s\n", dp.Prompt)
	for i, c := range dp.Choices {
		fmt.Fprintf(w.output, "  %d. %s\n", i+1, c.Text)
	}
	fmt.Fprintln(w.output)
}

func (w *Walker) printAnalysis(rec history.Record, log history.Log) {
	fmt.Fprintln(w.output)
	for _, f := range api.Frameworks {
		text := strings.TrimSpace(f.Get(rec.Analysis))
		if text == "" {
			continue
		}
		fmt.Fprintf(w.output, "  %s\n    %s\n", f.Name, text)
	}
	if rec.HasConsequence() {
		fmt.Fprintf(w.output, "\n  ! %s\n", *rec.Consequence)
		if res := history.Resolve(rec, log); res.Status != history.NoTrigger {
			fmt.Fprintf(w.output, "    Because of %s\n", res.Describe())
		}
	}
	fmt.Fprintln(w.output)
}

func (w *Walker) printComplete(st traversal.State) {
	fmt.Fprintf(w.output, "Scenario complete: %d decisions made.\n", st.History.Len())
	for _, r := range st.History.Records() {
		fmt.Fprintf(w.output, "  step %d: %s\n", r.Step, r.ChoiceText)
	}
	fmt.Fprintf(w.output, "Type 'restart' to try again or 'quit' to exit.\n")
}
