package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/repl"
	"github.com/ormasoftchile/dilemma/pkg/trace"
	"github.com/ormasoftchile/dilemma/pkg/traversal"
	"github.com/ormasoftchile/dilemma/pkg/tui"
)

var (
	walkPlain      bool
	walkTranscript string
	walkDelay      time.Duration
)

var walkCmd = &cobra.Command{
	Use:   "walk [scenario-id]",
	Short: "Walk a scenario interactively",
	Long: `Walk a scenario one decision at a time. Opens the terminal UI by default;
without a scenario id the UI starts at the scenario list. --plain uses a
line-mode prompt instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalk,
}

func runWalk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend()
	if err != nil {
		return err
	}

	delay := cfg.AdvanceDelay
	if cmd.Flags().Changed("delay") {
		delay = walkDelay
	}

	var tw *trace.Writer
	if walkTranscript != "" {
		tw, err = trace.NewFileWriter(walkTranscript, uuid.NewString())
		if err != nil {
			return err
		}
		defer tw.Close()
	}

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	if !walkPlain {
		tuiLogger := zap.NewNop()
		if cfg.LogFile != "" {
			tuiLogger = logger
		}
		tcfg := tui.Config{
			Catalog:      b,
			Submitter:    b,
			ScenarioID:   id,
			AdvanceDelay: delay,
			Logger:       tuiLogger,
			Trace:        tw,
		}
		if g, ok := b.(tui.Generator); ok {
			tcfg.Generator = g
		}
		return tui.Run(ctx, tcfg)
	}

	if id == "" {
		list, err := b.ListScenarios(ctx)
		if err != nil {
			return err
		}
		if len(list) != 1 {
			return fmt.Errorf("walk --plain needs a scenario id (%d available, see: dilemma scenarios)", len(list))
		}
		id = list[0].ID
	}

	ctrl := traversal.New(traversal.Config{
		Submitter:    b,
		AdvanceDelay: delay,
		Logger:       logger,
		Trace:        tw,
	})
	defer ctrl.Dispose()
	if err := ctrl.Load(ctx, b, id); err != nil {
		return err
	}
	return repl.New(repl.Config{Controller: ctrl, Output: cmd.OutOrStdout()}).Run(ctx)
}

func init() {
	walkCmd.Flags().BoolVar(&walkPlain, "plain", false, "Use the line-mode prompt instead of the terminal UI")
	walkCmd.Flags().StringVar(&walkTranscript, "transcript", "", "Append a JSONL audit trail of the traversal to this file")
	walkCmd.Flags().DurationVar(&walkDelay, "delay", traversal.DefaultAdvanceDelay, "How long the analysis stays up before the next step (overrides DILEMMA_ADVANCE_DELAY)")
}
