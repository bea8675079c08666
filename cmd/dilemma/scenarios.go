package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/replay"
	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

// backend is the service boundary: the HTTP client or a replay script.
type backend interface {
	ListScenarios(ctx context.Context) ([]scenario.Summary, error)
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
	SubmitDecision(ctx context.Context, req api.SubmitRequest) (*api.DecisionResponse, error)
}

var flagReplay string

// openBackend returns the replay service when --replay is set, otherwise
// the HTTP client.
func openBackend() (backend, error) {
	if flagReplay != "" {
		script, err := replay.LoadScript(flagReplay)
		if err != nil {
			return nil, err
		}
		return replay.NewService(script, logger), nil
	}
	return newClient()
}

// --- scenarios ---

var scenariosJSON bool

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"ls"},
	Short:   "List available scenarios",
	Args:    cobra.NoArgs,
	RunE:    runScenarios,
}

func runScenarios(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	list, err := b.ListScenarios(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if scenariosJSON {
		return writeJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No scenarios yet. Try: dilemma generate --topic ...")
		return nil
	}
	writeSummaries(out, list)
	return nil
}

const titleColumn = 40

// writeSummaries prints one aligned row per scenario.
func writeSummaries(w io.Writer, list []scenario.Summary) {
	idW := len("ID")
	for _, s := range list {
		if n := runewidth.StringWidth(s.ID); n > idW {
			idW = n
		}
	}
	fmt.Fprintf(w, "%s  %s  %-10s %-13s %s\n",
		runewidth.FillRight("ID", idW), runewidth.FillRight("TITLE", titleColumn), "CATEGORY", "DIFFICULTY", "DECISIONS")
	for _, s := range list {
		title := runewidth.FillRight(runewidth.Truncate(s.Title, titleColumn, "…"), titleColumn)
		est := ""
		if s.EstimatedTime > 0 {
			est = fmt.Sprintf("  ~%d min", s.EstimatedTime)
		}
		fmt.Fprintf(w, "%s  %s  %-10s %-13s %d%s\n",
			runewidth.FillRight(s.ID, idW), title, dash(s.Category), dash(s.Difficulty), s.Decisions(), est)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --- show ---

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <scenario-id>",
	Short: "Print a scenario's decision points",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	s, err := b.GetScenario(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if showJSON {
		return writeJSON(out, s)
	}
	writeScenario(out, s)
	return nil
}

func writeScenario(w io.Writer, s *scenario.Scenario) {
	fmt.Fprintf(w, "%s [%s]\n", s.Title, s.ID)
	if s.Description != "" {
		fmt.Fprintf(w, "%s\n", s.Description)
	}
	fmt.Fprintf(w, "%s · %s · %d decision points\n", dash(s.Category), dash(s.Difficulty), s.TotalSteps())
	for _, dp := range s.DecisionPoints {
		fmt.Fprintf(w, "\nStep %d: %s\n", dp.Step, dp.Prompt)
		if dp.Context != "" {
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(dp.Context))
		}
		for _, c := range dp.Choices {
			fmt.Fprintf(w, "  [%s] %s\n", c.ID, c.Text)
		}
	}
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Validate a scenario file (structure, semantics and domain rules)",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, errs := scenario.ValidateFile(args[0])
	var failures []*scenario.ValidationError
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "    at: %s\n", e.Path)
			}
			continue
		}
		failures = append(failures, e)
	}
	if len(failures) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", len(failures))
		for i, e := range failures {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", len(failures))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d decision points)\n", s.ID, s.TotalSteps())
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the scenario JSON Schema",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := scenario.GenerateJSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagReplay, "replay", "", "Serve scenarios and responses from a replay script instead of the service")
	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
}
