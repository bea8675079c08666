package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
)

var (
	genTopic      string
	genCategory   string
	genDifficulty string
	genSteps      int
	genNoSave     bool
	genJSON       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the service to author a new scenario",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if flagReplay != "" {
		return errors.New("generate needs the analysis service; it is not available with --replay")
	}
	req := api.NewGenerateRequest(strings.TrimSpace(genTopic))
	req.Category = genCategory
	req.Difficulty = genDifficulty
	req.NumDecisionPoints = genSteps
	req.SaveToLibrary = !genNoSave
	if err := api.ValidateGenerate(nil, req); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	start := time.Now()
	fmt.Fprintf(cmd.ErrOrStderr(), "Generating a %s scenario about %q…\n", req.Difficulty, req.Topic)
	res, err := client.GenerateScenario(cmd.Context(), req)
	if err != nil {
		return err
	}
	logger.Info("scenario generated", zap.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	if genJSON {
		return writeJSON(out, res)
	}
	if res.Scenario != nil {
		writeScenario(out, res.Scenario)
	}
	if res.Saved {
		fmt.Fprintln(out, "\nSaved to the library.")
	}
	return nil
}

func init() {
	def := api.NewGenerateRequest("")
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "What the dilemma is about (required)")
	generateCmd.Flags().StringVar(&genCategory, "category", def.Category, "business, medical, personal or civic")
	generateCmd.Flags().StringVar(&genDifficulty, "difficulty", def.Difficulty, "beginner, intermediate or advanced")
	generateCmd.Flags().IntVar(&genSteps, "steps", def.NumDecisionPoints, "Number of decision points (2-5)")
	generateCmd.Flags().BoolVar(&genNoSave, "no-save", false, "Do not add the scenario to the shared library")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Output as JSON")
	_ = generateCmd.MarkFlagRequired("topic")
}
