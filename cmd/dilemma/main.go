// Package main provides the dilemma binary: browse and walk branching
// ethical-dilemma scenarios against the analysis service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/api"
	"github.com/ormasoftchile/dilemma/pkg/config"
	"github.com/ormasoftchile/dilemma/pkg/logging"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process-wide settings, resolved in PersistentPreRunE.
var (
	cfg *config.Config

	logger = zap.NewNop()

	flagEnvFile  string
	flagAPIURL   string
	flagLogLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "dilemma",
	Short:             "Walk branching ethical dilemmas",
	Long:              "dilemma: browse scenarios, make decisions and read how four ethical frameworks assess them.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup loads .env, the environment and flag overrides, then builds the
// logger. The TUI replaces the logger when it owns the terminal.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(flagEnvFile); err != nil {
		return err
	}
	c, err := config.Load()
	if err != nil {
		return err
	}
	if flagAPIURL != "" {
		c.APIURL = flagAPIURL
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// newClient builds the HTTP client for the configured service.
func newClient() (*api.Client, error) {
	return api.New(cfg.APIURL, cfg.HTTPTimeout, logger)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and recognised variables",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, cfg.String())
	fmt.Fprintln(out)
	return config.Usage(out)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dilemma %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Load variables from this file if it exists")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Analysis service base URL (overrides DILEMMA_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides DILEMMA_LOG_LEVEL)")

	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
