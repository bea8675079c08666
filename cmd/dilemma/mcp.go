package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	dmcp "github.com/ormasoftchile/dilemma/pkg/mcp"
)

var mcpDelay bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve scenario traversal as MCP tools over stdio",
	Long: `Serve scenario traversal as MCP tools over stdio. Logs go to
DILEMMA_LOG_FILE or stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	// Agents get the next decision point immediately unless asked to wait.
	delay := cfg.AdvanceDelay
	if !mcpDelay {
		delay = 0
	}
	tools := dmcp.NewTools(dmcp.Config{
		Catalog:      b,
		Submitter:    b,
		AdvanceDelay: delay,
		Logger:       logger.Named("mcp"),
	})
	defer tools.Close()

	s := dmcp.NewServer(version, tools)
	logger.Info("serving MCP over stdio")
	return server.ServeStdio(s)
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpDelay, "delay", false, "Honour DILEMMA_ADVANCE_DELAY before returning the next decision point")
}
