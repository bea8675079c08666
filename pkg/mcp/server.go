// Package mcp exposes scenario traversal as MCP tools so an agent can walk
// a dilemma one decision at a time.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the dilemma tools registered.
func NewServer(version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		"dilemma",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("dilemma/list_scenarios",
			mcp.WithDescription("List available ethical dilemma scenarios"),
		),
		t.HandleListScenarios,
	)

	s.AddTool(
		mcp.NewTool("dilemma/start",
			mcp.WithDescription("Start (or replace) the traversal of a scenario and return its first decision point"),
			mcp.WithString("scenario_id", mcp.Required(), mcp.Description("Scenario id from dilemma/list_scenarios")),
		),
		t.HandleStart,
	)

	s.AddTool(
		mcp.NewTool("dilemma/choose",
			mcp.WithDescription("Submit a choice at the current decision point; returns the ethical analysis and the next state"),
			mcp.WithString("choice", mcp.Required(), mcp.Description("Choice id, or its 1-based position")),
		),
		t.HandleChoose,
	)

	s.AddTool(
		mcp.NewTool("dilemma/state",
			mcp.WithDescription("Show the current traversal state and open decision point"),
		),
		t.HandleState,
	)

	s.AddTool(
		mcp.NewTool("dilemma/history",
			mcp.WithDescription("List the decisions made so far with their analyses and consequences"),
		),
		t.HandleHistory,
	)

	s.AddTool(
		mcp.NewTool("dilemma/restart",
			mcp.WithDescription("Restart the current scenario from step 1 with a fresh session"),
		),
		t.HandleRestart,
	)

	return s
}
