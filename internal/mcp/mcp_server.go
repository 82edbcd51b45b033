// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/source"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SourceFactory builds the fetch collaborator for one tool call's config.
type SourceFactory func(cfg *contract.Config) (contract.EventSource, error)

// NewMCPServer initializes and configures the pulse MCP server without starting it.
// A nil factory selects the source from the config.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, newSource SourceFactory) *server.MCPServer {
	s := server.NewMCPServer(
		"Pulse Activity Server",
		"1.0.0",
		server.WithLogging(),
	)

	if newSource == nil {
		newSource = source.New
	}
	h := &toolHandler{
		baseCfg:   baseCfg,
		mgr:       mgr,
		panels:    core.NewPanelController(baseCfg.Panels...),
		newSource: newSource,
	}

	rangeOptions := []mcp.ToolOption{
		mcp.WithString("start", mcp.Description("Start of the range (RFC3339, YYYY-MM-DD or e.g. '2 weeks ago').")),
		mcp.WithString("end", mcp.Description("End of the range. Defaults to now.")),
		mcp.WithString("lookback", mcp.Description("Window before the end when no start is given (e.g. '14 days').")),
	}

	// --- 1. Tool: get_scores ---
	s.AddTool(mcp.NewTool("get_scores", append([]mcp.ToolOption{
		mcp.WithDescription("Score commit and merge request activity of a project over a date range."),
		mcp.WithString("project", mcp.Description("Project ID or path."), mcp.Required()),
		mcp.WithString("weights", mcp.Description("Weight overrides such as 'commit:2,merge_request:0.5'.")),
	}, rangeOptions...)...), h.handleGetScores)

	// --- 2. Tool: get_series ---
	s.AddTool(mcp.NewTool("get_series", append([]mcp.ToolOption{
		mcp.WithDescription("Bucket project activity per category and return the visible series of each panel."),
		mcp.WithString("project", mcp.Description("Project ID or path."), mcp.Required()),
		mcp.WithString("granularity", mcp.Description("Bucket width."), mcp.Enum("hour", "day", "week", "month")),
		mcp.WithString("panels", mcp.Description("Comma separated panel IDs. Defaults to every mounted panel.")),
	}, rangeOptions...)...), h.handleGetSeries)

	// --- 3. Tool: toggle_panel ---
	s.AddTool(mcp.NewTool("toggle_panel",
		mcp.WithDescription("Flip a category on a panel. Panels are independent and keep their state for the session."),
		mcp.WithString("panel", mcp.Description("Panel ID, e.g. 'A'."), mcp.Required()),
		mcp.WithString("category", mcp.Description("Category to flip."), mcp.Required(), mcp.Enum("commit", "merge_request")),
	), h.handleTogglePanel)

	// --- 4. Tool: get_panel_series ---
	s.AddTool(mcp.NewTool("get_panel_series", append([]mcp.ToolOption{
		mcp.WithDescription("Return the visible series of a single panel for a project."),
		mcp.WithString("panel", mcp.Description("Panel ID."), mcp.Required()),
		mcp.WithString("project", mcp.Description("Project ID or path."), mcp.Required()),
		mcp.WithString("granularity", mcp.Description("Bucket width."), mcp.Enum("hour", "day", "week", "month")),
	}, rangeOptions...)...), h.handleGetPanelSeries)

	return s
}

// StartMCPServer starts the pulse MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr, nil)
	return server.ServeStdio(s)
}
