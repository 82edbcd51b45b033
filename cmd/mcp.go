package cmd

import (
	"github.com/huangsam/pulse/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the pulse MCP server",
	Long:  `Launch an MCP server that allows AI agents to score activity and drive panels via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Headers are suppressed per tool call so stdio stays clean for the protocol
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
