package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// panelsCmd prints the toggle state of each configured panel.
var panelsCmd = &cobra.Command{
	Use:   "panels",
	Short: "Show which categories each panel displays.",
	Long: `Apply the configured --toggle flips to the configured --panels and print
the resulting enabled and disabled categories.

No activity is fetched.

Examples:
  # Verify toggles before running a series
  pulse panels --panels A,B --toggle A:merge_request,B:commit`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePanels(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display panels", err)
		}
	},
}
