package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// seriesCmd builds the bucketed activity series of a project.
var seriesCmd = &cobra.Command{
	Use:   "series [project]",
	Short: "Show activity per time bucket for every panel.",
	Long: `Fetch the activity of a project, split the range into contiguous buckets
and count events per category in each bucket.

Every bucket of the range is present, including empty ones. Each panel
shows only its enabled categories; use --toggle to flip a category on a
single panel without touching the others.

Examples:
  # Daily series for the last 14 days on panels A and B
  pulse series group/project

  # Weekly series with merge requests hidden on panel A only
  pulse series 42 --granularity week --toggle A:merge_request

  # Render an interactive overlay chart
  pulse series 42 --output html --output-file activity.html`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: projectSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSeries(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run series analysis", err)
		}
	},
}
