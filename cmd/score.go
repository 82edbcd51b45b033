package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// scoreCmd scores each activity category of a project.
var scoreCmd = &cobra.Command{
	Use:   "score [project]",
	Short: "Show the commit and merge request scores of a project.",
	Long: `Fetch the activity of a project and compute one score per category.

Each score is the number of category events inside the range times the
category weight. Records without a usable timestamp are skipped and
reported, never counted.

Examples:
  # Score the last 14 days of a GitLab project
  pulse score group/project

  # Score a fixed window with merge requests counting double
  pulse score 42 --start 2020-09-01 --end 2020-09-30 --weights-override merge_request:2

  # Score a local repository (commits only)
  pulse score --source git --repo ~/src/project

  # Export the scores to CSV
  pulse score 42 --output csv --output-file scores.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: projectSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteScore(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run score analysis", err)
		}
	},
}
