package cmd

import (
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/spf13/cobra"
)

// weightsCmd displays the weight policy and score formulas.
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Display the score formula and weight of every category",
	Long: `Show how each category score is computed with the current weights.

Weights come from the 'weights' map of .pulse.yaml, then --weights-override.
Categories without a weight use 1.

No activity is fetched - this is purely informational.

Examples:
  # Show the default weights
  pulse weights

  # Check an override before scoring
  pulse weights --weights-override merge_request:2.5`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteWeights(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display weights", err)
		}
	},
}
