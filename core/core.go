// Package core has the activity engine: normalization, scoring, bucketization and panel selection,
// plus the entry points that drive it for the CLI.
package core

import (
	"context"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/outwriter"
	"github.com/huangsam/pulse/internal/source"
	"github.com/huangsam/pulse/schema"
)

// ExecutorFunc defines the function signature for executing the different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteScore fetches the project activity, scores every category and prints the result.
// It serves as the main entry point for the 'score' command.
func ExecuteScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	src, err := source.New(cfg)
	if err != nil {
		return err
	}
	result, err := RunScore(ctx, cfg, src, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintScoreResult(result, cfg, time.Since(start))
}

// ExecuteSeries fetches the project activity, builds the bucket series and prints
// the visible series of every configured panel.
// It serves as the main entry point for the 'series' command.
func ExecuteSeries(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	src, err := source.New(cfg)
	if err != nil {
		return err
	}
	result, err := RunSeries(ctx, cfg, src, mgr, nil)
	if err != nil {
		return err
	}
	return outwriter.PrintSeriesResult(result, cfg, time.Since(start))
}

// ExecutePanels applies the configured toggles and prints the resulting panel states.
// No activity is fetched.
func ExecutePanels(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	pc, err := ConfiguredPanels(cfg)
	if err != nil {
		return err
	}
	states := make([]schema.PanelToggleState, 0, len(cfg.Panels))
	for _, id := range cfg.Panels {
		state, _ := pc.State(id)
		states = append(states, state)
	}
	return outwriter.PrintPanelStates(states, cfg)
}

// ExecuteWeights prints the effective weight policy and the score formula.
// No activity is fetched.
func ExecuteWeights(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	policy, err := NewWeightPolicy(cfg.Weights)
	if err != nil {
		return err
	}
	return outwriter.PrintWeights(policy.Weights(), cfg)
}
