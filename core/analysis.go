package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/outwriter"
	"github.com/huangsam/pulse/schema"
)

// analysisOutput carries everything one pass of the engine produced.
type analysisOutput struct {
	Project schema.Project
	Events  []schema.EventRecord
	Report  schema.NormalizeReport
	Scores  []schema.CategoryScore
	Buckets []schema.TimeBucket // nil unless requested
}

// runAnalysisCore performs the common Fetch, Normalize, Score and Bucketize steps
// and records the run in the analysis store when one is configured.
func runAnalysisCore(ctx context.Context, cfg *contract.Config, src contract.EventSource, mgr contract.CacheManager, withBuckets bool) (*analysisOutput, error) {
	rng := cfg.Range()
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	policy, err := NewWeightPolicy(cfg.Weights)
	if err != nil {
		return nil, err
	}

	// --- 0. Begin Analysis Tracking (if configured) ---
	var analysisID int64
	var analysisStore contract.AnalysisStore
	if mgr != nil {
		analysisStore = mgr.GetAnalysisStore()
	}
	if analysisStore != nil {
		configParams := map[string]any{
			"source":      string(cfg.Source),
			"weights":     policy.Weights(),
			"panels":      cfg.Panels,
			"with_series": withBuckets,
		}
		analysisID, err = analysisStore.BeginAnalysis(time.Now(), cfg.ProjectID, rng, cfg.Granularity, configParams)
		if err != nil {
			contract.LogWarn("Analysis tracking initialization failed", err)
		}
	}

	// --- 1. Fetch Phase (with caching) ---
	batch, err := cachedFetch(ctx, cfg, src, mgr)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s failed: %w", src.Name(), err)
	}
	project := batch.Project
	if project.ID == "" {
		project.ID = cfg.ProjectID
	}

	if !shouldSuppressHeader(ctx) {
		outwriter.LogAnalysisHeader(cfg, project)
	}

	// --- 2. Normalization ---
	events, report := NormalizeBatch(project.ID, batch)
	if report.Skipped() > 0 && !shouldSuppressHeader(ctx) {
		contract.LogWarn("Skipped raw records",
			fmt.Errorf("%d of %d (%d malformed, %d unknown category)", report.Skipped(), report.Total, report.Malformed, report.UnknownCategory))
	}

	out := &analysisOutput{Project: project, Events: events, Report: report}

	// --- 3. Scoring ---
	out.Scores, err = ScoreCategories(events, rng, policy)
	if err != nil {
		return nil, err
	}

	// --- 4. Bucketization ---
	if withBuckets {
		out.Buckets, err = Bucketize(events, rng, cfg.Granularity)
		if err != nil {
			return nil, err
		}
	}

	// --- 5. End Analysis Tracking ---
	if analysisStore != nil && analysisID > 0 {
		if err := analysisStore.RecordScores(analysisID, out.Scores); err != nil {
			contract.LogWarn("Failed to record category scores", err)
		}
		if out.Buckets != nil {
			if err := analysisStore.RecordBuckets(analysisID, out.Buckets); err != nil {
				contract.LogWarn("Failed to record time buckets", err)
			}
		}
		if err := analysisStore.EndAnalysis(analysisID, time.Now(), report); err != nil {
			contract.LogWarn("Failed to finalize analysis tracking", err)
		}
	}

	return out, nil
}

// applyToggles replays the configured toggles on the controller in order.
func applyToggles(pc *PanelController, cfg *contract.Config) error {
	for _, id := range cfg.Panels {
		if _, err := pc.Mount(id); err != nil {
			return err
		}
	}
	for _, t := range cfg.Toggles {
		if _, err := pc.Toggle(t.PanelID, t.Category); err != nil {
			return err
		}
	}
	return nil
}

// ConfiguredPanels returns a controller with the configured panels mounted
// and the configured toggles replayed on it.
func ConfiguredPanels(cfg *contract.Config) (*PanelController, error) {
	pc := NewPanelController()
	if err := applyToggles(pc, cfg); err != nil {
		return nil, err
	}
	return pc, nil
}

// panelSeries builds the visible series of every requested panel.
func panelSeries(pc *PanelController, panelIDs []string, buckets []schema.TimeBucket) []schema.PanelSeries {
	series := make([]schema.PanelSeries, 0, len(panelIDs))
	for _, id := range panelIDs {
		state, _ := pc.State(id)
		series = append(series, schema.PanelSeries{
			PanelID: id,
			Enabled: state.Enabled,
			Buckets: FilterBuckets(buckets, state),
		})
	}
	return series
}

// RunScore fetches and scores one project. It never prints results.
func RunScore(ctx context.Context, cfg *contract.Config, src contract.EventSource, mgr contract.CacheManager) (*schema.ScoreResult, error) {
	out, err := runAnalysisCore(ctx, cfg, src, mgr, false)
	if err != nil {
		return nil, err
	}
	return &schema.ScoreResult{
		Project: out.Project,
		Range:   cfg.Range(),
		Scores:  out.Scores,
		Report:  out.Report,
	}, nil
}

// RunSeries fetches and bucketizes one project and filters the series through
// each panel of pc. A nil pc builds a fresh controller from the configured panels and toggles.
func RunSeries(ctx context.Context, cfg *contract.Config, src contract.EventSource, mgr contract.CacheManager, pc *PanelController) (*schema.SeriesResult, error) {
	panelIDs := cfg.Panels
	if pc == nil {
		var err error
		if pc, err = ConfiguredPanels(cfg); err != nil {
			return nil, err
		}
	} else if len(panelIDs) == 0 {
		panelIDs = pc.Panels()
	}

	out, err := runAnalysisCore(ctx, cfg, src, mgr, true)
	if err != nil {
		return nil, err
	}
	return &schema.SeriesResult{
		Project:     out.Project,
		Range:       cfg.Range(),
		Granularity: cfg.Granularity,
		Buckets:     out.Buckets,
		Panels:      panelSeries(pc, panelIDs, out.Buckets),
		Report:      out.Report,
	}, nil
}
