package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg   *contract.Config
	mgr       contract.CacheManager
	panels    *core.PanelController
	newSource SourceFactory
}

// requestConfig clones the base config and applies the tool arguments.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	err := contract.Revalidate(cfg, contract.RequestOverrides{
		ProjectID:   request.GetString("project", ""),
		Start:       request.GetString("start", ""),
		End:         request.GetString("end", ""),
		Lookback:    request.GetString("lookback", ""),
		Granularity: request.GetString("granularity", ""),
		Weights:     request.GetString("weights", ""),
	}, time.Now())
	return cfg, err
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}

func splitPanels(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (h *toolHandler) series(ctx context.Context, cfg *contract.Config) (*schema.SeriesResult, error) {
	src, err := h.newSource(cfg)
	if err != nil {
		return nil, err
	}
	return core.RunSeries(core.WithSuppressHeader(ctx), cfg, src, h.mgr, h.panels)
}

func (h *toolHandler) handleGetScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	src, err := h.newSource(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("source setup failed: %v", err)), nil
	}
	result, err := core.RunScore(core.WithSuppressHeader(ctx), cfg, src, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}
	return jsonResult(result), nil
}

func (h *toolHandler) handleGetSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg.Panels = splitPanels(request.GetString("panels", ""))
	result, err := h.series(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("series failed: %v", err)), nil
	}
	// Dense buckets are already reflected in the panel series
	result.Buckets = nil
	return jsonResult(result), nil
}

func (h *toolHandler) handleTogglePanel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panelID := request.GetString("panel", "")
	raw := request.GetString("category", "")
	c, ok := schema.ParseCategory(raw)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %q", schema.ErrUnknownCategory, raw)), nil
	}
	enabled, err := h.panels.Toggle(panelID, c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("toggle failed: %v", err)), nil
	}
	state, _ := h.panels.State(panelID)
	return jsonResult(map[string]any{
		"panel_id": panelID,
		"category": c,
		"enabled":  enabled,
		"state":    state.Enabled,
	}), nil
}

func (h *toolHandler) handleGetPanelSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panelID := strings.TrimSpace(request.GetString("panel", ""))
	if panelID == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%v: panel is required", schema.ErrInvalidPanel)), nil
	}
	if _, ok := h.panels.State(panelID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("panel %q is not mounted", panelID)), nil
	}
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg.Panels = []string{panelID}
	result, err := h.series(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("series failed: %v", err)), nil
	}
	return jsonResult(result.Panels[0]), nil
}
