package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Source    schema.SourceKind `json:"source"`
	Panels    int               `json:"panels"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToggleResponse reports the outcome of one toggle.
type ToggleResponse struct {
	PanelID  string            `json:"panel_id"`
	Category schema.Category   `json:"category"`
	Enabled  bool              `json:"enabled"`
	State    []schema.Category `json:"state"`
}

// PanelSeriesResponse is the visible series of a single panel.
type PanelSeriesResponse struct {
	Project     schema.Project         `json:"project"`
	Range       schema.DateRange       `json:"range"`
	Granularity schema.Granularity     `json:"granularity"`
	Panel       schema.PanelSeries     `json:"panel"`
	Report      schema.NormalizeReport `json:"report"`
}

// respondJSON writes a JSON response. The body is encoded before the status is
// sent so an encoding failure still reaches the client as a 500.
func respondJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps an engine error to an HTTP status. Batch-level validation errors
// are the caller's fault; anything else came from the fetch collaborator.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidRange),
		errors.Is(err, schema.ErrTooManyBuckets),
		errors.Is(err, schema.ErrUnknownGranularity),
		errors.Is(err, schema.ErrNegativeWeight),
		errors.Is(err, schema.ErrInvalidWeight),
		errors.Is(err, schema.ErrInvalidPanel),
		errors.Is(err, schema.ErrUnknownCategory):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// parsePanels splits a comma separated panel list, dropping blanks and duplicates.
func parsePanels(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// requestConfig clones the base config and applies the query overrides.
func (s *Server) requestConfig(r *http.Request, projectID string) (*contract.Config, error) {
	q := r.URL.Query()
	cfg := s.baseCfg.Clone()
	err := contract.Revalidate(cfg, contract.RequestOverrides{
		ProjectID:   projectID,
		Start:       q.Get("start"),
		End:         q.Get("end"),
		Lookback:    q.Get("lookback"),
		Granularity: q.Get("granularity"),
		Weights:     q.Get("weights"),
	}, s.now())
	return cfg, err
}

// runSeries resolves the source and runs the series against the shared controller.
func (s *Server) runSeries(ctx context.Context, cfg *contract.Config) (*schema.SeriesResult, int, error) {
	src, err := s.newSource(cfg)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	result, err := core.RunSeries(core.WithSuppressHeader(ctx), cfg, src, s.mgr, s.panels)
	if err != nil {
		return nil, statusFor(err), err
	}
	s.metrics.observeReport(result.Report)
	return result, http.StatusOK, nil
}

// Health handles GET /api/health
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Source:    s.baseCfg.Source,
		Panels:    len(s.panels.Panels()),
	})
}

// GetScores handles GET /api/projects/{id}/scores
func (s *Server) GetScores(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	src, err := s.newSource(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	result, err := core.RunScore(core.WithSuppressHeader(r.Context()), cfg, src, s.mgr)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	s.metrics.observeScores(result.Scores)
	s.metrics.observeReport(result.Report)
	respondJSON(w, http.StatusOK, result)
}

// GetSeries handles GET /api/projects/{id}/series. The optional panels query
// selects panels; without it every mounted panel is returned.
func (s *Server) GetSeries(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	cfg.Panels = parsePanels(r.URL.Query().Get("panels"))
	result, status, err := s.runSeries(r.Context(), cfg)
	if err != nil {
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListPanels handles GET /api/panels
func (s *Server) ListPanels(w http.ResponseWriter, _ *http.Request) {
	ids := s.panels.Panels()
	states := make([]schema.PanelToggleState, 0, len(ids))
	for _, id := range ids {
		if state, ok := s.panels.State(id); ok {
			states = append(states, state)
		}
	}
	respondJSON(w, http.StatusOK, states)
}

// GetPanel handles GET /api/panels/{panel}
func (s *Server) GetPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	state, ok := s.panels.State(id)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("panel %q is not mounted", id))
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// MountPanel handles PUT /api/panels/{panel}
func (s *Server) MountPanel(w http.ResponseWriter, r *http.Request) {
	state, err := s.panels.Mount(chi.URLParam(r, "panel"))
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// UnmountPanel handles DELETE /api/panels/{panel}
func (s *Server) UnmountPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	if !s.panels.Unmount(id) {
		respondError(w, http.StatusNotFound, fmt.Errorf("panel %q is not mounted", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePanel handles POST /api/panels/{panel}/toggle/{category}
func (s *Server) TogglePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	raw := chi.URLParam(r, "category")
	c, ok := schema.ParseCategory(raw)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", schema.ErrUnknownCategory, raw))
		return
	}
	enabled, err := s.panels.Toggle(id, c)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	s.metrics.observeToggle(c, enabled)
	state, _ := s.panels.State(id)
	respondJSON(w, http.StatusOK, ToggleResponse{PanelID: id, Category: c, Enabled: enabled, State: state.Enabled})
}

// GetPanelSeries handles GET /api/panels/{panel}/series?project=
func (s *Server) GetPanelSeries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	if _, ok := s.panels.State(id); !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("panel %q is not mounted", id))
		return
	}
	cfg, err := s.requestConfig(r, r.URL.Query().Get("project"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	cfg.Panels = []string{id}
	result, status, err := s.runSeries(r.Context(), cfg)
	if err != nil {
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, PanelSeriesResponse{
		Project:     result.Project,
		Range:       result.Range,
		Granularity: result.Granularity,
		Panel:       result.Panels[0],
		Report:      result.Report,
	})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
