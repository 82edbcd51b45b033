// Package api serves scores, series and panel toggles over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/source"
)

// SourceFactory builds the fetch collaborator for one request's config.
type SourceFactory func(cfg *contract.Config) (contract.EventSource, error)

// Server holds the dependencies shared by every request. The panel controller is
// shared too, so toggles made through the API persist for the life of the process.
type Server struct {
	baseCfg   *contract.Config
	mgr       contract.CacheManager
	panels    *core.PanelController
	newSource SourceFactory
	metrics   *Metrics
	now       func() time.Time
}

// NewServer creates a server. A nil factory selects the source from the config.
func NewServer(baseCfg *contract.Config, mgr contract.CacheManager, panels *core.PanelController, newSource SourceFactory) *Server {
	if newSource == nil {
		newSource = source.New
	}
	if panels == nil {
		panels = core.NewPanelController(baseCfg.Panels...)
	}
	return &Server{
		baseCfg:   baseCfg,
		mgr:       mgr,
		panels:    panels,
		newSource: newSource,
		metrics:   NewMetrics(),
		now:       time.Now,
	}
}

// Router builds the chi router with the middleware stack and every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/api/health", s.Health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/projects/{id}", func(r chi.Router) {
		r.Get("/scores", s.GetScores)
		r.Get("/series", s.GetSeries)
	})

	r.Route("/api/panels", func(r chi.Router) {
		r.Get("/", s.ListPanels)
		r.Get("/{panel}", s.GetPanel)
		r.Put("/{panel}", s.MountPanel)
		r.Delete("/{panel}", s.UnmountPanel)
		r.Post("/{panel}/toggle/{category}", s.TogglePanel)
		r.Get("/{panel}/series", s.GetPanelSeries)
	})

	return r
}
