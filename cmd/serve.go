package cmd

import (
	"fmt"
	"log/slog"

	"github.com/huangsam/pulse/core"
	"github.com/huangsam/pulse/internal/api"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scores, series and panel toggles over HTTP",
	Long: `Start an HTTP server exposing the scoring engine and a shared set of panels.

Routes:
  GET    /api/health
  GET    /api/projects/{id}/scores?start=&end=&lookback=&weights=
  GET    /api/projects/{id}/series?granularity=&panels=
  GET    /api/panels
  GET    /api/panels/{panel}
  PUT    /api/panels/{panel}
  DELETE /api/panels/{panel}
  POST   /api/panels/{panel}/toggle/{category}
  GET    /api/panels/{panel}/series?project=
  GET    /metrics

Panel toggles persist for the life of the process.

Examples:
  # Serve on the default address
  PULSE_GITLAB_TOKEN=... pulse serve

  # Serve a JSON export on all interfaces
  pulse serve --source file --input export.json --listen :8080`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		panels, err := core.ConfiguredPanels(cfg)
		if err != nil {
			return err
		}
		server := api.NewServer(cfg, cacheManager, panels, nil)
		slog.Info("Starting pulse API", "addr", cfg.ListenAddr, "source", cfg.Source)
		if err := server.ListenAndServe(rootCtx, cfg.ListenAddr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}
