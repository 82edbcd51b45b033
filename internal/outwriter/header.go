package outwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// LogAnalysisHeader prints a concise, 2-line header before the analysis output.
// Machine-readable outputs skip it so stdout stays parseable.
func LogAnalysisHeader(cfg *contract.Config, project schema.Project) {
	if cfg.Output != "" && cfg.Output != schema.TextOut {
		return
	}
	writeAnalysisHeader(os.Stdout, cfg, project)
}

func writeAnalysisHeader(w io.Writer, cfg *contract.Config, project schema.Project) {
	name := contract.TruncateText(project.DisplayName(), max(terminalWidth(cfg)-30, 20))
	_, _ = fmt.Fprintf(w, "🔎 Project: %s (Source: %s)\n", name, sourceLabel(cfg.Source))
	_, _ = fmt.Fprintf(w, "📅 Range: %s → %s\n", cfg.StartTime.Format(contract.DateTimeFormat), cfg.EndTime.Format(contract.DateTimeFormat))
}

func sourceLabel(s schema.SourceKind) schema.SourceKind {
	if s == "" {
		return schema.GitLabSource
	}
	return s
}
