// Package outwriter renders pulse results as tables, CSV, JSON, Parquet or HTML charts.
package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/pulse/internal/contract"
	"golang.org/x/term"
)

const (
	defaultTermWidth = 80
	minBarWidth      = 10
	maxBarWidth      = 50
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// createFormatters creates the float formatter shared by every output type.
func createFormatters(precision int) func(float64) string {
	return func(v float64) string {
		return fmt.Sprintf("%.*f", precision, v)
	}
}

// terminalWidth returns the --width override, the detected terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detected, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detected <= 0 {
		// Conservative default for narrow terminals and CI
		return defaultTermWidth
	}
	return detected
}

// barWidth returns the room left for the activity bar once the fixed columns are laid out.
func barWidth(cfg *contract.Config, fixedColumns int) int {
	available := terminalWidth(cfg) - fixedColumns
	return max(minBarWidth, min(available, maxBarWidth))
}

// bar draws value as a proportion of peak using width cells.
func bar(value, peak, width int) string {
	if peak <= 0 || value <= 0 {
		return ""
	}
	n := max(1, value*width/peak)
	return strings.Repeat("█", n)
}
