package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Activity label constants.
const (
	HighValue     = "High"     // High activity
	ModerateValue = "Moderate" // Moderate activity
	LowValue      = "Low"      // Low activity
	IdleValue     = "Idle"     // No activity
)

// Activity thresholds, applied to a category score.
const (
	HighActivityScore     = 50.0
	ModerateActivityScore = 10.0
)

// Color variables for console output.
var (
	HighColor     = color.New(color.FgGreen, color.Bold) // HighColor marks a busy category.
	ModerateColor = color.New(color.FgYellow)            // ModerateColor marks steady activity.
	LowColor      = color.New(color.FgCyan)              // LowColor marks a trickle of activity.
	IdleColor     = color.New(color.FgHiBlack)           // IdleColor marks a category with no events.
)

// GetPlainLabel returns a plain text label describing how active a category was
// based on its score. This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= HighActivityScore:
		return HighValue
	case score >= ModerateActivityScore:
		return ModerateValue
	case score > 0:
		return LowValue
	default:
		return IdleValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case HighValue:
		return HighColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	case LowValue:
		return LowColor.Sprint(text)
	default:
		return IdleColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

func homeFile(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the fetch cache.
func GetCacheDBFilePath() string {
	return homeFile(".pulse_cache.db")
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for analysis storage.
func GetAnalysisDBFilePath() string {
	return homeFile(".pulse_analysis.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
