package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/parquet"
	"github.com/huangsam/pulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// scoreView is the JSON shape of one category score.
type scoreView struct {
	Category schema.Category `json:"category"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	Weight   float64         `json:"weight"`
	Score    float64         `json:"score"`
	Activity string          `json:"activity"`
}

func newScoreViews(scores []schema.CategoryScore) []scoreView {
	views := make([]scoreView, len(scores))
	for i, s := range scores {
		views[i] = scoreView{
			Category: s.Category,
			Label:    scoreLabel(s.Category),
			Count:    s.Count,
			Weight:   s.Weight,
			Score:    s.Value,
			Activity: contract.GetPlainLabel(s.Value),
		}
	}
	return views
}

// scoreLabel is the display name used by the activity page, such as "Commit Score".
func scoreLabel(c schema.Category) string {
	switch c {
	case schema.CommitCategory:
		return "Commit Score"
	case schema.MergeRequestCategory:
		return "Merge Request Score"
	default:
		return c.DisplayName() + " Score"
	}
}

// PrintScoreResult outputs category scores, dispatching based on the output format configured.
func PrintScoreResult(result *schema.ScoreResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreJSON(w, result)
		}, "Wrote JSON scores")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreCSV(w, result, fmtFloat)
		}, "Wrote CSV scores")
	case schema.ParquetOut:
		if err := parquet.WriteFile(parquet.ScoreRows(result), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
		return nil
	case schema.HTMLOut:
		return errors.New("html output is only available for series")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScoreTable(w, result, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

func writeScoreJSON(w io.Writer, result *schema.ScoreResult) error {
	return writeJSON(w, struct {
		Project schema.Project         `json:"project"`
		Range   schema.DateRange       `json:"range"`
		Scores  []scoreView            `json:"scores"`
		Report  schema.NormalizeReport `json:"report"`
	}{result.Project, result.Range, newScoreViews(result.Scores), result.Report})
}

func writeScoreCSV(w io.Writer, result *schema.ScoreResult, fmtFloat func(float64) string) error {
	csvWriter := csv.NewWriter(w)
	header := []string{"project_id", "category", "count", "weight", "score", "activity"}
	if err := csvWriter.Write(header); err != nil {
		return err
	}
	for _, s := range result.Scores {
		row := []string{
			result.Project.ID,
			string(s.Category),
			fmt.Sprint(s.Count),
			fmtFloat(s.Weight),
			fmtFloat(s.Value),
			contract.GetPlainLabel(s.Value),
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// writeScoreTable prints one row per category with the score labels shown on the activity page.
func writeScoreTable(w io.Writer, result *schema.ScoreResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	headers := []string{"Label", "Score", "Activity"}
	if cfg.Detail {
		headers = append(headers, "Count", "Weight")
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range result.Scores {
		row := []string{scoreLabel(s.Category), fmtFloat(s.Value), contract.GetColorLabel(s.Value)}
		if cfg.Detail {
			row = append(row, humanize.Comma(int64(s.Count)), fmtFloat(s.Weight))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if err := writeReportSummary(w, result.Report); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Scoring completed in %v. Cache backend: %s\n", duration, cfg.CacheBackend)
	return err
}

// writeReportSummary prints how many raw records were used and skipped.
func writeReportSummary(w io.Writer, report schema.NormalizeReport) error {
	if report.Skipped() == 0 {
		_, err := fmt.Fprintf(w, "Normalized %s records\n", humanize.Comma(int64(report.Total)))
		return err
	}
	_, err := fmt.Fprintf(w, "Normalized %s of %s records (%d malformed, %d unknown category)\n",
		humanize.Comma(int64(report.Accepted)), humanize.Comma(int64(report.Total)), report.Malformed, report.UnknownCategory)
	return err
}
