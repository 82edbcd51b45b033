package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/olekukonko/tablewriter"
)

// weightView is one row of the weight policy.
type weightView struct {
	Category schema.Category `json:"category"`
	Label    string          `json:"label"`
	Weight   float64         `json:"weight"`
	Formula  string          `json:"formula"`
}

func newWeightViews(weights map[schema.Category]float64, fmtFloat func(float64) string) []weightView {
	views := make([]weightView, 0, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		w := weights[c]
		views = append(views, weightView{
			Category: c,
			Label:    scoreLabel(c),
			Weight:   w,
			Formula:  fmt.Sprintf("%s × count(%s in range)", fmtFloat(w), c),
		})
	}
	return views
}

// PrintWeights outputs the effective weight policy and the score formula of each category.
func PrintWeights(weights map[schema.Category]float64, cfg *contract.Config) error {
	views := newWeightViews(weights, createFormatters(cfg.Precision))

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, views)
		}, "Wrote JSON weights")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsCSV(w, views)
		}, "Wrote CSV weights")
	case schema.ParquetOut, schema.HTMLOut:
		return errors.New("weights support text, csv and json output only")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeWeightsTable(w, views)
		}, "Wrote table")
	}
}

func writeWeightsCSV(w io.Writer, views []weightView) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"category", "weight", "formula"}); err != nil {
		return err
	}
	for _, v := range views {
		if err := csvWriter.Write([]string{string(v.Category), fmt.Sprint(v.Weight), v.Formula}); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writeWeightsTable(w io.Writer, views []weightView) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Label", "Category", "Score Formula"})
	var data [][]string
	for _, v := range views {
		data = append(data, []string{v.Label, string(v.Category), v.Formula})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Events outside the range and records that fail normalization never count.")
	return err
}
