package outwriter

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/olekukonko/tablewriter"
)

// disabledCategories returns the known categories missing from the snapshot.
func disabledCategories(state schema.PanelToggleState) []schema.Category {
	var out []schema.Category
	for _, c := range schema.AllCategories {
		if !state.IsEnabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// PrintPanelStates outputs the toggle state of every panel.
func PrintPanelStates(states []schema.PanelToggleState, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, states)
		}, "Wrote JSON panels")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePanelsCSV(w, states)
		}, "Wrote CSV panels")
	case schema.ParquetOut, schema.HTMLOut:
		return errors.New("panels support text, csv and json output only")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePanelsTable(w, states)
		}, "Wrote table")
	}
}

func writePanelsCSV(w io.Writer, states []schema.PanelToggleState) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"panel", "category", "enabled"}); err != nil {
		return err
	}
	for _, s := range states {
		for _, c := range schema.AllCategories {
			enabled := "false"
			if s.IsEnabled(c) {
				enabled = "true"
			}
			if err := csvWriter.Write([]string{s.PanelID, string(c), enabled}); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func writePanelsTable(w io.Writer, states []schema.PanelToggleState) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Panel", "Enabled", "Disabled"})

	var data [][]string
	for _, s := range states {
		data = append(data, []string{
			s.PanelID,
			contract.HighColor.Sprint(schema.FormatCategories(s.Enabled)),
			contract.IdleColor.Sprint(schema.FormatCategories(disabledCategories(s))),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
