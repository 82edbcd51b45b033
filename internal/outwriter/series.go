package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/parquet"
	"github.com/huangsam/pulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSeriesResult outputs the visible series of every panel, dispatching based on the output format configured.
func PrintSeriesResult(result *schema.SeriesResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON series")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSeriesCSV(w, result)
		}, "Wrote CSV series")
	case schema.ParquetOut:
		if err := parquet.WriteFile(parquet.SeriesRows(result), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
		return nil
	case schema.HTMLOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSeriesHTML(w, result)
		}, "Wrote HTML chart")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSeriesTables(w, result, cfg, duration)
		}, "Wrote table")
	}
}

// writeSeriesCSV writes one row per panel, bucket and enabled category.
func writeSeriesCSV(w io.Writer, result *schema.SeriesResult) error {
	csvWriter := csv.NewWriter(w)
	header := []string{"panel", "bucket_start", "bucket_end", "category", "count"}
	if err := csvWriter.Write(header); err != nil {
		return err
	}
	for _, p := range result.Panels {
		for _, b := range p.Buckets {
			for _, c := range p.Enabled {
				row := []string{
					p.PanelID,
					b.Start.Format(contract.DateTimeFormat),
					b.End.Format(contract.DateTimeFormat),
					string(c),
					strconv.Itoa(b.Counts[c]),
				}
				if err := csvWriter.Write(row); err != nil {
					return err
				}
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// writeSeriesTables prints one table per panel with a column per enabled category.
func writeSeriesTables(w io.Writer, result *schema.SeriesResult, cfg *contract.Config, duration time.Duration) error {
	for i, p := range result.Panels {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writePanelTable(w, result.Granularity, p, cfg); err != nil {
			return err
		}
	}

	if err := writeReportSummary(w, result.Report); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Bucketized %d %s buckets in %v. Cache backend: %s\n",
		len(result.Buckets), result.Granularity, duration, cfg.CacheBackend)
	return err
}

func writePanelTable(w io.Writer, g schema.Granularity, p schema.PanelSeries, cfg *contract.Config) error {
	if _, err := fmt.Fprintf(w, "📈 Panel %s: %s\n", p.PanelID, schema.FormatCategories(p.Enabled)); err != nil {
		return err
	}

	peak := 0
	for _, b := range p.Buckets {
		peak = max(peak, schema.CountsTotal(b.Counts))
	}

	headers := []string{"Bucket"}
	for _, c := range p.Enabled {
		headers = append(headers, c.DisplayName())
	}
	headers = append(headers, "Total", "Activity")

	// Bucket label, counts, total and table borders
	width := barWidth(cfg, 20+12*(len(p.Enabled)+1))

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, b := range p.Buckets {
		row := []string{schema.BucketLabel(b.Start, g)}
		for _, c := range p.Enabled {
			row = append(row, humanize.Comma(int64(b.Counts[c])))
		}
		total := schema.CountsTotal(b.Counts)
		row = append(row, humanize.Comma(int64(total)), bar(total, peak, width))
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
