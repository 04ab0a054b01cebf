package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetInsights = "Insights"
	SheetWeekly   = "Weekly"
	SheetRolling  = "Rolling"
)

// WriteXLSX writes v as a workbook with a summary, the insights and the
// weekly and rolling series. Chart sheets are left out when no metric is
// selected.
func WriteXLSX(v *dashboard.View, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetSummary); err != nil {
		return err
	}
	summary := [][]any{
		{"Dataset", v.DatasetName},
		{"Month", v.MonthLabel},
		{"Days", v.KPIs.Days},
		{"Total steps", cell(v.KPIs.TotalSteps)},
		{"Average sleep (hrs)", cell(v.KPIs.AvgSleepHours)},
		{"Total calories", cell(v.KPIs.TotalCalories)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	rows := [][]any{{"Kind", "Metric", "Text"}}
	for _, in := range v.Insights {
		metric := ""
		if in.HasMetric() {
			metric = in.Metric.Column()
		}
		rows = append(rows, []any{string(in.Kind), metric, in.Text})
	}
	if err := writeSheet(f, SheetInsights, rows); err != nil {
		return err
	}

	if v.HasCharts() {
		if err := writeSheet(f, SheetWeekly, frameRows("Week ending", v.Weekly)); err != nil {
			return err
		}
		if err := writeSheet(f, SheetRolling, frameRows("Date", v.Rolling)); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func frameRows(first string, fr *stats.Frame) [][]any {
	head := []any{first}
	for _, m := range fr.Metrics {
		head = append(head, m.Column())
	}
	rows := [][]any{head}
	for i, d := range fr.Dates {
		row := []any{nil}
		if !d.IsZero() {
			row[0] = d.Format("2006-01-02")
		}
		for _, x := range fr.Values[i] {
			row = append(row, cell(x))
		}
		rows = append(rows, row)
	}
	return rows
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cell maps NaN to an empty cell.
func cell(x float64) any {
	if math.IsNaN(x) {
		return nil
	}
	return x
}
