// Package report renders a dashboard view as a text report or a workbook.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/narrate"
)

// Options control the text report.
type Options struct {
	PreviewRows int // rows in [PREVIEW]; 0 omits the section
	TopPairs    int // pairs in [CORRELATIONS]; 0 lists all
	Narrative   *narrate.Narrative
}

// DefaultOptions returns the CLI defaults.
func DefaultOptions() Options {
	return Options{PreviewRows: 10, TopPairs: 5}
}

// Markdown renders v as a markdown report.
func Markdown(v *dashboard.View, opts Options) string {
	var sections []string

	header := fmt.Sprintf("# Fitness report: %s\n\n", v.DatasetName)
	if v.Month == "" {
		header += "No dated rows in this dataset."
	} else {
		header += fmt.Sprintf("Month: **%s** (%d days of %d rows)", v.MonthLabel, v.KPIs.Days, v.Rows)
	}
	sections = append(sections, header)

	sections = append(sections, "## [QUICK STATS]\n\n"+strings.Join([]string{
		"- Total steps: " + Count(v.KPIs.TotalSteps),
		"- Average sleep: " + Hours(v.KPIs.AvgSleepHours),
		"- Total calories: " + Count(v.KPIs.TotalCalories),
	}, "\n"))

	var ins []string
	for _, in := range v.Insights {
		ins = append(ins, "- "+in.Text)
	}
	sections = append(sections, "## [INSIGHTS]\n\n"+strings.Join(ins, "\n"))

	if opts.Narrative != nil {
		sections = append(sections, "## [COACH]\n\n"+opts.Narrative.Markdown())
	}

	if !v.HasCharts() {
		sections = append(sections, "> "+v.Hint)
	} else {
		sections = append(sections, "## [CORRELATIONS]\n\n"+correlations(v, opts.TopPairs))
		sections = append(sections, "## [WEEKLY]\n\n"+weekly(v))
	}

	if opts.PreviewRows > 0 {
		sections = append(sections, "## [PREVIEW]\n\n"+preview(v.Preview.Head(opts.PreviewRows)))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// Count formats a total with thousands separators, "n/a" for NaN.
func Count(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return humanize.Comma(int64(math.Round(f)))
}

// Hours formats an average like "7.2 hrs", "n/a" for NaN.
func Hours(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f hrs", f)
}

// Number formats a metric value for tables.
func Number(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return humanize.CommafWithDigits(f, 2)
}

func correlations(v *dashboard.View, limit int) string {
	pairs := v.Correlation.TopPairs(limit)
	if len(pairs) == 0 {
		return "Not enough variation to correlate the selected metrics."
	}
	lines := []string{"| Metric | Metric | r |", "|---|---|---|"}
	for _, p := range pairs {
		lines = append(lines, fmt.Sprintf("| %s | %s | %+.2f |", p.A.Label(), p.B.Label(), p.R))
	}
	return strings.Join(lines, "\n")
}

func weekly(v *dashboard.View) string {
	f := v.Weekly
	if f.Len() == 0 {
		return "No dated rows."
	}
	head := []string{"Week ending"}
	for _, m := range f.Metrics {
		head = append(head, m.Label())
	}
	lines := []string{tableRow(head), tableRule(len(head))}
	for i, d := range f.Dates {
		cells := []string{d.Format("2006-01-02")}
		for _, x := range f.Values[i] {
			cells = append(cells, Number(x))
		}
		lines = append(lines, tableRow(cells))
	}
	return strings.Join(lines, "\n")
}

func preview(t *dataset.Table) string {
	if t.Len() == 0 {
		return "No rows."
	}
	head := dataset.RequiredColumns()
	lines := []string{tableRow(head), tableRule(len(head))}
	for _, o := range t.Rows {
		cells := []string{""}
		if o.HasDate() {
			cells[0] = o.Date.Format("2006-01-02")
		}
		for _, m := range dataset.AllMetrics() {
			cells = append(cells, dataset.FormatValue(o.Value(m)))
		}
		lines = append(lines, tableRow(cells))
	}
	return strings.Join(lines, "\n")
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func tableRule(n int) string {
	return "|" + strings.Repeat("---|", n)
}
