// Package dashboard assembles everything the presentation surface shows for
// one (dataset, month, metrics) selection.
package dashboard

import (
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/insight"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

// PreviewRows is the number of raw rows carried in a View.
const PreviewRows = 50

// RollingWindow is the trailing window of the rolling-average series.
const RollingWindow = 7

// HintNoMetrics is shown in place of the charts when no metric is selected.
const HintNoMetrics = "Please select at least one metric."

// Filter is the user's selection. A nil Metrics means every metric; an
// empty, non-nil slice means none. An empty or unknown Month selects the
// latest month of the dataset.
type Filter struct {
	Month   string
	Metrics []dataset.Metric
}

// View is the computed dashboard for one selection.
type View struct {
	DatasetID   string
	DatasetName string
	Rows        int

	Months     []string
	Month      string
	MonthLabel string
	Metrics    []dataset.Metric

	KPIs     stats.KPIs
	Insights []insight.Insight

	// Chart data. Nil when no metric is selected.
	Correlation *stats.CorrMatrix
	Weekly      *stats.Frame
	Heatmap     *stats.Heatmap
	Rolling     *stats.Frame

	Preview *dataset.Table
	Hint    string
}

// HasCharts reports whether the chart sections carry data.
func (v *View) HasCharts() bool {
	return len(v.Metrics) > 0
}

// Build computes the view of t for f.
//
// KPIs and insights cover the selected month only; insights analyze every
// metric regardless of the selection. The charts and the preview cover the
// whole dataset.
func Build(t *dataset.Table, f Filter, opts insight.Options) *View {
	if t == nil {
		t = &dataset.Table{}
	}
	v := &View{
		DatasetID:   t.ID,
		DatasetName: t.Name,
		Rows:        t.Len(),
		Months:      t.Months(),
		Metrics:     f.Metrics,
	}
	if v.Metrics == nil {
		v.Metrics = dataset.AllMetrics()
	}

	v.Month = f.Month
	if v.Month == "" || !t.HasMonth(v.Month) {
		v.Month = t.LatestMonth()
	}
	v.MonthLabel = dataset.FormatMonth(v.Month)

	month := t.FilterMonth(v.Month)
	v.KPIs = stats.ComputeKPIs(month)
	v.Insights = insight.New(opts).Generate(month, dataset.AllMetrics())

	if v.HasCharts() {
		v.Correlation = stats.Correlation(t, v.Metrics)
		v.Weekly = stats.Weekly(t, v.Metrics)
		v.Heatmap = stats.WeekdayMonthHeatmap(t, v.Metrics[0])
		v.Rolling = stats.Rolling(t, v.Metrics, RollingWindow)
	} else {
		v.Hint = HintNoMetrics
	}
	v.Preview = t.Head(PreviewRows)
	return v
}
