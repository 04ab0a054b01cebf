package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/insight"
)

// twoMonths returns 31 January rows followed by 29 February rows with steps
// equal to the day of the year.
func twoMonths() *dataset.Table {
	day := dataset.ParseDate("2024-01-01")
	rows := make([]dataset.Observation, 60)
	for i := range rows {
		rows[i] = dataset.NewObservation(day.AddDate(0, 0, i))
		for _, m := range dataset.AllMetrics() {
			rows[i].Values[m] = 100
		}
		rows[i].Values[dataset.Steps] = float64(i + 1)
	}
	return dataset.NewTable("fitness.csv", "csv", rows)
}

func TestBuildDefaults(t *testing.T) {
	tbl := twoMonths()
	v := Build(tbl, Filter{}, insight.DefaultOptions())

	assert.Equal(t, tbl.ID, v.DatasetID)
	assert.Equal(t, "fitness.csv", v.DatasetName)
	assert.Equal(t, 60, v.Rows)
	assert.Equal(t, []string{"2024-01", "2024-02"}, v.Months)
	assert.Equal(t, "2024-02", v.Month, "latest month is the default")
	assert.Equal(t, "Feb 2024", v.MonthLabel)
	assert.Equal(t, dataset.AllMetrics(), v.Metrics)
	assert.Equal(t, 29, v.KPIs.Days)
	assert.Equal(t, 2900.0, v.KPIs.TotalCalories)

	require.True(t, v.HasCharts())
	assert.Len(t, v.Correlation.Metrics, 6)
	assert.Equal(t, dataset.Steps, v.Heatmap.Metric)
	assert.Equal(t, 60, v.Rolling.Len(), "charts cover the whole dataset")
	assert.Equal(t, PreviewRows, v.Preview.Len())
	assert.Empty(t, v.Hint)
}

func TestBuildMonthAndMetrics(t *testing.T) {
	tbl := twoMonths()
	v := Build(tbl, Filter{Month: "2024-01", Metrics: []dataset.Metric{dataset.SleepHours, dataset.Steps}}, insight.DefaultOptions())

	assert.Equal(t, "2024-01", v.Month)
	assert.Equal(t, 31, v.KPIs.Days)
	assert.Equal(t, float64(31*32/2), v.KPIs.TotalSteps)
	assert.Equal(t, dataset.SleepHours, v.Heatmap.Metric, "heatmap uses the first selected metric")
	assert.Len(t, v.Weekly.Metrics, 2)

	// Steps rises through January, so the month insight reports it even
	// though the trend metrics are not restricted to the selection.
	require.NotEmpty(t, v.Insights)
	assert.Equal(t, insight.KindTrend, v.Insights[0].Kind)
	assert.Equal(t, dataset.Steps, v.Insights[0].Metric)
}

func TestBuildUnknownMonthFallsBack(t *testing.T) {
	v := Build(twoMonths(), Filter{Month: "2023-12"}, insight.DefaultOptions())
	assert.Equal(t, "2024-02", v.Month)
}

func TestBuildNoMetrics(t *testing.T) {
	v := Build(twoMonths(), Filter{Metrics: []dataset.Metric{}}, insight.DefaultOptions())
	assert.False(t, v.HasCharts())
	assert.Nil(t, v.Correlation)
	assert.Nil(t, v.Weekly)
	assert.Nil(t, v.Heatmap)
	assert.Nil(t, v.Rolling)
	assert.Equal(t, HintNoMetrics, v.Hint)
	assert.NotEmpty(t, v.Insights)
}

func TestBuildEmptyTable(t *testing.T) {
	v := Build(dataset.NewTable("empty.csv", "csv", nil), Filter{}, insight.DefaultOptions())
	assert.Empty(t, v.Months)
	assert.Empty(t, v.Month)
	assert.Equal(t, 0, v.KPIs.Days)
	require.Len(t, v.Insights, 1)
	assert.Equal(t, insight.KindEmpty, v.Insights[0].Kind)
	assert.Equal(t, 0, v.Weekly.Len())

	v = Build(nil, Filter{}, insight.DefaultOptions())
	assert.Equal(t, 0, v.Rows)
}

func TestBuilderCaches(t *testing.T) {
	b := NewBuilder(insight.DefaultOptions(), 16, time.Minute, nil)
	tbl := twoMonths()

	v1 := b.Build(tbl, Filter{Month: "2024-01"})
	v2 := b.Build(tbl, Filter{Month: "2024-01"})
	assert.Same(t, v1, v2)

	v3 := b.Build(tbl, Filter{Month: "2024-02"})
	assert.NotSame(t, v1, v3)

	other := twoMonths()
	v4 := b.Build(other, Filter{Month: "2024-01"})
	assert.NotSame(t, v1, v4, "different tables never share a view")

	b.Forget()
	assert.NotSame(t, v1, b.Build(tbl, Filter{Month: "2024-01"}))
}

func TestBuilderWithoutCache(t *testing.T) {
	b := NewBuilder(insight.DefaultOptions(), 0, 0, nil)
	tbl := twoMonths()
	assert.NotSame(t, b.Build(tbl, Filter{}), b.Build(tbl, Filter{}))
	assert.Equal(t, 0, b.Size())
}

func TestCacheKey(t *testing.T) {
	all := cacheKey("id", Filter{Month: "2024-01"})
	none := cacheKey("id", Filter{Month: "2024-01", Metrics: []dataset.Metric{}})
	some := cacheKey("id", Filter{Month: "2024-01", Metrics: []dataset.Metric{dataset.Steps, dataset.HeartRate}})
	assert.NotEqual(t, all, none)
	assert.Equal(t, "id|2024-01|Steps,HeartRate", some)
}
