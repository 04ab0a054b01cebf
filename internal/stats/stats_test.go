package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

var nan = math.NaN()

// makeTable builds consecutive daily rows starting at start; vals maps a
// metric to its column.
func makeTable(start string, n int, vals map[dataset.Metric][]float64) *dataset.Table {
	day := dataset.ParseDate(start)
	rows := make([]dataset.Observation, n)
	for i := range rows {
		rows[i] = dataset.NewObservation(day.AddDate(0, 0, i))
		for m, col := range vals {
			rows[i].Values[m] = col[i]
		}
	}
	return dataset.NewTable("test", "csv", rows)
}

func TestMoments(t *testing.T) {
	xs := []float64{2, 4, nan, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 8, Count(xs))
	assert.Equal(t, 40.0, Sum(xs))
	assert.Equal(t, 5.0, Mean(xs))
	assert.InDelta(t, 2.138, StdDev(xs), 1e-3)

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Mean([]float64{nan})))
	assert.Equal(t, 0.0, Sum([]float64{nan}))
	assert.True(t, math.IsNaN(StdDev([]float64{3})))
	assert.Equal(t, 0.0, StdDev([]float64{3, 3, 3}))
}

func TestComputeKPIs(t *testing.T) {
	tbl := makeTable("2024-01-01", 3, map[dataset.Metric][]float64{
		dataset.Steps:      {1000, 2000, nan},
		dataset.SleepHours: {7, 8, 6},
		dataset.Calories:   {2000, 2100, 2200},
	})
	k := ComputeKPIs(tbl)
	assert.Equal(t, 3000.0, k.TotalSteps)
	assert.Equal(t, 7.0, k.AvgSleepHours)
	assert.Equal(t, 6300.0, k.TotalCalories)
	assert.Equal(t, 3, k.Days)

	empty := ComputeKPIs(makeTable("2024-01-01", 0, nil))
	assert.Equal(t, 0.0, empty.TotalSteps)
	assert.True(t, math.IsNaN(empty.AvgSleepHours))
}

func TestCorrelation(t *testing.T) {
	tbl := makeTable("2024-01-01", 5, map[dataset.Metric][]float64{
		dataset.Steps:      {1, 2, 3, 4, 5},
		dataset.Calories:   {10, 20, 30, 40, 50},
		dataset.SleepHours: {5, 4, 3, 2, 1},
		dataset.HeartRate:  {70, 70, 70, 70, 70},
	})
	ms := []dataset.Metric{dataset.Steps, dataset.Calories, dataset.SleepHours, dataset.HeartRate}
	c := Correlation(tbl, ms)

	assert.InDelta(t, 1, c.Get(dataset.Steps, dataset.Steps), 1e-12)
	assert.InDelta(t, 1, c.Get(dataset.Steps, dataset.Calories), 1e-12)
	assert.InDelta(t, -1, c.Get(dataset.Calories, dataset.SleepHours), 1e-12)
	assert.True(t, math.IsNaN(c.Get(dataset.Steps, dataset.HeartRate)), "constant column has no correlation")
	assert.True(t, math.IsNaN(c.Get(dataset.HeartRate, dataset.HeartRate)))
	assert.True(t, math.IsNaN(c.Get(dataset.Steps, dataset.WaterIntake)), "metric not in matrix")

	pairs := c.TopPairs(2)
	require.Len(t, pairs, 2)
	assert.InDelta(t, 1, math.Abs(pairs[0].R), 1e-12)
	assert.Len(t, c.TopPairs(0), 3)
}

func TestCorrelationPairwiseComplete(t *testing.T) {
	tbl := makeTable("2024-01-01", 4, map[dataset.Metric][]float64{
		dataset.Steps:    {1, 2, nan, 4},
		dataset.Calories: {2, 4, 100, 8},
	})
	c := Correlation(tbl, []dataset.Metric{dataset.Steps, dataset.Calories})
	assert.InDelta(t, 1, c.Get(dataset.Steps, dataset.Calories), 1e-12)
}

func TestWeekEnd(t *testing.T) {
	// 2024-01-01 is a Monday.
	assert.Equal(t, dataset.ParseDate("2024-01-07"), WeekEnd(dataset.ParseDate("2024-01-01")))
	assert.Equal(t, dataset.ParseDate("2024-01-07"), WeekEnd(dataset.ParseDate("2024-01-07")))
	assert.Equal(t, time.Sunday, WeekEnd(dataset.ParseDate("2024-02-29")).Weekday())
}

func TestWeekly(t *testing.T) {
	steps := make([]float64, 20)
	for i := range steps {
		steps[i] = 1
	}
	steps[3] = nan
	tbl := makeTable("2024-01-01", 20, map[dataset.Metric][]float64{dataset.Steps: steps})
	// drop a whole week in the middle by removing dates
	for i := 7; i < 14; i++ {
		tbl.Rows[i].Date = time.Time{}
	}

	f := Weekly(tbl, []dataset.Metric{dataset.Steps})
	require.Equal(t, 3, f.Len())
	assert.Equal(t, dataset.ParseDate("2024-01-07"), f.Dates[0])
	assert.Equal(t, dataset.ParseDate("2024-01-14"), f.Dates[1])
	assert.Equal(t, dataset.ParseDate("2024-01-21"), f.Dates[2])
	assert.Equal(t, []float64{6, 0, 6}, f.Series(dataset.Steps))
	assert.Nil(t, f.Series(dataset.Calories))

	assert.Equal(t, 0, Weekly(makeTable("2024-01-01", 0, nil), []dataset.Metric{dataset.Steps}).Len())
}

func TestWeeklyCenturiesApart(t *testing.T) {
	tbl := makeTable("2024-03-01", 2, map[dataset.Metric][]float64{dataset.Steps: {5, 7}})
	tbl.Rows[0].Date = time.Date(202, 3, 1, 0, 0, 0, 0, time.UTC)

	f := Weekly(tbl, []dataset.Metric{dataset.Steps})
	require.Greater(t, f.Len(), 1)
	last := f.Len() - 1
	assert.Equal(t, WeekEnd(tbl.Rows[0].Date), f.Dates[0])
	assert.Equal(t, dataset.ParseDate("2024-03-03"), f.Dates[last])

	series := f.Series(dataset.Steps)
	assert.Equal(t, 5.0, series[0])
	assert.Equal(t, 7.0, series[last])
}

func TestRolling(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, nan, 10}
	tbl := makeTable("2024-01-01", len(vals), map[dataset.Metric][]float64{dataset.Steps: vals})

	f := Rolling(tbl, []dataset.Metric{dataset.Steps}, 7)
	got := f.Series(dataset.Steps)
	require.Len(t, got, 10)
	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(got[i]), "row %d", i)
	}
	assert.Equal(t, 4.0, got[6])
	assert.Equal(t, 5.0, got[7])
	assert.True(t, math.IsNaN(got[8]))
	assert.True(t, math.IsNaN(got[9]))
	assert.Equal(t, tbl.Rows[6].Date, f.Dates[6])
}

func TestWeekdayMonthHeatmap(t *testing.T) {
	// Mondays: 2024-01-01 and 2024-01-08; one February Thursday.
	tbl := makeTable("2024-01-01", 9, map[dataset.Metric][]float64{
		dataset.Steps: {100, 0, 0, 0, 0, 0, 0, 300, nan},
	})
	tbl.Rows[8].Date = dataset.ParseDate("2024-02-01")
	tbl.Rows[8].Values[dataset.Steps] = 50

	h := WeekdayMonthHeatmap(tbl, dataset.Steps)
	assert.Equal(t, dataset.Steps, h.Metric)
	assert.Equal(t, "Monday", h.Weekdays[0])
	assert.Equal(t, "Sunday", h.Weekdays[6])
	assert.Equal(t, []string{"Jan", "Feb"}, h.Months)

	var mon, feb *HeatCell
	for i := range h.Cells {
		c := &h.Cells[i]
		if c.Weekday == "Monday" && c.Month == "Jan" {
			mon = c
		}
		if c.Month == "Feb" {
			feb = c
		}
	}
	require.NotNil(t, mon)
	assert.Equal(t, 200.0, mon.Mean)
	assert.Equal(t, 2, mon.Count)
	require.NotNil(t, feb)
	assert.Equal(t, "Thursday", feb.Weekday)
	assert.Equal(t, 50.0, feb.Mean)
}
