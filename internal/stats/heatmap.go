package stats

import (
	"math"
	"time"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// HeatCell is the average of a metric for one weekday within one calendar
// month name.
type HeatCell struct {
	Weekday string
	Month   string
	Mean    float64
	Count   int
}

// Heatmap averages one metric by weekday and month name.
type Heatmap struct {
	Metric   dataset.Metric
	Weekdays []string // Monday..Sunday
	Months   []string // calendar order, only months present
	Cells    []HeatCell
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WeekdayMonthHeatmap buckets dated rows by (weekday, month abbreviation),
// so the same month of different years shares a bucket. Buckets with no
// values are left out.
func WeekdayMonthHeatmap(t *dataset.Table, m dataset.Metric) *Heatmap {
	type acc struct {
		sum float64
		n   int
	}
	var buckets [7][13]acc
	var monthSeen [13]bool

	for _, o := range t.Rows {
		if !o.HasDate() {
			continue
		}
		v := o.Value(m)
		if math.IsNaN(v) {
			continue
		}
		a := &buckets[o.Date.Weekday()][o.Date.Month()]
		a.sum += v
		a.n++
		monthSeen[o.Date.Month()] = true
	}

	h := &Heatmap{Metric: m}
	for _, wd := range weekdayOrder {
		h.Weekdays = append(h.Weekdays, wd.String())
	}
	for mo := time.January; mo <= time.December; mo++ {
		if !monthSeen[mo] {
			continue
		}
		name := mo.String()[:3]
		h.Months = append(h.Months, name)
		for _, wd := range weekdayOrder {
			a := buckets[wd][mo]
			if a.n == 0 {
				continue
			}
			h.Cells = append(h.Cells, HeatCell{
				Weekday: wd.String(),
				Month:   name,
				Mean:    a.sum / float64(a.n),
				Count:   a.n,
			})
		}
	}
	return h
}
