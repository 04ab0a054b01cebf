package dataset

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MonthLayout is the layout of month-period keys ("2024-03").
const MonthLayout = "2006-01"

// Observation is one day of the dataset. Missing metric values are NaN and
// a zero Date means the source value could not be parsed.
type Observation struct {
	Date   time.Time
	Values [numMetrics]float64
}

// HasDate reports whether the row carries a parsed date.
func (o Observation) HasDate() bool {
	return !o.Date.IsZero()
}

// Month returns the month-period key of the row, or "" without a date.
func (o Observation) Month() string {
	if !o.HasDate() {
		return ""
	}
	return o.Date.Format(MonthLayout)
}

// Value returns the value of metric m.
func (o Observation) Value(m Metric) float64 {
	if !m.Valid() {
		return math.NaN()
	}
	return o.Values[m]
}

// NewObservation returns a row with every metric missing.
func NewObservation(date time.Time) Observation {
	o := Observation{Date: date}
	for i := range o.Values {
		o.Values[i] = math.NaN()
	}
	return o
}

// Table is an ordered, immutable sequence of observations. Rows keep the
// order of the source file, which is assumed to be chronological.
type Table struct {
	ID       string
	Name     string
	Source   string // csv|xlsx|store
	LoadedAt time.Time
	Rows     []Observation
}

// NewTable wraps rows into a table with a fresh identifier.
func NewTable(name, source string, rows []Observation) *Table {
	return &Table{
		ID:       uuid.NewString(),
		Name:     name,
		Source:   source,
		LoadedAt: time.Now(),
		Rows:     rows,
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the values of metric m in row order.
func (t *Table) Column(m Metric) []float64 {
	out := make([]float64, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.Rows[i].Value(m)
	}
	return out
}

// Slice returns a view over rows [from, to). The result shares the backing
// rows, which is safe since tables are never mutated.
func (t *Table) Slice(from, to int) *Table {
	n := t.Len()
	from = max(0, min(from, n))
	to = max(from, min(to, n))
	out := t.derive()
	if n > 0 {
		out.Rows = t.Rows[from:to]
	}
	return out
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	return t.Slice(0, n)
}

// Tail returns the last n rows (all of them if there are fewer).
func (t *Table) Tail(n int) *Table {
	return t.Slice(t.Len()-n, t.Len())
}

// derive copies the identity of t so derived tables stay traceable to their
// source in logs. The row slice is left nil.
func (t *Table) derive() *Table {
	if t == nil {
		return &Table{}
	}
	return &Table{ID: t.ID, Name: t.Name, Source: t.Source, LoadedAt: t.LoadedAt}
}

// FormatMonth renders a month key for display ("Mar 2024"). Unknown keys
// are returned unchanged.
func FormatMonth(key string) string {
	d, err := time.Parse(MonthLayout, key)
	if err != nil {
		return key
	}
	return d.Format("Jan 2006")
}
