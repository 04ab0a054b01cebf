package dataset

import (
	"fmt"
	"strings"
)

// Metric is one tracked numeric column of the fitness dataset.
type Metric int

const (
	Steps Metric = iota
	Calories
	WorkoutMinutes
	SleepHours
	WaterIntake
	HeartRate

	numMetrics
)

// DateColumn is the header of the date column.
const DateColumn = "Date"

var metricInfo = [numMetrics]struct {
	column string
	label  string
	unit   string
}{
	Steps:          {"Steps", "Steps", "steps"},
	Calories:       {"Calories", "Calories", "kcal"},
	WorkoutMinutes: {"WorkoutMinutes", "Workout Minutes", "min"},
	SleepHours:     {"SleepHours", "Sleep Hours", "hrs"},
	WaterIntake:    {"WaterIntake(L)", "Water Intake", "L"},
	HeartRate:      {"HeartRate", "Heart Rate", "bpm"},
}

// AllMetrics returns every metric in column order.
func AllMetrics() []Metric {
	out := make([]Metric, numMetrics)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// RequiredColumns returns the exact header names an input file must carry.
func RequiredColumns() []string {
	cols := []string{DateColumn}
	for _, m := range AllMetrics() {
		cols = append(cols, m.Column())
	}
	return cols
}

// Column returns the CSV header name of the metric.
func (m Metric) Column() string {
	if !m.Valid() {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricInfo[m].column
}

// Label returns a human-readable name.
func (m Metric) Label() string {
	if !m.Valid() {
		return m.Column()
	}
	return metricInfo[m].label
}

// Unit returns the display unit.
func (m Metric) Unit() string {
	if !m.Valid() {
		return ""
	}
	return metricInfo[m].unit
}

// Valid reports whether m is one of the known metrics.
func (m Metric) Valid() bool {
	return m >= 0 && m < numMetrics
}

func (m Metric) String() string { return m.Column() }

// ParseMetric resolves a metric from its column name. Matching is
// case-insensitive so query strings like "sleephours" work.
func ParseMetric(name string) (Metric, error) {
	name = strings.TrimSpace(name)
	for _, m := range AllMetrics() {
		if strings.EqualFold(m.Column(), name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q (known: %s)", name, strings.Join(RequiredColumns()[1:], ", "))
}

// ParseMetrics resolves a list of metric names, dropping duplicates while
// keeping the order given. An empty list yields no metrics.
func ParseMetrics(names []string) ([]Metric, error) {
	var out []Metric
	seen := make(map[Metric]bool)
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m, err := ParseMetric(part)
			if err != nil {
				return nil, err
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
