// Package insight turns a month of observations into short plain-language
// observations about trend shifts and unusual recent values.
package insight

import (
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

// Kind tags what an Insight is about.
type Kind string

const (
	KindEmpty   Kind = "empty"
	KindSparse  Kind = "sparse"
	KindTrend   Kind = "trend"
	KindAnomaly Kind = "anomaly"
	KindSteady  Kind = "steady"
)

// Insight is one generated observation. Text is markdown.
type Insight struct {
	Kind   Kind
	Metric dataset.Metric // only meaningful for trend and anomaly
	Text   string
}

// HasMetric reports whether the insight refers to a single metric.
func (i Insight) HasMetric() bool {
	return i.Kind == KindTrend || i.Kind == KindAnomaly
}

const (
	textEmpty   = "No data available in the selected range."
	textSparse  = "Not enough data in this range to detect trends."
	textSteady  = "No major changes detected. You're consistent!"
	textTrend   = "Your **%s** has %s in the second half of this period."
	textAnomaly = "Unusual values in **%s** detected recently."
)

// Options are the engine thresholds.
type Options struct {
	MinHalf      int     `yaml:"min_half"`      // rows required in the first half
	ChangeRatio  float64 `yaml:"change_ratio"`  // relative mean shift that counts as a trend
	Epsilon      float64 `yaml:"epsilon"`       // added to the baseline magnitude
	RecentWindow int     `yaml:"recent_window"` // trailing rows scanned for anomalies
	Sigma        float64 `yaml:"sigma"`         // std multiples that count as unusual
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		MinHalf:      5,
		ChangeRatio:  0.1,
		Epsilon:      1e-6,
		RecentWindow: 7,
		Sigma:        2,
	}
}

// normalized fills zero fields from the defaults so a partially set
// Options value still behaves.
func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.MinHalf <= 0 {
		o.MinHalf = d.MinHalf
	}
	if o.ChangeRatio <= 0 {
		o.ChangeRatio = d.ChangeRatio
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = d.RecentWindow
	}
	if o.Sigma <= 0 {
		o.Sigma = d.Sigma
	}
	return o
}

// Engine generates insights with a fixed set of thresholds.
type Engine struct {
	opts Options
}

// New creates an Engine. Zero fields of opts take their default.
func New(opts Options) *Engine {
	return &Engine{opts: opts.normalized()}
}

// Options returns the thresholds in effect.
func (e *Engine) Options() Options { return e.opts }

// Insights returns the observations for t over the given metrics as a lazy
// sequence. The sequence can be ranged over any number of times; each pass
// recomputes the same values from t.
//
// Order: trends in metric order, then anomalies in metric order, then the
// steady fallback when nothing else was found. Empty and sparse tables yield
// exactly one insight.
func (e *Engine) Insights(t *dataset.Table, metrics []dataset.Metric) iter.Seq[Insight] {
	o := e.opts
	return func(yield func(Insight) bool) {
		n := t.Len()
		if n == 0 {
			yield(Insight{Kind: KindEmpty, Text: textEmpty})
			return
		}
		half := n / 2
		if half < o.MinHalf {
			yield(Insight{Kind: KindSparse, Text: textSparse})
			return
		}

		emitted := false
		for _, m := range metrics {
			col := t.Column(m)
			first, second := stats.Mean(col[:half]), stats.Mean(col[half:])
			change := second - first
			// NaN compares false, so a half without values never trends.
			if !(math.Abs(change) > o.ChangeRatio*(math.Abs(first)+o.Epsilon)) {
				continue
			}
			dir := "decreased"
			if change > 0 {
				dir = "increased"
			}
			emitted = true
			if !yield(Insight{Kind: KindTrend, Metric: m, Text: fmt.Sprintf(textTrend, m.Column(), dir)}) {
				return
			}
		}

		start := max(n-o.RecentWindow, 0)
		for _, m := range metrics {
			col := t.Column(m)
			if !unusual(col, col[start:], o.Sigma) {
				continue
			}
			emitted = true
			if !yield(Insight{Kind: KindAnomaly, Metric: m, Text: fmt.Sprintf(textAnomaly, m.Column())}) {
				return
			}
		}

		if !emitted {
			yield(Insight{Kind: KindSteady, Text: textSteady})
		}
	}
}

// unusual reports whether any recent value lies more than sigma standard
// deviations from the mean of all. The baseline covers the whole column,
// not only the recent window.
func unusual(all, recent []float64, sigma float64) bool {
	std := stats.StdDev(all)
	if math.IsNaN(std) || std == 0 {
		return false
	}
	mean := stats.Mean(all)
	for _, v := range recent {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs(v-mean) > sigma*std {
			return true
		}
	}
	return false
}

// Generate collects Insights into a slice.
func (e *Engine) Generate(t *dataset.Table, metrics []dataset.Metric) []Insight {
	return slices.Collect(e.Insights(t, metrics))
}

// Generate runs the default engine over t.
func Generate(t *dataset.Table, metrics []dataset.Metric) []Insight {
	return New(DefaultOptions()).Generate(t, metrics)
}

// Texts returns the markdown text of each insight.
func Texts(ins []Insight) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.Text
	}
	return out
}
