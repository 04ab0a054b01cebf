package server

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/insight"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

// JSON forms of the dashboard. Missing values (NaN) are encoded as null.

type datasetJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Rows   int    `json:"rows"`
}

type kpisJSON struct {
	TotalSteps    *float64 `json:"total_steps"`
	AvgSleepHours *float64 `json:"avg_sleep_hours"`
	TotalCalories *float64 `json:"total_calories"`
	Days          int      `json:"days"`
}

type insightJSON struct {
	Kind   insight.Kind `json:"kind"`
	Metric string       `json:"metric,omitempty"`
	Text   string       `json:"text"`
}

type corrJSON struct {
	Metrics []string     `json:"metrics"`
	Values  [][]*float64 `json:"values"`
}

type frameJSON struct {
	Dates  []string              `json:"dates"`
	Series map[string][]*float64 `json:"series"`
}

type heatCellJSON struct {
	Weekday string   `json:"weekday"`
	Month   string   `json:"month"`
	Mean    *float64 `json:"mean"`
	Count   int      `json:"count"`
}

type heatmapJSON struct {
	Metric   string         `json:"metric"`
	Weekdays []string       `json:"weekdays"`
	Months   []string       `json:"months"`
	Cells    []heatCellJSON `json:"cells"`
}

type viewJSON struct {
	Dataset     datasetJSON      `json:"dataset"`
	Uploaded    bool             `json:"uploaded"`
	Months      []string         `json:"months"`
	Month       string           `json:"month"`
	MonthLabel  string           `json:"month_label"`
	Metrics     []string         `json:"metrics"`
	KPIs        kpisJSON         `json:"kpis"`
	Insights    []insightJSON    `json:"insights"`
	Correlation *corrJSON        `json:"correlation"`
	Weekly      *frameJSON       `json:"weekly"`
	Heatmap     *heatmapJSON     `json:"heatmap"`
	Rolling     *frameJSON       `json:"rolling"`
	Preview     []map[string]any `json:"preview"`
	Hint        string           `json:"hint,omitempty"`
}

func nullable(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func nullables(xs []float64) []*float64 {
	out := make([]*float64, len(xs))
	for i, x := range xs {
		out[i] = nullable(x)
	}
	return out
}

func metricNames(ms []dataset.Metric) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Column()
	}
	return out
}

func insightsJSON(ins []insight.Insight) []insightJSON {
	out := make([]insightJSON, len(ins))
	for i, in := range ins {
		out[i] = insightJSON{Kind: in.Kind, Text: in.Text}
		if in.HasMetric() {
			out[i].Metric = in.Metric.Column()
		}
	}
	return out
}

func frameToJSON(f *stats.Frame) *frameJSON {
	if f == nil {
		return nil
	}
	out := &frameJSON{
		Dates:  make([]string, f.Len()),
		Series: make(map[string][]*float64, len(f.Metrics)),
	}
	for i, d := range f.Dates {
		out.Dates[i] = formatDate(d)
	}
	for _, m := range f.Metrics {
		out.Series[m.Column()] = nullables(f.Series(m))
	}
	return out
}

func rowsJSON(t *dataset.Table) []map[string]any {
	out := make([]map[string]any, t.Len())
	for i, o := range t.Rows {
		row := map[string]any{"Date": formatDate(o.Date)}
		for _, m := range dataset.AllMetrics() {
			row[m.Column()] = nullable(o.Value(m))
		}
		out[i] = row
	}
	return out
}

func toJSON(v *dashboard.View, uploaded bool) viewJSON {
	out := viewJSON{
		Dataset:    datasetJSON{ID: v.DatasetID, Name: v.DatasetName, Source: v.Preview.Source, Rows: v.Rows},
		Uploaded:   uploaded,
		Months:     v.Months,
		Month:      v.Month,
		MonthLabel: v.MonthLabel,
		Metrics:    metricNames(v.Metrics),
		KPIs: kpisJSON{
			TotalSteps:    nullable(v.KPIs.TotalSteps),
			AvgSleepHours: nullable(v.KPIs.AvgSleepHours),
			TotalCalories: nullable(v.KPIs.TotalCalories),
			Days:          v.KPIs.Days,
		},
		Insights: insightsJSON(v.Insights),
		Weekly:   frameToJSON(v.Weekly),
		Rolling:  frameToJSON(v.Rolling),
		Preview:  rowsJSON(v.Preview),
		Hint:     v.Hint,
	}
	if out.Months == nil {
		out.Months = []string{}
	}
	if c := v.Correlation; c != nil {
		out.Correlation = &corrJSON{Metrics: metricNames(c.Metrics)}
		for _, row := range c.Values {
			out.Correlation.Values = append(out.Correlation.Values, nullables(row))
		}
	}
	if h := v.Heatmap; h != nil {
		out.Heatmap = &heatmapJSON{
			Metric:   h.Metric.Column(),
			Weekdays: h.Weekdays,
			Months:   h.Months,
			Cells:    make([]heatCellJSON, len(h.Cells)),
		}
		for i, c := range h.Cells {
			out.Heatmap.Cells[i] = heatCellJSON{Weekday: c.Weekday, Month: c.Month, Mean: nullable(c.Mean), Count: c.Count}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	v, uploaded, err := s.view(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toJSON(v, uploaded))
}

func (s *Server) handleAPIInsights(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":    v.Month,
		"insights": insightsJSON(v.Insights),
	})
}

func (s *Server) handleAPINarrative(w http.ResponseWriter, r *http.Request) {
	if s.narrator == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "narration is disabled"})
		return
	}
	v, _, err := s.view(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.narrator.Narrate(r.Context(), v))
}
