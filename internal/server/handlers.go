package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/narrate"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

// uploadPreviewRows is the number of rows shown after a successful upload.
const uploadPreviewRows = 5

type dashboardPage struct {
	View        *dashboard.View
	Uploaded    bool
	Theme       string
	All         []dataset.Metric
	Selected    map[dataset.Metric]bool
	Rolling     *stats.Frame
	Narrative   *narrate.Narrative
	CanNarrate  bool
	MaxUploadMB int64
}

type uploadPage struct {
	Theme    string
	FileName string
	Error    string
	Required []string
	Missing  []string
	Preview  *dataset.Table
	Rows     int
}

// parseFilter reads the selection from the query. The hidden "filter" field
// marks a submitted form, so a form with every metric unchecked selects none
// instead of all.
func parseFilter(q url.Values) (dashboard.Filter, error) {
	f := dashboard.Filter{Month: q.Get("month")}
	metrics, err := dataset.ParseMetrics(q["metrics"])
	if err != nil {
		return f, err
	}
	if metrics == nil && q.Has("filter") {
		metrics = []dataset.Metric{}
	}
	f.Metrics = metrics
	return f, nil
}

func theme(q url.Values) string {
	if q.Get("theme") == "dark" {
		return "dark"
	}
	return "light"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// view resolves the session and builds the dashboard for the request.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (*dashboard.View, bool, error) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		return nil, false, err
	}
	sess := s.sessions.Lookup(w, r)
	uploaded := sess.Override() != nil
	return s.views.Build(sess.Active(s.def), f), uploaded, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, uploaded, err := s.view(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	selected := make(map[dataset.Metric]bool, len(v.Metrics))
	for _, m := range v.Metrics {
		selected[m] = true
	}
	page := dashboardPage{
		View:        v,
		Uploaded:    uploaded,
		Theme:       theme(r.URL.Query()),
		All:         dataset.AllMetrics(),
		Selected:    selected,
		CanNarrate:  s.narrator != nil,
		MaxUploadMB: s.maxUpload >> 20,
	}
	if v.Rolling != nil {
		page.Rolling = tailFrame(v.Rolling, rollingRows)
	}
	if s.narrator != nil && r.URL.Query().Get("narrate") == "1" {
		n := s.narrator.Narrate(r.Context(), v)
		page.Narrative = &n
	}
	s.render(w, http.StatusOK, "dashboard.html", page)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	page := uploadPage{Theme: theme(r.URL.Query()), Required: dataset.RequiredColumns()}
	if r.ContentLength > s.maxUpload {
		s.uploadFailed(w, r, http.StatusRequestEntityTooLarge, page,
			fmt.Sprintf("file is larger than %d bytes", s.maxUpload))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadFailed(w, r, http.StatusRequestEntityTooLarge, page,
				fmt.Sprintf("file is larger than %d bytes", tooLarge.Limit))
			return
		}
		s.uploadFailed(w, r, http.StatusBadRequest, page, "invalid upload form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.uploadFailed(w, r, http.StatusBadRequest, page, "no file uploaded")
		return
	}
	defer file.Close()
	page.FileName = header.Filename

	sess := s.sessions.Lookup(w, r)
	t, err := sess.Upload(file, header.Filename, nil)
	if err != nil {
		var missing *dataset.MissingColumnsError
		if errors.As(err, &missing) {
			page.Missing = missing.Missing
		}
		s.logger.Warn("upload rejected", "session", sess.ID, "file", header.Filename, "error", err)
		s.uploadFailed(w, r, http.StatusBadRequest, page, err.Error())
		return
	}
	s.logger.Info("dataset uploaded", "session", sess.ID, "file", header.Filename, "rows", t.Len())

	if s.store != nil {
		if _, err := s.store.SaveDataset(t, "upload"); err != nil {
			s.logger.Warn("persisting upload failed", "file", header.Filename, "error", err)
		}
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"dataset": datasetJSON{ID: t.ID, Name: t.Name, Source: t.Source, Rows: t.Len()},
			"preview": rowsJSON(t.Head(uploadPreviewRows)),
		})
		return
	}
	page.Rows = t.Len()
	page.Preview = t.Head(uploadPreviewRows)
	s.render(w, http.StatusOK, "upload.html", page)
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, status int, page uploadPage, msg string) {
	if wantsJSON(r) {
		writeJSON(w, status, map[string]any{
			"error":            msg,
			"missing_columns":  page.Missing,
			"required_columns": page.Required,
		})
		return
	}
	page.Error = msg
	s.render(w, status, "upload.html", page)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(w, r)
	sess.Reset()
	s.logger.Info("session reset", "session", sess.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func tailFrame(f *stats.Frame, n int) *stats.Frame {
	if f.Len() <= n {
		return f
	}
	from := f.Len() - n
	return &stats.Frame{
		Metrics: f.Metrics,
		Dates:   f.Dates[from:],
		Values:  f.Values[from:],
	}
}
