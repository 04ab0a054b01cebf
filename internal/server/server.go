// Package server is the web presentation surface: an HTML dashboard, a JSON
// API and the upload endpoint.
package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/database"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/narrate"
	"github.com/TobiSchelling/fitdash/internal/report"
	"github.com/TobiSchelling/fitdash/internal/session"
	"github.com/TobiSchelling/fitdash/internal/stats"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// rollingRows is how many trailing rows of the rolling series the HTML page
// shows; the JSON API returns all of them.
const rollingRows = 14

// Deps are the collaborators of a Server. Store and Narrator are optional.
type Deps struct {
	Default        *dataset.Table
	Store          *database.DB
	Sessions       *session.Manager
	Views          *dashboard.Builder
	Narrator       *narrate.Narrator
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server is the HTTP server for the dashboard.
type Server struct {
	def       *dataset.Table
	store     *database.DB
	sessions  *session.Manager
	views     *dashboard.Builder
	narrator  *narrate.Narrator
	maxUpload int64
	logger    *slog.Logger
	pages     map[string]*template.Template
	mux       *http.ServeMux
}

// New creates a new Server.
func New(d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Default == nil {
		d.Default = dataset.NewTable("(no dataset)", "none", nil)
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(0, 0, false, d.Logger)
	}
	if d.Views == nil {
		return nil, errors.New("server: view builder is required")
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"monthLabel": dataset.FormatMonth,
		"count":      report.Count,
		"hours":      report.Hours,
		"num":        report.Number,
		"date":       formatDate,
		"corr":       corrCell,
		"heat":       heatCell,
		"value":      func(o dataset.Observation, m dataset.Metric) string { return dataset.FormatValue(o.Value(m)) },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so its {{define}} blocks do
	// not collide with other pages.
	pageNames := []string{"dashboard.html", "upload.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		def:       d.Default,
		store:     d.Store,
		sessions:  d.Sessions,
		views:     d.Views,
		narrator:  d.Narrator,
		maxUpload: d.MaxUploadBytes,
		logger:    d.Logger,
		pages:     pages,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server, wrapped in the logging,
// recovery and header middleware.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.recoverPanics(securityHeaders(s.mux)))
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/dashboard", s.handleAPIDashboard)
	s.mux.HandleFunc("GET /api/insights", s.handleAPIInsights)
	s.mux.HandleFunc("GET /api/narrative", s.handleAPINarrative)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /reset", s.handleReset)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", "name", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", "name", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func corrCell(c *stats.CorrMatrix, a, b dataset.Metric) string {
	return report.Number(c.Get(a, b))
}

func heatCell(h *stats.Heatmap, weekday, month string) string {
	for _, c := range h.Cells {
		if c.Weekday == weekday && c.Month == month {
			return report.Number(c.Mean)
		}
	}
	return ""
}
