package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/treefix50/showroom/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"shows.html", "detail.html", "tags.html", "notfound.html"}

// Show summaries come from metadata files on disk and are treated as
// untrusted HTML.
var summaryPolicy = bluemonday.UGCPolicy()

type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	base, err := template.New("layout.html").Funcs(template.FuncMap{
		"path":    url.PathEscape,
		"summary": sanitizeSummary,
		"ago":     lastScanned,
		"rating":  func(r float64) string { return fmt.Sprintf("%.1f", r) },
	}).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse layout: %w", err)
	}

	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("server: parse %s: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

func sanitizeSummary(s string) template.HTML {
	return template.HTML(summaryPolicy.Sanitize(s))
}

func lastScanned(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// listPage backs the list views: search results, a tag and an actor.
type listPage struct {
	Title    string
	Heading  string
	Query    string
	Shows    []catalog.Summary
	LastScan time.Time
}

// detailPage renders a show as a modal over the search results it was
// opened from.
type detailPage struct {
	listPage
	Show     *catalog.Show
	Previous *catalog.Summary
	Next     *catalog.Summary
}

type tagsPage struct {
	Title  string
	Genres []catalog.GenreCount
}

type notFoundPage struct {
	Title   string
	Message string
}

// render executes into a buffer first so a template failure never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := s.pages.byName[name]
	if !ok {
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
		httpError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
