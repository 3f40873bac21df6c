// internal/server/templates.go
package server

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"chefsite/internal/settings"
)

// pageData is what every layout renders. Data carries the page specifics.
type pageData struct {
	Title     string
	Active    string
	Site      settings.SiteSettings
	Footer    template.HTML
	CSRFToken string
	Flash     string
	Error     string
	Year      int
	Data      any
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"paragraphs": settings.Paragraphs,
		"imageOr": func(src string) string {
			return settings.ImageOr(src, settings.Placeholder)
		},
		"longDate": func(t time.Time) string {
			return t.Format("Monday, January 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"shortTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04")
		},
		"truncate": truncateText,
	}
}

// page builds the common layout data for the current request.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) pageData {
	site := s.settings.Get(r.Context())
	return pageData{
		Title:     title,
		Site:      site,
		Footer:    sanitizeFooter(site.FooterText),
		CSRFToken: s.csrf.Token(w, r),
		Year:      s.now().Year(),
	}
}

// render executes a cached page into a buffer first so a template error
// never leaves a half written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, pd pageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.WithField("template", name).Error("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.logger.WithError(err).WithField("template", name).Error("error rendering template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}
}
