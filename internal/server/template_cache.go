package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

const (
	publicLayout = "templates/layout.html"
	adminLayout  = "templates/admin/layout.html"
)

// LoadTemplates parses every page under templates/ together with its
// layout. Pages are keyed by their path relative to templates/, e.g.
// "about.html" or "admin/dashboard.html"; admin pages get the admin layout.
func LoadTemplates(fsys fs.FS, funcMap template.FuncMap) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	err := fs.WalkDir(fsys, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".html") || p == publicLayout || p == adminLayout {
			return nil
		}

		name := strings.TrimPrefix(p, "templates/")
		layout := publicLayout
		if strings.HasPrefix(name, "admin/") {
			layout = adminLayout
		}

		tmpl, err := template.New(path.Base(layout)).Funcs(funcMap).ParseFS(fsys, layout, p)
		if err != nil {
			return fmt.Errorf("failed to parse template %s with layout %s: %w", p, layout, err)
		}
		templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking templates: %w", err)
	}
	return templates, nil
}
