package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/todoweb/server/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageLogin    = "login.html"
	pageRegister = "register.html"
	pageIndex    = "index.html"
	pageUpdate   = "update.html"
)

// pageData is the model every page template receives.
type pageData struct {
	Authenticated bool
	Error         string
	Username      string
	Email         string
	Todos         []types.Todo
	Todo          types.Todo
}

// Views holds the parsed page templates.
type Views struct {
	pages map[string]*template.Template
}

func NewViews() (*Views, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}

	pages := make(map[string]*template.Template)
	for _, page := range []string{pageLogin, pageRegister, pageIndex, pageUpdate} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		pages[page] = tmpl
	}
	return &Views{pages: pages}, nil
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (v *Views) render(w http.ResponseWriter, status int, page string, data pageData) error {
	tmpl, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
