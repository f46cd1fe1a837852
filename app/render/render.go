package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Pages lists the renderable pages by template path without extension.
var Pages = []string{
	"blog/index",
	"blog/about",
	"blog/category",
	"blog/post",
	"auth/login",
	"errors/404",
	"errors/500",
}

// Renderer executes a page template inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"ago":  humanize.Time,
	"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"year": func() int { return time.Now().Year() },
	"truncate": func(s string, n int) string {
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return strings.TrimSpace(string(runes[:n])) + "..."
	},
	"paragraphs": paragraphs,
}

// paragraphs splits text on blank lines into escaped <p> elements.
func paragraphs(text string) template.HTML {
	var b strings.Builder
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(template.HTMLEscapeString(p))
		b.WriteString("</p>")
	}
	return template.HTML(b.String())
}

// New parses every page of fsys together with layout.html and partials.html.
func New(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(Pages))}
	for _, page := range Pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", "partials.html", page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render writes page with the given status. The page is rendered into a
// buffer first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
