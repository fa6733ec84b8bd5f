// Package ui renders the bookmark page from a controller snapshot.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/controller"
	"github.com/MrSnakeDoc/marks/internal/ui/toast"
)

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("ui").
		Funcs(template.FuncMap{"toast": toast.Render}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the full HTML document.
func (r *Renderer) Page(w io.Writer, v controller.View) error {
	return r.tmpl.ExecuteTemplate(w, "page", v)
}

// Fragment renders the content of #app, pushed to the browser on every change.
func (r *Renderer) Fragment(v controller.View) (string, error) {
	var b strings.Builder
	if err := r.tmpl.ExecuteTemplate(&b, "app", v); err != nil {
		return "", err
	}
	return b.String(), nil
}
