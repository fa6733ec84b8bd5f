// Package toast renders the transient notification pinned to the bottom-right corner.
package toast

import (
	"bytes"
	"html/template"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

var tmpl = template.Must(template.New("toast").Parse(
	`<div class="toast toast-{{.Class}}" role="status">{{.Message}}</div>`,
))

// Render returns the notification markup. Anything but success is styled as an error.
func Render(message string, severity domain.Severity) template.HTML {
	class := "error"
	if severity == domain.SeveritySuccess {
		class = "success"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Class, Message string }{class, message}); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}
