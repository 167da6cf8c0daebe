// Package ui renders the embedded browser chat page.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ChatPage is the data for the chat page template.
type ChatPage struct {
	Title       string
	BotName     string
	Tagline     string
	Greeting    string
	Suggestions []string
}

type Renderer struct {
	layout *template.Template
}

func NewRenderer() (*Renderer, error) {
	// layout.html defines a template named "layout" that includes the
	// page's "content" block.
	layout, err := template.New("layout").Funcs(GetFuncMap()).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	return &Renderer{layout: layout}, nil
}

// Render executes the named page template inside the layout. The layout is
// cloned per call so concurrent renders do not share parse state.
func (r *Renderer) Render(w io.Writer, pageTemplateFile string, data interface{}) error {
	tmpl, err := r.layout.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone layout: %w", err)
	}

	if _, err := tmpl.ParseFS(templatesFS, "templates/"+pageTemplateFile); err != nil {
		return fmt.Errorf("failed to parse page template %s: %w", pageTemplateFile, err)
	}

	return tmpl.ExecuteTemplate(w, "layout", data)
}
