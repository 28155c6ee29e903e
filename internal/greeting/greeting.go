// Package greeting renders the index greeting from an external template.
package greeting

import (
	"fmt"
	"strings"
	"text/template"
)

// Renderer renders the greeting for a user name. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

type data struct {
	Name string
}

// New parses the greeting template. The template receives the user name as {{.Name}}.
func New(text string) (*Renderer, error) {
	tmpl, err := template.New("index").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse greeting template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the template for name
func (r *Renderer) Render(name string) (string, error) {
	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, data{Name: name}); err != nil {
		return "", fmt.Errorf("failed to render greeting: %w", err)
	}
	return sb.String(), nil
}
