// Package mailtemplate renders notification emails through django
// (pongo2) templates, one file per event kind.
package mailtemplate

import (
	"bytes"
	"fmt"

	"github.com/gofiber/template/django/v3"

	"github.com/halomag/membership"
)

// DefaultNames maps event kinds to template file basenames.
var DefaultNames = map[membership.EventKind]string{
	membership.EventWelcome:       "welcome",
	membership.EventVerifyEmail:   "verify_email",
	membership.EventResetPassword: "reset_password",
	membership.EventNewPost:       "new_post",
}

// Engine implements membership.TemplateRenderer over a directory of
// .html django templates.
type Engine struct {
	views *django.Engine
	names map[membership.EventKind]string
}

var _ membership.TemplateRenderer = (*Engine)(nil)

// New loads every template under dir. Returns an error when the directory
// cannot be parsed; missing kinds only fail at render time.
func New(dir string) (*Engine, error) {
	views := django.New(dir, ".html")
	if err := views.Load(); err != nil {
		return nil, fmt.Errorf("loading mail templates from %s: %w", dir, err)
	}

	names := make(map[membership.EventKind]string, len(DefaultNames))
	for kind, name := range DefaultNames {
		names[kind] = name
	}

	return &Engine{
		views: views,
		names: names,
	}, nil
}

// WithName overrides the template used for an event kind.
func (e *Engine) WithName(kind membership.EventKind, name string) *Engine {
	e.names[kind] = name
	return e
}

// Render implements membership.TemplateRenderer.
func (e *Engine) Render(kind membership.EventKind, data map[string]any) (string, error) {
	name, ok := e.names[kind]
	if !ok {
		return "", fmt.Errorf("no template registered for event %q", kind)
	}

	var buf bytes.Buffer
	if err := e.views.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}

	return buf.String(), nil
}
