package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

// Template is a text/template with sprig functions
// and a list of values that must be provided.
type Template struct {
	name     string
	required []string
	tmpl     *template.Template
}

// NewTemplate parses the text.
// Missing keys are reported as errors on Format.
func NewTemplate(name, text string, required ...string) (*Template, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %q", name)
	}
	return &Template{
		name:     name,
		required: required,
		tmpl:     tmpl,
	}, nil
}

// MustTemplate is NewTemplate that panics on error.
func MustTemplate(name, text string, required ...string) *Template {
	t, err := NewTemplate(name, text, required...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.name
}

// Format renders the template with the values.
func (t *Template) Format(values map[string]any) (string, error) {
	for _, key := range t.required {
		if _, ok := values[key]; !ok {
			return "", errors.Errorf("template %q: missing value %q", t.name, key)
		}
	}
	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to render template %q", t.name)
	}
	return buf.String(), nil
}
