package util

import (
	"bytes"
	"strings"
	"text/template"
)

// RenderTemplate substitutes {{.key}} style variables in text using Go's
// text/template. Prompt files without template markers pass through
// untouched so plain instruction text never fails to parse.
func RenderTemplate(text string, vars map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("prompt").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
