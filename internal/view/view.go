// Package view renders the HTML fragments of the backend module. The
// transport wraps them in its page layout.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

var views = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

var funcs = template.FuncMap{
	"bytes": func(n int64) string { return humanize.Bytes(uint64(n)) },
	"ago":   humanize.Time,
	"since": func(raw string) string {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return raw
		}
		return humanize.Time(t)
	},
	"count": humanize.Comma,
	// query builds a relative "?k=v&..." link from key/value pairs.
	"query": func(pairs ...string) (template.URL, error) {
		if len(pairs)%2 != 0 {
			return "", fmt.Errorf("query needs key/value pairs, got %d args", len(pairs))
		}
		q := url.Values{}
		for i := 0; i < len(pairs); i += 2 {
			q.Set(pairs[i], pairs[i+1])
		}
		if len(q) == 0 {
			return "?", nil
		}
		return template.URL("?" + q.Encode()), nil
	},
}

// Render executes the named template, for example "installed.html".
func Render(name string, data any) (string, error) {
	var b strings.Builder
	if err := views.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}

// Names lists the available templates.
func Names() []string {
	var names []string
	for _, t := range views.Templates() {
		if strings.HasSuffix(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}
	return names
}
