// Package web holds the server-rendered pages of the portal.
package web

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"percent": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"hiddenUnless": func(visible bool) string {
		if visible {
			return ""
		}
		return "hidden"
	},
}

// Templates parses every page and partial.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
