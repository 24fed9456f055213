// Package templates embeds the HTML the server renders.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var FS embed.FS

// Parse returns every embedded template, ready for gin's SetHTMLTemplate.
func Parse() (*template.Template, error) {
	return template.ParseFS(FS, "*.html")
}
