// Package render converts model-written markdown answers into sanitized
// HTML for the web UI.
package render

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// HTML renders markdown to HTML and sanitizes the result. Model output is
// untrusted, so everything outside the UGC policy is stripped.
func HTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)
	htmlBytes := markdown.Render(doc, renderer)

	sanitizer := bluemonday.UGCPolicy()
	return string(sanitizer.SanitizeBytes(htmlBytes))
}
