package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML_RendersMarkdown(t *testing.T) {
	out := HTML("# Sales\n\nTotal is **370**.")

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "Sales")
	assert.Contains(t, out, "<strong>370</strong>")
}

func TestHTML_RendersTables(t *testing.T) {
	out := HTML("| region | sales |\n|---|---|\n| North | 220 |\n")

	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>North</td>")
}

func TestHTML_StripsScript(t *testing.T) {
	out := HTML("hello <script>alert(1)</script> world")

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "alert(1)")
	assert.Contains(t, out, "hello")
}

func TestHTML_KeepsLinks(t *testing.T) {
	out := HTML("[docs](https://example.com)")

	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, ">docs</a>")
}
