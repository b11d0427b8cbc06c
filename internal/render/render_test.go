package render

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	md := []byte("# Title\n\nSome *emphasis* and a [link](https://example.com).\n")

	out := string(RenderMarkdown(md, "gruvbox"))

	for _, want := range []string{"<h1", "Title", "<em>emphasis</em>", `href="https://example.com"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in the output, got:\n%s", want, out)
		}
	}
}

func TestRenderMarkdownHighlightsCode(t *testing.T) {
	md := []byte("```go\npackage main\n```\n")

	out := string(RenderMarkdown(md, "gruvbox"))

	if !strings.Contains(out, `<div class="highlight">`) {
		t.Errorf("Expected a highlight wrapper, got:\n%s", out)
	}
	if !strings.Contains(out, "package") {
		t.Errorf("Expected the code text in the output, got:\n%s", out)
	}
}

func TestHighlightCodeUnknownLanguage(t *testing.T) {
	out := HighlightCode("plain text here", "no-such-language", "gruvbox")

	if !strings.Contains(out, "plain text here") {
		t.Errorf("Expected the source text preserved, got:\n%s", out)
	}
}
