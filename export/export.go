// Package export renders a workflow run as a single document.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ai_content_workflow/generator"
)

// Format selects the document encoding.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown", "txt", "text" and "html"; empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Document is a rendered export ready to be written or served.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render lays out the run as markdown: a header followed by Ideas, Outline,
// Draft, Final Refined Content and Refinement Notes. Bodies are the edited
// texts, verbatim; empty sections are kept.
func Render(st *generator.State) string {
	p := st.Params
	var b strings.Builder
	fmt.Fprintf(&b, "# Topic: %s\n", p.Topic)
	fmt.Fprintf(&b, "(Type: %s, Tone: %s, Length: %s)\n", p.ContentType, p.Tone, p.Length)
	section(&b, "1. Ideas", st.Current(generator.StageIdea))
	section(&b, "2. Outline", st.Current(generator.StageOutline))
	section(&b, "3. Draft", st.Current(generator.StageDraft))
	section(&b, "4. Final Refined Content", st.Current(generator.StageRefine))
	section(&b, "5. Refinement Notes", st.Notes)
	return b.String()
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "\n## %s\n%s\n", title, body)
}

// RenderHTML converts the markdown export to HTML.
func RenderHTML(st *generator.State) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Render(st)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Build renders st in the requested format.
func Build(st *generator.State, f Format) (Document, error) {
	switch f {
	case FormatMarkdown:
		return Document{Filename: "ai_content.md", ContentType: "text/markdown; charset=utf-8", Body: []byte(Render(st))}, nil
	case FormatText:
		return Document{Filename: "ai_content.txt", ContentType: "text/plain; charset=utf-8", Body: []byte(Render(st))}, nil
	case FormatHTML:
		html, err := RenderHTML(st)
		if err != nil {
			return Document{}, fmt.Errorf("render html: %w", err)
		}
		return Document{Filename: "ai_content.html", ContentType: "text/html; charset=utf-8", Body: []byte(html)}, nil
	}
	return Document{}, fmt.Errorf("unsupported export format %q", f)
}
