package publisher

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPage wraps the rendered markdown in a minimal standalone document
// titled after its first H1, falling back to fallbackTitle.
func RenderPage(src, fallbackTitle string) (string, error) {
	body, err := RenderHTML(stripFrontmatter(src))
	if err != nil {
		return "", err
	}
	title := extractTitle(src)
	if title == "" {
		title = fallbackTitle
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body></html>\n")
	return b.String(), nil
}

var titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func extractTitle(md string) string {
	m := titleRe.FindStringSubmatch(md)
	if len(m) >= 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripFrontmatter(src string) string {
	if !strings.HasPrefix(src, "---\n") {
		return src
	}
	if end := strings.Index(src[4:], "\n---\n"); end >= 0 {
		return strings.TrimLeft(src[4+end+5:], "\n")
	}
	return src
}
