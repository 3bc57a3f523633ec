package helpers

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	threadPolicyOnce sync.Once
	threadPolicy     *bluemonday.Policy
)

// ThreadHTMLPolicy allows the formatting a thread post can reasonably carry:
// paragraphs, emphasis, lists and links. Scripts, handlers and javascript: URLs go.
func ThreadHTMLPolicy() *bluemonday.Policy {
	threadPolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		threadPolicy = p
	})
	return threadPolicy
}

// RenderMarkdown converts model-written markdown to sanitised HTML that templates
// can embed without escaping.
func RenderMarkdown(md string) (template.HTML, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(ThreadHTMLPolicy().SanitizeBytes(buf.Bytes())), nil
}
