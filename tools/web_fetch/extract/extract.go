// Package extract turns raw HTML into the readable text of a page.
package extract

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/threader/tools/web_fetch/models"
)

// Content is what both fetch backends hand back to the caller.
type Content struct {
	Title    string
	Byline   string
	SiteName string
	Text     string
	HTMLHash string
}

// boilerplate is removed before the visible-text fallback walks the tree.
const boilerplate = "script, style, noscript, svg, template, iframe, header, nav, footer, aside, menu, form"

// FromHTML runs readability over the page and falls back to visible text when the
// article heuristics find nothing. Text is capped at maxChars bytes (0 = unlimited).
func FromHTML(html, pageURL string, maxChars int) (Content, error) {
	sum := sha1.Sum([]byte(html))
	out := Content{HTMLHash: hex.EncodeToString(sum[:])}

	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
		out.Title = strings.TrimSpace(article.Title)
		out.Byline = strings.TrimSpace(article.Byline)
		out.SiteName = strings.TrimSpace(article.SiteName)
		out.Text = Normalize(article.TextContent)
	}

	if out.Text == "" {
		title, text, err := VisibleText(html)
		if err != nil {
			return out, err
		}
		if out.Title == "" {
			out.Title = title
		}
		out.Text = text
	}
	if out.Text == "" {
		return out, models.ErrNoText
	}
	out.Text = Truncate(out.Text, maxChars)
	return out, nil
}

// FromText is FromHTML for text/plain bodies.
func FromText(text string, maxChars int) (Content, error) {
	sum := sha1.Sum([]byte(text))
	out := Content{HTMLHash: hex.EncodeToString(sum[:]), Text: Normalize(text)}
	if out.Text == "" {
		return out, models.ErrNoText
	}
	out.Text = Truncate(out.Text, maxChars)
	return out, nil
}

// VisibleText returns the document title and the text of the body with boilerplate
// elements stripped.
func VisibleText(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(boilerplate).Remove()

	var lines []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if line := collapseSpaces(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return title, Normalize(doc.Find("body").Text()), nil
	}
	return title, strings.Join(lines, "\n"), nil
}

// Normalize trims each line, collapses inner whitespace and drops empty lines.
func Normalize(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = collapseSpaces(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
