package scraper

import (
	"fmt"
	stdhtml "html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseDocument parses body as HTML. An empty body is not a document.
func ParseDocument(body string) (*goquery.Document, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrExtractionFailed)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return doc, nil
}

// DecodeEntities unescapes HTML entities, for boards that return markup
// encoded inside another document (ASP.NET web services, JSON blobs).
func DecodeEntities(body string) string {
	return stdhtml.UnescapeString(body)
}

// CleanText collapses whitespace, including non-breaking spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the collapsed text of the first match of query under sel,
// or "" when nothing matches.
func Text(sel *goquery.Selection, query string) string {
	match := sel.Find(query).First()
	if match.Length() == 0 {
		return ""
	}
	return CleanText(match.Text())
}

// TextJoined is like Text but joins each trimmed text node with sep, so
// adjacent block elements do not run together.
func TextJoined(sel *goquery.Selection, query, sep string) string {
	match := sel.Find(query).First()
	if match.Length() == 0 {
		return ""
	}
	var parts []string
	for _, n := range match.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := CleanText(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// Attr returns an attribute of the first match of query under sel, or "".
func Attr(sel *goquery.Selection, query, name string) string {
	v, ok := sel.Find(query).First().Attr(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// ResolveLink makes href absolute against origin. Empty hrefs stay empty and
// hrefs that cannot be parsed are returned unchanged.
func ResolveLink(origin, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, err := url.Parse(origin)
	if err != nil || base.Host == "" {
		return href
	}
	return base.ResolveReference(ref).String()
}
