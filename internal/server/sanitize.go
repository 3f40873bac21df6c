package server

import (
	"html/template"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// footerTags are the elements allowed in footer text. Every other element
// is dropped but its text is kept.
var footerTags = map[atom.Atom]bool{
	atom.A:      true,
	atom.Br:     true,
	atom.Strong: true,
	atom.Em:     true,
	atom.B:      true,
	atom.I:      true,
	atom.Span:   true,
	atom.Small:  true,
}

// sanitizeFooter lets the footer carry a little markup, links and emphasis,
// while stripping scripts, handlers and unsafe URLs.
func sanitizeFooter(input string) template.HTML {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(input), parent)
	if err != nil {
		return template.HTML(html.EscapeString(input))
	}

	var buf strings.Builder
	for _, n := range nodes {
		writeFooterNode(&buf, n)
	}
	return template.HTML(buf.String())
}

func writeFooterNode(buf *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	if n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Iframe {
		return
	}

	allowed := footerTags[n.DataAtom]
	if allowed {
		buf.WriteString("<" + n.Data)
		if n.DataAtom == atom.A {
			if href := attr(n, "href"); safeHref(href) {
				buf.WriteString(` href="` + html.EscapeString(href) + `"`)
				if strings.HasPrefix(href, "http") {
					buf.WriteString(` rel="noopener noreferrer"`)
				}
			}
		}
		buf.WriteString(">")
	}
	if n.DataAtom != atom.Br {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeFooterNode(buf, c)
		}
		if allowed {
			buf.WriteString("</" + n.Data + ">")
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func safeHref(href string) bool {
	if href == "" {
		return false
	}
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return true
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto", "tel":
		return u.Opaque != ""
	}
	return false
}
