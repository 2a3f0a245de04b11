package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLAdapter extracts visible text from HTML pages, one block element per line
type HTMLAdapter struct{}

// NewHTMLAdapter creates an HTML adapter
func NewHTMLAdapter() *HTMLAdapter { return &HTMLAdapter{} }

// Name returns the adapter name
func (a *HTMLAdapter) Name() string { return "html" }

// CanHandle accepts .html and .htm
func (a *HTMLAdapter) CanHandle(ext string) bool {
	return ext == ".html" || ext == ".htm"
}

// Extract parses the document and returns its visible text
func (a *HTMLAdapter) Extract(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	return normalizeLines(visibleText(doc)), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true,
	"blockquote": true, "pre": true, "table": true, "ul": true, "ol": true,
	"title": true,
}

// visibleText walks the tree, skipping scripts and styles, and breaks lines
// around block elements so paragraphs survive as separate lines
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			buf.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return buf.String()
}
