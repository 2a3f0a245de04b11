package annotate

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const trailingHeading = "Additional review notes"

// Render writes doc in the given format (md, txt or html)
func Render(w io.Writer, doc *Document, format string) error {
	switch format {
	case "md":
		return RenderMarkdown(w, doc)
	case "txt":
		return RenderText(w, doc)
	case "html":
		return RenderHTML(w, doc)
	}
	return fmt.Errorf("unsupported annotation format %q", format)
}

// RenderMarkdown marks flagged paragraphs with ==highlight== and notes as blockquotes
func RenderMarkdown(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Reviewed: %s\n\n", doc.Title)
	for _, b := range doc.Blocks {
		if b.Highlighted {
			fmt.Fprintf(bw, "==%s==\n\n", b.Text)
		} else {
			fmt.Fprintf(bw, "%s\n\n", b.Text)
		}
		for _, n := range b.Notes {
			writeMarkdownNote(bw, n)
		}
	}

	if len(doc.Trailing) > 0 {
		fmt.Fprintf(bw, "---\n\n## %s\n\n", trailingHeading)
		for _, n := range doc.Trailing {
			writeMarkdownNote(bw, n)
		}
	}

	return bw.Flush()
}

func writeMarkdownNote(w io.Writer, n Note) {
	fmt.Fprintf(w, "> **Issue:** %s  \n", n.Issue)
	fmt.Fprintf(w, "> **Suggestion:** %s  \n", n.Suggestion)
	fmt.Fprintf(w, "> **Reference:** %s\n\n", n.Reference)
}

// RenderText writes a plain text copy with flagged paragraphs and indented notes
func RenderText(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "REVIEWED: %s\n%s\n\n", doc.Title, strings.Repeat("=", len("REVIEWED: ")+len(doc.Title)))
	for _, b := range doc.Blocks {
		if b.Highlighted {
			fmt.Fprintf(bw, "[FLAGGED] %s\n", b.Text)
		} else {
			fmt.Fprintf(bw, "%s\n", b.Text)
		}
		for _, n := range b.Notes {
			writeTextNote(bw, n)
		}
	}

	if len(doc.Trailing) > 0 {
		fmt.Fprintf(bw, "\n%s:\n", trailingHeading)
		for _, n := range doc.Trailing {
			writeTextNote(bw, n)
		}
	}

	return bw.Flush()
}

func writeTextNote(w io.Writer, n Note) {
	for _, line := range n.Lines() {
		fmt.Fprintf(w, "    %s\n", line)
	}
}

// RenderHTML writes a standalone HTML page with <mark> highlights and
// <aside class="review-note"> comments
func RenderHTML(w io.Writer, doc *Document) error {
	title := "Reviewed: " + doc.Title

	body := element(atom.Body, nil, element(atom.H1, nil, text(title)))
	for _, b := range doc.Blocks {
		var content *html.Node
		if b.Highlighted {
			content = element(atom.Mark, nil, text(b.Text))
		} else {
			content = text(b.Text)
		}
		body.AppendChild(element(atom.P, nil, content))
		for _, n := range b.Notes {
			body.AppendChild(noteNode(n))
		}
	}

	if len(doc.Trailing) > 0 {
		section := element(atom.Section, []html.Attribute{{Key: "class", Val: "review-notes"}},
			element(atom.H2, nil, text(trailingHeading)))
		for _, n := range doc.Trailing {
			section.AppendChild(noteNode(n))
		}
		body.AppendChild(section)
	}

	head := element(atom.Head, nil,
		element(atom.Meta, []html.Attribute{{Key: "charset", Val: "utf-8"}}),
		element(atom.Title, nil, text(title)),
		element(atom.Style, nil, text("mark{background:#ff0}.review-note{border-left:3px solid #c00;margin:0 0 1em 1em;padding-left:.5em;color:#600}")),
	)

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root.AppendChild(element(atom.Html, nil, head, body))

	return html.Render(w, root)
}

func noteNode(n Note) *html.Node {
	aside := element(atom.Aside, []html.Attribute{{Key: "class", Val: "review-note"}})
	if n.Source != "" {
		aside.Attr = append(aside.Attr, html.Attribute{Key: "data-source", Val: string(n.Source)})
	}
	for _, line := range n.Lines() {
		aside.AppendChild(element(atom.P, nil, text(line)))
	}
	return aside
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
