package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. h1..h6 become markers at their level and
// the <title> element, when present, names the document.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseName(filename)
	if t := firstElement(doc, atom.Title); t != nil {
		if s := textContent(t); s != "" {
			title = s
		}
	}

	root := firstElement(doc, atom.Body)
	if root == nil {
		root = doc
	}

	var e emitter
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.DataAtom); level > 0 {
				e.heading(n.Data, textContent(n), level)
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Noscript:
				return
			case atom.P, atom.Li, atom.Td, atom.Blockquote, atom.Pre, atom.Figcaption, atom.Dd:
				e.paragraph(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(e.tokens) == 0 {
		return nil, ErrNoStructure
	}
	return doctree.BuildTree(title, FormatHTML, e.tokens), nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return int(a.String()[1] - '0')
	}
	return 0
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			buf.WriteString(d.Data)
		}
	}
	return strings.TrimSpace(buf.String())
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.DataAtom == a {
			return d
		}
	}
	return nil
}
