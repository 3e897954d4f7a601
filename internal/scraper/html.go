package scraper

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

var blocks = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Tr: true, atom.Ul: true, atom.Caption: true, atom.Body: true,
}

// ExtractText returns the visible text of an HTML document. Block elements
// start new paragraphs, separated by blank lines; runs of whitespace inside
// a paragraph collapse to one space.
func ExtractText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var b textBuilder
	b.walk(root)
	b.paragraph()
	return strings.Join(b.paras, "\n\n"), nil
}

type textBuilder struct {
	paras   []string
	cur     strings.Builder
	space   bool
	newline bool
}

func (b *textBuilder) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.write(n.Data)
		return
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return
		}
		switch {
		case n.DataAtom == atom.Br:
			b.lineBreak()
			return
		case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
			b.space = true
		case blocks[n.DataAtom]:
			b.paragraph()
			defer b.paragraph()
		}
	case html.CommentNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walk(c)
	}
}

func (b *textBuilder) write(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && b.cur.Len() > 0 {
			b.space = true
		}
		return
	}

	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if (b.space || unicode.IsSpace(first)) && b.cur.Len() > 0 && !b.newline {
		b.cur.WriteByte(' ')
	}
	b.cur.WriteString(strings.Join(fields, " "))
	b.space = unicode.IsSpace(last)
	b.newline = false
}

func (b *textBuilder) lineBreak() {
	if b.cur.Len() > 0 && !b.newline {
		b.cur.WriteByte('\n')
		b.newline = true
	}
	b.space = false
}

func (b *textBuilder) paragraph() {
	if t := strings.TrimSpace(b.cur.String()); t != "" {
		b.paras = append(b.paras, t)
	}
	b.cur.Reset()
	b.space = false
	b.newline = false
}
