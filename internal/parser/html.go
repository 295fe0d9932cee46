package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/readpace/internal/blocks"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, opts Options) ([]blocks.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	return parseMarkup(src, opts)
}

// ParseString segments an HTML fragment or document. It never fails:
// markup the tokenizer cannot make sense of yields fewer blocks, not an error.
func ParseString(markup string, opts Options) []blocks.Block {
	seq, err := parseMarkup([]byte(markup), opts)
	if err != nil {
		return []blocks.Block{}
	}
	return seq
}

func parseMarkup(src []byte, opts Options) ([]blocks.Block, error) {
	if opts.Sanitize {
		src = sanitize(src)
	}
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Parse(doc, opts), nil
}

// Parse walks a markup tree depth-first in document order and emits one block
// per recognized element. Unrecognized elements are treated as containers and
// flattened; character data outside a recognized element is ignored.
func Parse(root *html.Node, opts Options) []blocks.Block {
	var b blocks.Builder
	if root == nil {
		return b.Blocks()
	}

	// Explicit stack so pathological nesting cannot exhaust the goroutine stack.
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode && emitElement(&b, n, opts) {
			continue
		}
		if n.Type != html.ElementNode && n.Type != html.DocumentNode {
			continue
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return b.Blocks()
}

// emitElement handles a recognized element and reports whether it consumed
// the subtree. A consumed element may still emit nothing if it is empty.
func emitElement(b *blocks.Builder, n *html.Node, opts Options) bool {
	var tables []*html.Node
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		b.AddHeading(blockText(n, &tables), headingLevel(n.DataAtom))

	case atom.P, atom.Figcaption, atom.Dt, atom.Dd, atom.Address, atom.Summary:
		b.AddParagraph(blockText(n, &tables))

	case atom.Ul, atom.Ol, atom.Menu:
		var items []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Li {
				items = append(items, blockText(c, &tables))
			}
		}
		b.AddList(items, n.DataAtom == atom.Ol)

	case atom.Blockquote:
		b.AddQuote(blockText(n, &tables))

	case atom.Pre, atom.Code:
		b.AddCode(gatherText(n, false, &tables), codeLanguage(n))

	case atom.Table:
		tables = append(tables, n)

	case atom.Script, atom.Style, atom.Noscript, atom.Template:

	default:
		return false
	}

	// Tables found inside the element never contribute to its text; with
	// HandleTables their rows follow the element's own block.
	if opts.HandleTables {
		for _, t := range tables {
			emitTableRows(b, t)
		}
	}
	return true
}

// emitTableRows emits one paragraph per row of table, header rows included.
// Rows of a table nested in a cell are not rows of this table; their text
// is folded into the enclosing cell.
func emitTableRows(b *blocks.Builder, table *html.Node) {
	var stack []*html.Node
	for c := table.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Tr:
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					if t := blocks.Normalize(textContent(c)); t != "" {
						cells = append(cells, t)
					}
				}
			}
			b.AddParagraph(strings.Join(cells, " | "))
			continue
		case atom.Table, atom.Caption:
			continue
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// inlineElements do not break words apart when their text is gathered.
var inlineElements = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Cite: true, atom.Code: true, atom.Data: true, atom.Del: true, atom.Dfn: true,
	atom.Em: true, atom.Font: true, atom.I: true, atom.Ins: true, atom.Kbd: true,
	atom.Label: true, atom.Mark: true, atom.Q: true, atom.S: true, atom.Samp: true,
	atom.Small: true, atom.Span: true, atom.Strike: true, atom.Strong: true,
	atom.Sub: true, atom.Sup: true, atom.Time: true, atom.Tt: true, atom.U: true,
	atom.Var: true, atom.Wbr: true,
}

func silent(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// textContent gathers the visible text of a subtree. Block-level descendants
// and <br> are separated by whitespace so their words never run together.
// Nested tables are read as text.
func textContent(n *html.Node) string {
	return gatherText(n, true, nil)
}

// blockText is textContent with tables left out; they are appended to tables
// instead.
func blockText(n *html.Node, tables *[]*html.Node) string {
	return gatherText(n, true, tables)
}

// gatherText concatenates the text under root. separate=false keeps the
// whitespace of preformatted content intact. When tables is non-nil, table
// descendants are collected there and their text is skipped.
func gatherText(root *html.Node, separate bool, tables *[]*html.Node) string {
	type frame struct {
		node    *html.Node
		closing bool
	}
	var buf strings.Builder
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.closing {
			buf.WriteByte(' ')
			continue
		}
		n := f.node
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			continue
		case html.ElementNode:
			if silent(n) {
				continue
			}
			if tables != nil && n.DataAtom == atom.Table && n != root {
				*tables = append(*tables, n)
				continue
			}
			if n.DataAtom == atom.Br {
				buf.WriteByte('\n')
				continue
			}
			if separate && !inlineElements[n.DataAtom] {
				buf.WriteByte(' ')
				stack = append(stack, frame{node: n, closing: true})
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, frame{node: c})
		}
	}
	return buf.String()
}

// codeLanguage looks for a "language-xxx" (or "lang-xxx") class token on the
// element itself, then on a direct <code> child as in <pre><code class=...>.
func codeLanguage(n *html.Node) string {
	if lang := classLanguage(n); lang != "" {
		return lang
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			if lang := classLanguage(c); lang != "" {
				return lang
			}
		}
	}
	return ""
}

func classLanguage(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, tok := range strings.Fields(a.Val) {
			for _, prefix := range []string{"language-", "lang-"} {
				if lang, ok := strings.CutPrefix(tok, prefix); ok && lang != "" {
					return lang
				}
			}
		}
	}
	return ""
}
