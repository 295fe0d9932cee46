// Package blocks defines the typed content blocks a document is segmented
// into. A block sequence is the contract between every producer (the HTML
// parser, the file-format front ends) and the position engine.
package blocks

import (
	"strings"
)

// Kind identifies a block variant.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
	KindCode      Kind = "code"
)

// Block is one semantically typed unit of extracted content. The variant set
// is closed: only the types in this package implement it.
type Block interface {
	ID() string
	Kind() Kind
	// Text is the effective text used for word counting.
	Text() string

	isBlock()
}

// Heading is a section heading, Level 1-6.
type Heading struct {
	BlockID string
	Content string
	Level   int
}

// Paragraph is a run of body text.
type Paragraph struct {
	BlockID string
	Content string
}

// List is an ordered or unordered list; Items holds one entry per list item.
type List struct {
	BlockID string
	Items   []string
	Ordered bool
}

// Quote is a block quotation.
type Quote struct {
	BlockID string
	Content string
}

// Code is preformatted text. Language is empty when the markup named none.
type Code struct {
	BlockID  string
	Content  string
	Language string
}

func (b Heading) ID() string   { return b.BlockID }
func (b Paragraph) ID() string { return b.BlockID }
func (b List) ID() string      { return b.BlockID }
func (b Quote) ID() string     { return b.BlockID }
func (b Code) ID() string      { return b.BlockID }

func (Heading) Kind() Kind   { return KindHeading }
func (Paragraph) Kind() Kind { return KindParagraph }
func (List) Kind() Kind      { return KindList }
func (Quote) Kind() Kind     { return KindQuote }
func (Code) Kind() Kind      { return KindCode }

func (b Heading) Text() string   { return b.Content }
func (b Paragraph) Text() string { return b.Content }
func (b List) Text() string      { return strings.Join(b.Items, " ") }
func (b Quote) Text() string     { return b.Content }
func (b Code) Text() string      { return b.Content }

func (Heading) isBlock()   {}
func (Paragraph) isBlock() {}
func (List) isBlock()      {}
func (Quote) isBlock()     {}
func (Code) isBlock()      {}

// Words splits a block's effective text on whitespace.
func Words(b Block) []string {
	return strings.Fields(b.Text())
}

// WordCount is the number of whitespace-delimited tokens in a block's
// effective text. Code is counted the same way as prose.
func WordCount(b Block) int {
	if b == nil {
		return 0
	}
	return len(strings.Fields(b.Text()))
}

// Normalize collapses runs of whitespace to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
