package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownParser handles Markdown files using goldmark. The document is
// rendered to HTML and segmented by the same walk as HTML input, so both
// formats produce identical blocks for equivalent structure.
type MarkdownParser struct{}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (p *MarkdownParser) Parse(r io.Reader, opts Options) ([]blocks.Block, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return parseMarkup(buf.Bytes(), opts)
}
