package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/readpace/internal/blocks"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, _ Options) ([]blocks.Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b blocks.Builder
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				b.AddParagraph(current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		b.AddParagraph(current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.Blocks(), nil
}
