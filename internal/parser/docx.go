package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become headings, quote
// styles become quotes, and runs of list-styled paragraphs become one list.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, _ Options) ([]blocks.Block, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "readpace-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var b blocks.Builder
	var items []string
	ordered := false

	flushList := func() {
		if len(items) > 0 {
			b.AddList(items, ordered)
		}
		items = nil
		ordered = false
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		style := docxStyle(para)
		text := docxParagraphText(para)

		if kind, isOrdered := docxListStyle(style); kind {
			if len(items) > 0 && isOrdered != ordered {
				flushList()
			}
			ordered = isOrdered
			items = append(items, text)
			continue
		}
		flushList()

		switch {
		case docxHeadingLevel(style) > 0:
			b.AddHeading(text, docxHeadingLevel(style))
		case docxQuoteStyle(style):
			b.AddQuote(text)
		default:
			b.AddParagraph(text)
		}
	}
	flushList()

	return b.Blocks(), nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
}

// docxHeadingLevel maps "Heading1".."Heading6" (any case or spacing) and
// "Title" to a heading level.
func docxHeadingLevel(style string) int {
	if style == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func docxQuoteStyle(style string) bool {
	return style == "quote" || style == "intensequote"
}

// docxListStyle reports whether style is a list style and whether it is numbered.
func docxListStyle(style string) (bool, bool) {
	switch {
	case strings.HasPrefix(style, "listnumber"):
		return true, true
	case strings.HasPrefix(style, "listbullet"), style == "listparagraph":
		return true, false
	}
	return false, false
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
