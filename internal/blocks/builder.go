package blocks

import (
	"fmt"
	"strings"
)

// Builder accumulates blocks in emission order. It is the single place where
// block ids are assigned, so every producer gets the same "block-<n>" scheme
// and candidates dropped as empty never consume an id.
type Builder struct {
	blocks []Block
}

func (b *Builder) nextID() string {
	return fmt.Sprintf("block-%d", len(b.blocks))
}

// AddHeading emits a heading. Levels outside 1-6 are clamped.
func (b *Builder) AddHeading(text string, level int) bool {
	text = Normalize(text)
	if text == "" {
		return false
	}
	b.blocks = append(b.blocks, Heading{BlockID: b.nextID(), Content: text, Level: clampLevel(level)})
	return true
}

// AddParagraph emits a paragraph.
func (b *Builder) AddParagraph(text string) bool {
	text = Normalize(text)
	if text == "" {
		return false
	}
	b.blocks = append(b.blocks, Paragraph{BlockID: b.nextID(), Content: text})
	return true
}

// AddQuote emits a block quotation.
func (b *Builder) AddQuote(text string) bool {
	text = Normalize(text)
	if text == "" {
		return false
	}
	b.blocks = append(b.blocks, Quote{BlockID: b.nextID(), Content: text})
	return true
}

// AddList emits a list. Items that are empty after normalization are
// dropped; a list left with no items is not emitted.
func (b *Builder) AddList(items []string, ordered bool) bool {
	var kept []string
	for _, item := range items {
		if item = Normalize(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return false
	}
	b.blocks = append(b.blocks, List{BlockID: b.nextID(), Items: kept, Ordered: ordered})
	return true
}

// AddCode emits a code block. Interior whitespace is preserved; only blank
// leading and trailing lines are removed.
func (b *Builder) AddCode(text, language string) bool {
	if Normalize(text) == "" {
		return false
	}
	text = strings.TrimRight(text, " \t\r\n")
	text = strings.TrimLeft(text, "\r\n")
	b.blocks = append(b.blocks, Code{
		BlockID:  b.nextID(),
		Content:  text,
		Language: strings.TrimSpace(language),
	})
	return true
}

// Blocks returns a copy of the emitted sequence.
func (b *Builder) Blocks() []Block {
	out := make([]Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	}
	return level
}
