package blocks

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of a Block: a flat object tagged by "type".
type envelope struct {
	Type     Kind     `json:"type"`
	ID       string   `json:"id"`
	Content  string   `json:"content,omitempty"`
	Level    int      `json:"level,omitempty"`
	Items    []string `json:"items,omitempty"`
	Ordered  bool     `json:"ordered,omitempty"`
	Language string   `json:"language,omitempty"`
}

func toEnvelope(b Block) envelope {
	switch v := b.(type) {
	case Heading:
		return envelope{Type: KindHeading, ID: v.BlockID, Content: v.Content, Level: v.Level}
	case Paragraph:
		return envelope{Type: KindParagraph, ID: v.BlockID, Content: v.Content}
	case List:
		return envelope{Type: KindList, ID: v.BlockID, Items: v.Items, Ordered: v.Ordered}
	case Quote:
		return envelope{Type: KindQuote, ID: v.BlockID, Content: v.Content}
	case Code:
		return envelope{Type: KindCode, ID: v.BlockID, Content: v.Content, Language: v.Language}
	}
	panic(fmt.Sprintf("blocks: unknown block type %T", b))
}

func (e envelope) block() (Block, error) {
	switch e.Type {
	case KindHeading:
		return Heading{BlockID: e.ID, Content: e.Content, Level: e.Level}, nil
	case KindParagraph:
		return Paragraph{BlockID: e.ID, Content: e.Content}, nil
	case KindList:
		return List{BlockID: e.ID, Items: e.Items, Ordered: e.Ordered}, nil
	case KindQuote:
		return Quote{BlockID: e.ID, Content: e.Content}, nil
	case KindCode:
		return Code{BlockID: e.ID, Content: e.Content, Language: e.Language}, nil
	}
	return nil, fmt.Errorf("unknown block type %q", e.Type)
}

// Encodable returns the JSON-ready form of a sequence, for embedding in
// larger response bodies.
func Encodable(seq []Block) []any {
	out := make([]any, len(seq))
	for i, b := range seq {
		out[i] = toEnvelope(b)
	}
	return out
}

// Marshal encodes a sequence as a JSON array of tagged objects.
func Marshal(seq []Block) ([]byte, error) {
	env := make([]envelope, len(seq))
	for i, b := range seq {
		env[i] = toEnvelope(b)
	}
	return json.Marshal(env)
}

// Unmarshal decodes a sequence produced by Marshal.
func Unmarshal(data []byte) ([]Block, error) {
	var env []envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	out := make([]Block, 0, len(env))
	for i, e := range env {
		b, err := e.block()
		if err != nil {
			return nil, fmt.Errorf("decode block %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
