// Command readpace segments documents into readable blocks and converts
// between reading positions from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/parser"
	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/rsvp"
)

const version = "0.1.0"

// CLI defines the command-line interface for readpace.
type CLI struct {
	Segment  SegmentCmd  `cmd:"" help:"Split a document into blocks"`
	Position PositionCmd `cmd:"" help:"Convert a reading position between word count, pacing and RSVP index"`
	Frame    FrameCmd    `cmd:"" help:"Show one RSVP frame"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// SegmentOpts are the parser switches shared by every command.
type SegmentOpts struct {
	Tables   bool `help:"Turn table rows into paragraphs instead of skipping tables"`
	Sanitize bool `help:"Run HTML through an allow-list sanitizer first"`
}

func (o SegmentOpts) options() parser.Options {
	return parser.Options{HandleTables: o.Tables, Sanitize: o.Sanitize}
}

// SegmentCmd prints the blocks of a document.
type SegmentCmd struct {
	File string `arg:"" help:"Document to segment" type:"existingfile"`
	SegmentOpts `embed:""`
	JSON bool `name:"json" help:"Print blocks as JSON"`
}

func (c *SegmentCmd) Run(ctx *kong.Context) error {
	seq, err := loadBlocks(c.File, c.options())
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(ctx.Stdout, map[string]any{
			"total_words": position.TotalWordCount(seq),
			"blocks":      blocks.Encodable(seq),
		})
	}
	kind := color.New(color.FgCyan)
	for _, b := range seq {
		fmt.Fprintf(ctx.Stdout, "%-10s %s %4d  %s\n", b.ID(), kind.Sprintf("%-12s", describe(b)), blocks.WordCount(b), preview(b.Text(), 60))
	}
	fmt.Fprintf(ctx.Stdout, "%d blocks, %d words\n", len(seq), position.TotalWordCount(seq))
	return nil
}

// PositionCmd resolves one position representation into all three.
type PositionCmd struct {
	File string `arg:"" help:"Document to read" type:"existingfile"`
	SegmentOpts `embed:""`

	WordCount *int `name:"word-count" help:"Words before the position"`
	Block     *int `help:"Block index (with --word)"`
	Word      *int `help:"Word index inside the block (with --block)"`
	Rsvp      *int `help:"RSVP frame index"`
	ChunkSize int  `name:"chunk-size" help:"Words per RSVP frame" default:"1"`
}

func (c *PositionCmd) Validate() error {
	given := 0
	if c.WordCount != nil {
		given++
	}
	if c.Block != nil || c.Word != nil {
		if c.Block == nil || c.Word == nil {
			return errors.New("--block and --word go together")
		}
		given++
	}
	if c.Rsvp != nil {
		given++
	}
	if given != 1 {
		return errors.New("give exactly one of --word-count, --block/--word, --rsvp")
	}
	if c.ChunkSize <= 0 {
		return errors.New("--chunk-size must be positive")
	}
	return nil
}

func (c *PositionCmd) Run(ctx *kong.Context) error {
	seq, err := loadBlocks(c.File, c.options())
	if err != nil {
		return err
	}

	var wc int
	switch {
	case c.WordCount != nil:
		wc = *c.WordCount
	case c.Block != nil:
		wc = position.PacingToWordCount(seq, *c.Block, *c.Word)
	default:
		wc = position.RsvpIndexToWordCount(*c.Rsvp, c.ChunkSize)
	}
	return writeJSON(ctx.Stdout, position.Resolve(seq, wc, c.ChunkSize))
}

// FrameCmd prints one RSVP frame.
type FrameCmd struct {
	File  string `arg:"" help:"Document to read" type:"existingfile"`
	Index int    `arg:"" help:"Frame index"`
	SegmentOpts `embed:""`
	ChunkSize int `name:"chunk-size" help:"Words per RSVP frame" default:"1"`
}

func (c *FrameCmd) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("--chunk-size must be positive")
	}
	return nil
}

func (c *FrameCmd) Run(ctx *kong.Context) error {
	seq, err := loadBlocks(c.File, c.options())
	if err != nil {
		return err
	}
	f := rsvp.FrameAt(seq, c.Index, c.ChunkSize)
	fmt.Fprintf(ctx.Stdout, "frame %d/%d at block %d word %d: %s\n",
		f.Index, rsvp.FrameCount(seq, c.ChunkSize), f.Start.BlockIndex, f.Start.WordIndex, strings.Join(f.Words, " "))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *kong.Context) error {
	fmt.Fprintf(ctx.Stdout, "readpace %s\n", version)
	return nil
}

func loadBlocks(path string, opts parser.Options) ([]blocks.Block, error) {
	format, err := parser.FormatForFile(path)
	if err != nil {
		return nil, err
	}
	p, err := parser.ForFormat(format, true)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	seq, err := p.Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return seq, nil
}

func describe(b blocks.Block) string {
	switch v := b.(type) {
	case blocks.Heading:
		return fmt.Sprintf("heading(%d)", v.Level)
	case blocks.List:
		if v.Ordered {
			return "list(ol)"
		}
		return "list(ul)"
	case blocks.Code:
		if v.Language != "" {
			return "code(" + v.Language + ")"
		}
	}
	return string(b.Kind())
}

func preview(s string, n int) string {
	s = blocks.Normalize(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("readpace"),
		kong.Description("Segment documents and convert reading positions"),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	k, err := newParser(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run())
}
