// Package rsvp groups a block sequence into fixed-size word frames for rapid
// serial visual presentation. Frame i holds words [i*chunkSize, (i+1)*chunkSize)
// of the concatenated sequence, so frame indices agree with
// position.WordCountToRsvpIndex.
package rsvp

import (
	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/position"
)

// DefaultChunkSize is the number of words flashed per frame when none is set.
const DefaultChunkSize = 1

// Frame is one flash of words.
type Frame struct {
	Index     int             `json:"index"`
	ChunkSize int             `json:"chunk_size"`
	WordCount int             `json:"word_count"` // words before the frame's first word
	Start     position.Pacing `json:"start"`
	Words     []string        `json:"words"`
	Last      bool            `json:"last"`
}

// FrameCount returns the number of frames needed to show every word.
func FrameCount(seq []blocks.Block, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	total := position.TotalWordCount(seq)
	return (total + chunkSize - 1) / chunkSize
}

// FrameAt returns frame index. Frames may span block boundaries. An index
// past the last frame clamps to the last frame; an empty sequence yields an
// empty frame 0.
func FrameAt(seq []blocks.Block, index, chunkSize int) Frame {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	count := FrameCount(seq, chunkSize)
	if count == 0 {
		return Frame{ChunkSize: chunkSize, Words: []string{}, Last: true}
	}
	index = min(max(index, 0), count-1)

	start := position.RsvpIndexToWordCount(index, chunkSize)
	f := Frame{
		Index:     index,
		ChunkSize: chunkSize,
		WordCount: start,
		Start:     position.WordCountToPacing(seq, start),
		Words:     make([]string, 0, chunkSize),
		Last:      index == count-1,
	}

	for bi := f.Start.BlockIndex; bi < len(seq) && len(f.Words) < chunkSize; bi++ {
		words := blocks.Words(seq[bi])
		from := 0
		if bi == f.Start.BlockIndex {
			from = f.Start.WordIndex
		}
		for _, w := range words[from:] {
			if len(f.Words) == chunkSize {
				break
			}
			f.Words = append(f.Words, w)
		}
	}
	return f
}

// FrameFor returns the frame containing the word at wordCount.
func FrameFor(seq []blocks.Block, wordCount, chunkSize int) Frame {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return FrameAt(seq, position.WordCountToRsvpIndex(wordCount, chunkSize), chunkSize)
}
