// Package position converts between the three ways a reader's place in a
// block sequence is expressed: a pacing position (block index plus word
// offset), a word count, and an RSVP chunk index.
//
// The word count is the canonical form. It does not depend on the RSVP chunk
// size and survives small re-segmentations, so it is the one value persisted;
// the other two are derived from it on demand.
//
// Every function is total. Out-of-range input is clamped, never reported.
package position

import (
	"github.com/dgallion1/readpace/internal/blocks"
)

// Pacing addresses a word as a block index and a 0-based offset in that block.
type Pacing struct {
	BlockIndex int `json:"block_index"`
	WordIndex  int `json:"word_index"`
}

// TotalWordCount sums the word counts of all blocks.
func TotalWordCount(seq []blocks.Block) int {
	total := 0
	for _, b := range seq {
		total += blocks.WordCount(b)
	}
	return total
}

// PacingToWordCount returns the number of words before (blockIndex, wordIndex).
// A blockIndex at or past the end counts every block and then adds wordIndex
// on top, modelling "wordIndex words past the end".
func PacingToWordCount(seq []blocks.Block, blockIndex, wordIndex int) int {
	if len(seq) == 0 {
		return 0
	}
	blockIndex = max(blockIndex, 0)
	wordIndex = max(wordIndex, 0)

	n := min(blockIndex, len(seq))
	count := 0
	for _, b := range seq[:n] {
		count += blocks.WordCount(b)
	}
	return count + wordIndex
}

// WordCountToPacing returns the position of the word that has exactly
// wordCount words before it. Counts at or past the total clamp to the last
// word of the last block.
func WordCountToPacing(seq []blocks.Block, wordCount int) Pacing {
	p, _ := Locate(seq, wordCount)
	return p
}

// WordCountToRsvpIndex returns the chunk holding word wordCount. A
// non-positive chunkSize yields 0.
func WordCountToRsvpIndex(wordCount, chunkSize int) int {
	if chunkSize <= 0 || wordCount <= 0 {
		return 0
	}
	return wordCount / chunkSize
}

// RsvpIndexToWordCount returns the word count at the start of chunk
// rsvpIndex. A non-positive chunkSize yields 0.
func RsvpIndexToWordCount(rsvpIndex, chunkSize int) int {
	if chunkSize <= 0 || rsvpIndex <= 0 {
		return 0
	}
	return rsvpIndex * chunkSize
}
