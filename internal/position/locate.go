package position

import (
	"github.com/dgallion1/readpace/internal/blocks"
)

// Boundary says how a requested word count relates to the sequence, which
// the clamped Pacing alone cannot tell apart.
type Boundary string

const (
	// Start is word count 0 (including any count on an empty sequence).
	Start Boundary = "start"
	// Within is a count that addresses a real word.
	Within Boundary = "within"
	// End is a count exactly equal to the total: the reader has finished.
	End Boundary = "end"
	// PastEnd is a count greater than the total; the result was clamped.
	PastEnd Boundary = "past_end"
)

// Locate is WordCountToPacing plus the boundary the request fell on.
func Locate(seq []blocks.Block, wordCount int) (Pacing, Boundary) {
	if wordCount <= 0 {
		return Pacing{}, Start
	}
	if len(seq) == 0 {
		return Pacing{}, PastEnd
	}

	cum := 0
	for i, b := range seq {
		n := blocks.WordCount(b)
		if wordCount < cum+n {
			return Pacing{BlockIndex: i, WordIndex: wordCount - cum}, Within
		}
		cum += n
	}

	last := len(seq) - 1
	p := Pacing{BlockIndex: last, WordIndex: max(blocks.WordCount(seq[last])-1, 0)}
	if wordCount == cum {
		return p, End
	}
	return p, PastEnd
}

// View is one position expressed in every representation.
type View struct {
	WordCount  int      `json:"word_count"`
	Pacing     Pacing   `json:"pacing"`
	RsvpIndex  int      `json:"rsvp_index"`
	ChunkSize  int      `json:"chunk_size"`
	TotalWords int      `json:"total_words"`
	Boundary   Boundary `json:"boundary"`
}

// Resolve derives a View from a word count. The word count is reported as
// given (clamped at zero) so callers can see how far past the end it was.
func Resolve(seq []blocks.Block, wordCount, chunkSize int) View {
	wordCount = max(wordCount, 0)
	p, boundary := Locate(seq, wordCount)
	return View{
		WordCount:  wordCount,
		Pacing:     p,
		RsvpIndex:  WordCountToRsvpIndex(wordCount, chunkSize),
		ChunkSize:  chunkSize,
		TotalWords: TotalWordCount(seq),
		Boundary:   boundary,
	}
}
