package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/readpace/internal/blocks"
	"github.com/dgallion1/readpace/internal/parser"
	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/stats"
)

// handleSegment parses the request body synchronously and returns its blocks.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := parser.Format(q.Get("format"))
	if format == "" {
		format = parser.FormatHTML
	}
	p, err := parser.ForFormat(format, s.cfg.PDFFallbackPdftotext)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	start := time.Now()
	seq, err := p.Parse(body, s.segmentOptions(q.Get))
	took := time.Since(start)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "segment: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	total := position.TotalWordCount(seq)
	s.orchestrator.Latency().Record(stats.Sample{Format: string(format), Duration: took, Blocks: len(seq), Words: total})

	writeJSON(w, http.StatusOK, map[string]any{
		"format":      format,
		"block_count": len(seq),
		"total_words": total,
		"blocks":      blocks.Encodable(seq),
	})
}
