package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dgallion1/readpace/internal/position"
	"github.com/dgallion1/readpace/internal/rsvp"
	"github.com/go-chi/chi/v5"
)

// handlePosition converts one representation of a position into all three.
// Exactly one of word_count, block_index+word_index or rsvp_index is given.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chunk, err := s.chunkParam(q)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	var (
		wc    int
		given int
	)
	if q.Has("word_count") {
		given++
		if wc, err = intParam(q, "word_count"); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if q.Has("block_index") || q.Has("word_index") {
		if !q.Has("block_index") || !q.Has("word_index") {
			jsonError(w, "block_index and word_index go together", http.StatusBadRequest)
			return
		}
		given++
		bi, err := intParam(q, "block_index")
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		wi, err := intParam(q, "word_index")
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		wc = position.PacingToWordCount(doc.Blocks, bi, wi)
	}
	if q.Has("rsvp_index") {
		given++
		idx, err := intParam(q, "rsvp_index")
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		wc = position.RsvpIndexToWordCount(idx, chunk)
	}
	if given != 1 {
		jsonError(w, "give exactly one of word_count, block_index+word_index, rsvp_index", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, position.Resolve(doc.Blocks, wc, chunk))
}

// handleFrame returns one RSVP frame.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.chunkParam(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "index must be an integer", http.StatusBadRequest)
		return
	}

	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"frame":       rsvp.FrameAt(doc.Blocks, index, chunk),
		"frame_count": rsvp.FrameCount(doc.Blocks, chunk),
	})
}

// handleProgressFrame returns the RSVP frame holding the saved position.
func (s *Server) handleProgressFrame(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.chunkParam(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	view, err := s.tracker.Get(r.Context(), doc.ID, chunk)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"position": view,
		"frame":    rsvp.FrameFor(doc.Blocks, view.WordCount, chunk),
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	chunk, err := s.chunkParam(r.URL.Query())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := s.tracker.Get(r.Context(), chi.URLParam(r, "docID"), chunk)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type progressRequest struct {
	WordCount *int             `json:"word_count"`
	Pacing    *position.Pacing `json:"pacing"`
	RsvpIndex *int             `json:"rsvp_index"`
	ChunkSize int              `json:"chunk_size"`
}

// handlePutProgress saves a position given in any one representation.
func (s *Server) handlePutProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	given := 0
	for _, set := range []bool{req.WordCount != nil, req.Pacing != nil, req.RsvpIndex != nil} {
		if set {
			given++
		}
	}
	if given != 1 {
		jsonError(w, "give exactly one of word_count, pacing, rsvp_index", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	docID := chi.URLParam(r, "docID")
	chunk := s.chunkOrDefault(req.ChunkSize)

	var (
		view position.View
		err  error
	)
	switch {
	case req.WordCount != nil:
		view, err = s.tracker.SetWordCount(ctx, docID, *req.WordCount, chunk)
	case req.Pacing != nil:
		view, err = s.tracker.SetPacing(ctx, docID, *req.Pacing, chunk)
	default:
		view, err = s.tracker.SetRsvpIndex(ctx, docID, *req.RsvpIndex, chunk)
	}
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type advanceRequest struct {
	Words     int `json:"words"`
	ChunkSize int `json:"chunk_size"`
}

// handleAdvance moves the saved position forward (or back) by some words.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	view, err := s.tracker.Advance(r.Context(), chi.URLParam(r, "docID"), req.Words, s.chunkOrDefault(req.ChunkSize))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReadingStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.tracker.Stats(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) chunkParam(q url.Values) (int, error) {
	if !q.Has("chunk_size") {
		return s.cfg.DefaultChunkSize, nil
	}
	n, err := intParam(q, "chunk_size")
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("chunk_size must be positive")
	}
	return n, nil
}

func (s *Server) chunkOrDefault(n int) int {
	if n <= 0 {
		return s.cfg.DefaultChunkSize
	}
	return n
}

func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}
