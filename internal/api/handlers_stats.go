package api

import (
	"net/http"
)

func (s *Server) handleSegmentStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"segment":     s.orchestrator.Latency().Snapshot(),
	})
}
