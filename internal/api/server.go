package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/readpace/internal/config"
	"github.com/dgallion1/readpace/internal/pipeline"
	"github.com/dgallion1/readpace/internal/progress"
	"github.com/dgallion1/readpace/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for readpace.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	tracker      *progress.Tracker
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, tracker *progress.Tracker, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		tracker:      tracker,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/segment", s.handleSegment)
		r.Get("/stats/segment", s.handleSegmentStats)

		r.Post("/documents", s.handleUpload)
		r.Post("/documents/batch", s.handleBatchUpload)
		r.Get("/jobs/{jobID}/status", s.handleJobStatus)

		r.Get("/documents", s.handleListDocuments)
		r.Route("/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/position", s.handlePosition)
			r.Get("/frames/{index}", s.handleFrame)
			r.Get("/progress", s.handleGetProgress)
			r.Put("/progress", s.handlePutProgress)
			r.Get("/progress/frame", s.handleProgressFrame)
			r.Post("/progress/advance", s.handleAdvance)
			r.Get("/stats", s.handleReadingStats)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
