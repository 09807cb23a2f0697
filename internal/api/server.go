package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/texgest/internal/arxiv"
	"github.com/dgallion1/texgest/internal/config"
	"github.com/dgallion1/texgest/internal/pipeline"
	"github.com/dgallion1/texgest/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for texgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	arxiv        *arxiv.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. ax may be nil, in which
// case the arXiv routes answer 503.
func NewServer(orch *pipeline.Orchestrator, ax *arxiv.Client, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orchestrator: orch,
		arxiv:        ax,
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
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleUpload)
		r.Post("/api/documents/batch", s.handleBatchUpload)
		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Get("/api/documents/{docID}/chunks", s.handleDocumentChunks)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/arxiv/search", s.handleArxivSearch)
		r.Post("/api/arxiv/*", s.handleArxivIngest)

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Post("/api/normalize", s.handleNormalize)
		r.Get("/api/stats/processing", s.handleProcessingStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     version.Version,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
