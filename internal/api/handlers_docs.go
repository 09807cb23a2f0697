package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/texgest/internal/chunker"
	"github.com/dgallion1/texgest/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := min(queryInt(r, "limit", 50), 500)
	offset := 0
	if r.URL.Query().Has("offset") {
		offset = queryInt(r, "offset", 0)
	}

	docs, err := s.orchestrator.Store().List(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument returns the filtered, normalized sections of a document.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDocumentChunks splits a stored document into prompt-sized chunks. With
// budget set, consecutive chunks are also packed into batches.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}

	cfg := chunker.DefaultConfig()
	cfg.ChunkSize = queryInt(r, "size", s.cfg.DefaultChunkSize)
	cfg.ChunkOverlap = queryInt(r, "overlap", s.cfg.DefaultChunkOverlap)
	// Short sections are kept whole unless the caller asks for a floor.
	cfg.MinChunk = queryInt(r, "min", 1)
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		jsonError(w, "overlap must be smaller than size", http.StatusBadRequest)
		return
	}

	chunks := chunker.ChunkSections(rec.Sections, cfg)
	resp := map[string]any{
		"doc_id": rec.DocID,
		"title":  rec.Title,
		"chunks": chunks,
	}
	if budget := queryInt(r, "budget", 0); budget > 0 {
		resp["batches"] = chunker.Pack(chunks, budget)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDocument removes a stored document.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.orchestrator.Store().Delete(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	docID := chi.URLParam(r, "docID")
	rec, err := s.orchestrator.Store().Get(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}
