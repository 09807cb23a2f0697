package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dgallion1/texgest/internal/latex"
)

// handleNormalize runs the LaTeX normalizer over a text/plain body. A stage
// query parameter limits the rewrite to that single stage.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	norm := s.orchestrator.Processor().Normalizer()
	var out string
	if stage := r.URL.Query().Get("stage"); stage != "" {
		out, err = norm.Apply(stage, string(body))
	} else {
		out, err = norm.Normalize(string(body))
	}
	switch {
	case errors.Is(err, latex.ErrMatchTimeout):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, out)
}
