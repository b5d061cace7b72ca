package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinly-app/kinly/internal/domain"
)

// ─── Document store ─────────────────────────────────────────────────────────
// GET and PATCH on /api/docs/{key} back internal/infra/remote.Client.
// PATCH merges top-level fields unless ?merge=false.

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetDocument(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		s.writeDocError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePatchDocument(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	var partial domain.Document
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil || partial == nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidDocument.Error())
		return
	}
	merge := r.URL.Query().Get("merge") != "false"

	rec, err := s.db.SetDocument(r.Context(), key, partial, merge)
	if err != nil {
		s.writeDocError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeDocError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidKey), errors.Is(err, domain.ErrInvalidDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("[api] document: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
