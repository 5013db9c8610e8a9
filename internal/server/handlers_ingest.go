package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/claude/fitlog/internal/models"
)

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	started := time.Now()
	logID := s.beginImport(r.Context(), uid, models.SourceAlpha, nil)

	result, err := s.alpha.Ingest(r.Context(), r.Body, uid)
	s.finishImport(logID, uid, models.SourceAlpha, result, err, started, nil)
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHAEIngest(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var payload models.HAEPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	started := time.Now()
	logID := s.beginImport(r.Context(), uid, models.SourceHAE, nil)
	result, err := s.hae.Ingest(r.Context(), &payload, uid)
	s.finishImport(logID, uid, models.SourceHAE, result, err, started, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
