package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/lookup"
	"github.com/claude/fitlog/internal/storage"
)

const (
	minQueryLen = 2
	maxQueryLen = 255
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleExerciseSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	fields := map[string]string{}
	if n := utf8.RuneCountInString(query); n < minQueryLen || n > maxQueryLen {
		fields["query"] = "must be between 2 and 255 characters"
	}

	limit := lookup.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit parameter"})
			return
		}
		if parsed < 1 || parsed > lookup.MaxLimit {
			fields["limit"] = "must be between 1 and 50"
		}
		limit = parsed
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": fields})
		return
	}

	results, err := s.reports.SearchExercises(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// beginImport records a running import and returns its log id, or 0 when
// the row could not be written.
func (s *Server) beginImport(ctx context.Context, uid int, source string, meta map[string]any) int64 {
	entry := storage.ImportLog{UserID: uid, Source: source, Status: storage.ImportRunning}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			raw := json.RawMessage(b)
			entry.Metadata = &raw
		}
	}
	id, err := s.db.InsertImportLog(ctx, entry)
	if err != nil {
		s.log.Error("failed to create import log", "source", source, "error", err)
		return 0
	}
	return id
}

// finishImport stores an import's outcome on its log row and counts it.
// A nil meta keeps the metadata written by beginImport.
func (s *Server) finishImport(logID int64, uid int, source string, result *ingest.Result, importErr error, started time.Time, meta map[string]any) {
	status := storage.ImportSuccess
	var errMsg *string
	if importErr != nil {
		status = storage.ImportError
		if errors.Is(importErr, context.Canceled) {
			status = storage.ImportCancelled
		}
		msg := importErr.Error()
		errMsg = &msg
	}
	if s.metrics != nil {
		s.metrics.CounterImports.WithLabelValues(source, status).Inc()
	}
	if result == nil {
		result = &ingest.Result{}
	}

	durationMs := int(time.Since(started).Milliseconds())
	entry := storage.ImportLog{
		UserID:           uid,
		Source:           source,
		Status:           status,
		WorkoutsReceived: result.WorkoutsReceived,
		WorkoutsInserted: result.WorkoutsInserted,
		WorkoutsUpdated:  result.WorkoutsUpdated,
		MetricsSkipped:   result.MetricsSkipped,
		SetsInserted:     result.SetsInserted,
		DurationMs:       &durationMs,
		ErrorMessage:     errMsg,
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			raw := json.RawMessage(b)
			entry.Metadata = &raw
		}
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	var err error
	if logID == 0 {
		_, err = s.db.InsertImportLog(ctx, entry)
	} else {
		err = s.db.UpdateImportLog(ctx, logID, entry)
	}
	if err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
