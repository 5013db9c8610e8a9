package server

import (
	"net/http"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ov, err := s.reports.Overview(r.Context(), uid, queryList(r, "types"), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var opts reports.RecordsOptions
	var err error
	if opts.Endurance, err = queryBool(r, "include_endurance", true); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if opts.Strength, err = queryBool(r, "include_strength", true); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if d := r.URL.Query().Get("discipline"); d != "" {
		t, ok := models.ParseWorkoutType(d)
		if !ok || (t != models.WorkoutRun && t != models.WorkoutRide && t != models.WorkoutSwim) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "discipline must be run, ride or swim"})
			return
		}
		opts.Discipline = t
	}

	rec, err := s.reports.Records(r.Context(), uid, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStrengthExercises(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	summary, err := s.reports.StrengthExercises(r.Context(), uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleWorkoutExerciseStats answers 404 for unknown rows and 403 for rows
// owned by someone else.
func (s *Server) handleWorkoutExerciseStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	series, err := s.reports.WorkoutExerciseSeries(r.Context(), uid, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	d, err := s.reports.Dashboard(r.Context(), uid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
