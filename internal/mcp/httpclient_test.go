package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestOverviewParams verifies the types list and date range are sent as
// query parameters.
func TestOverviewParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/analytics": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q.Get("types"); got != "Run,Ride" {
				t.Errorf("types=%q, want Run,Ride", got)
			}
			if got := q.Get("from"); got != "2025-01-01" {
				t.Errorf("from=%q, want 2025-01-01", got)
			}
			if q.Has("to") {
				t.Errorf("unexpected to=%q", q.Get("to"))
			}
			writeTestJSON(t, w, analytics.Overview{
				Weekly:  []analytics.Bucket{{Label: "03.11 - 09.11", Workouts: 2}},
				Filters: analytics.OverviewFilters{SelectedTypes: []string{"Run", "Ride"}},
			})
		},
	})
	defer ts.Close()

	from, _ := models.ParseDate("2025-01-01")
	ov, err := NewHTTPClient(ts.URL).Overview(context.Background(), 1, []string{"Run", "Ride"}, &from, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ov.Weekly) != 1 || ov.Weekly[0].Workouts != 2 {
		t.Errorf("weekly = %+v", ov.Weekly)
	}
}

// TestRecordsParams verifies the include flags and the lowercase discipline.
func TestRecordsParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/records": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if got := q.Get("discipline"); got != "swim" {
				t.Errorf("discipline=%q, want swim", got)
			}
			if got := q.Get("include_strength"); got != "false" {
				t.Errorf("include_strength=%q, want false", got)
			}
			writeTestJSON(t, w, analytics.Records{Endurance: &analytics.EnduranceSummary{}})
		},
	})
	defer ts.Close()

	rec, err := NewHTTPClient(ts.URL).Records(context.Background(), 1,
		reports.RecordsOptions{Discipline: models.WorkoutSwim, Endurance: true})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Endurance == nil {
		t.Error("endurance missing")
	}
}

// TestExerciseSeriesResolvesAnchor verifies the identity key is mapped to the
// representative workout exercise before the stats call.
func TestExerciseSeriesResolvesAnchor(t *testing.T) {
	anchor := uuid.New()
	statsPath := "/api/v1/workout-exercises/" + anchor.String() + "/stats"
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/strength-exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []analytics.ExerciseSummary{
				{Name: "Squat", IdentityKey: "local:3", RepresentativeID: uuid.New()},
				{Name: "Bench Press", IdentityKey: "name:bench press", RepresentativeID: anchor},
			})
		},
		statsPath: func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, analytics.ExerciseSeries{
				Exercise: analytics.ExerciseHeader{ID: anchor, Name: "Bench Press", IdentityKey: "name:bench press"},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	series, err := client.ExerciseSeries(context.Background(), 1, "name:Bench Press")
	if err != nil {
		t.Fatal(err)
	}
	if series.Exercise.ID != anchor {
		t.Errorf("exercise id = %s, want %s", series.Exercise.ID, anchor)
	}

	if _, err := client.ExerciseSeries(context.Background(), 1, "name:deadlift"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown key err = %v, want ErrNotFound", err)
	}
}

// TestListWorkoutsParams verifies filter fields map to the REST query names.
func TestListWorkoutsParams(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			want := map[string]string{"date_to": "2025-11-30", "type": "run", "min_distance": "5.5", "page": "2"}
			for k, v := range want {
				if got := q.Get(k); got != v {
					t.Errorf("%s=%q, want %q", k, got, v)
				}
			}
			writeTestJSON(t, w, storage.WorkoutPage{Data: []models.Workout{}, Page: 2, PerPage: 10, Total: 11, LastPage: 2})
		},
	})
	defer ts.Close()

	to, _ := models.ParseDate("2025-11-30")
	run := models.WorkoutRun
	minKm := 5.5
	page, err := NewHTTPClient(ts.URL).ListWorkouts(context.Background(), 1,
		storage.WorkoutFilter{To: &to, Type: &run, MinDistance: &minKm, Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 11 || page.LastPage != 2 {
		t.Errorf("page = %+v", page)
	}
}

// TestHTTPClientErrors verifies non-200 handling: 404 maps to ErrNotFound,
// anything else is a plain error.
func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"boom"}`, tt.status)
			}))
			defer ts.Close()

			_, err := NewHTTPClient(ts.URL).Dashboard(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, storage.ErrNotFound) != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v (err: %v)", !tt.notFound, tt.notFound, err)
			}
		})
	}
}
