package exercisedb

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
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

func newTestClient(baseURL string, cacheMB int) (*Client, *metrics.Manager) {
	m := metrics.NewTestManager()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(config.ExerciseDBConfig{
		BaseURL:      baseURL + "/",
		Timeout:      2 * time.Second,
		Limit:        10,
		APIKeyHeader: "X-RapidAPI-Key",
		APIKey:       "secret",
		Host:         "exercisedb.example",
		CacheSizeMB:  cacheMB,
		CacheTTL:     time.Minute,
	}, m, log), m
}

// TestSearchV2 verifies the v2 endpoint is used first with query, limit and
// auth headers, and its items are normalized.
func TestSearchV2(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/v2/exercises/search": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("query"); got != "bench" {
				t.Errorf("query=%q, want bench", got)
			}
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit=%q, want 5", got)
			}
			if got := r.Header.Get("X-RapidAPI-Key"); got != "secret" {
				t.Errorf("api key header = %q", got)
			}
			if got := r.Header.Get("X-RapidAPI-Host"); got != "exercisedb.example" {
				t.Errorf("host header = %q", got)
			}
			writeTestJSON(t, w, map[string]any{"data": []map[string]any{
				{"exerciseId": "EIeI8Vf", "name": "barbell bench press", "bodyParts": []string{"chest"},
					"equipments": []string{"barbell"}, "imageUrl": "https://img/1.gif"},
			}})
		},
	})
	defer ts.Close()

	c, _ := newTestClient(ts.URL, 0)
	got, err := c.Search(context.Background(), "bench", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	ex := got[0]
	if ex.ID != "EIeI8Vf" || ex.Name != "barbell bench press" || ex.Source != "exercisedb" {
		t.Errorf("result = %+v", ex)
	}
	if ex.MuscleGroup == nil || *ex.MuscleGroup != "chest" {
		t.Errorf("muscle group = %v", ex.MuscleGroup)
	}
	if ex.ExternalID == nil || *ex.ExternalID != "EIeI8Vf" {
		t.Errorf("external id = %v", ex.ExternalID)
	}
	if ex.ImageURL == nil || *ex.ImageURL != "https://img/1.gif" || ex.VideoURL != nil {
		t.Errorf("media = %v / %v", ex.ImageURL, ex.VideoURL)
	}
}

// TestSearchFallsBackToV1Name verifies an empty v2 result moves on to the
// v1 name endpoint with the query path-escaped.
func TestSearchFallsBackToV1Name(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/v2/exercises/search": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []any{})
		},
		"/exercises/name/bench press": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []map[string]any{
				{"id": "0025", "name": "barbell bench press", "bodyPart": "chest", "equipment": "barbell", "gifUrl": "https://img/25.gif"},
			})
		},
	})
	defer ts.Close()

	c, _ := newTestClient(ts.URL, 0)
	got, err := c.Search(context.Background(), "bench press", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "0025" {
		t.Fatalf("got %+v", got)
	}
	if len(got[0].BodyParts) != 1 || got[0].Equipments[0] != "barbell" {
		t.Errorf("body parts / equipment = %v / %v", got[0].BodyParts, got[0].Equipments)
	}
	if got[0].ImageURL == nil || *got[0].ImageURL != "https://img/25.gif" {
		t.Errorf("image = %v", got[0].ImageURL)
	}
}

// TestSearchFallsBackToList verifies the full list is truncated to limit
// when both search endpoints fail.
func TestSearchFallsBackToList(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/v2/exercises/search": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		},
		"/exercises": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, []map[string]any{
				{"id": 1, "name": "a"}, {"id": 2}, {"id": 3, "name": "c"},
			})
		},
	})
	defer ts.Close()

	c, _ := newTestClient(ts.URL, 0)
	got, err := c.Search(context.Background(), "zzz", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "Exercise #2" {
		t.Errorf("got %+v", got)
	}
}

// TestSearchAllFail verifies an error when every endpoint fails.
func TestSearchAllFail(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{})
	defer ts.Close()

	c, _ := newTestClient(ts.URL, 0)
	if _, err := c.Search(context.Background(), "bench", 10); err == nil {
		t.Fatal("expected error")
	}
}

// TestSearchCaches verifies a second identical search is served from cache.
func TestSearchCaches(t *testing.T) {
	calls := 0
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/v2/exercises/search": func(w http.ResponseWriter, r *http.Request) {
			calls++
			writeTestJSON(t, w, []map[string]any{{"id": "1", "name": "squat"}})
		},
	})
	defer ts.Close()

	c, m := newTestClient(ts.URL, 1)
	for i := 0; i < 2; i++ {
		got, err := c.Search(context.Background(), "Squat", 10)
		if err != nil || len(got) != 1 {
			t.Fatalf("search %d: %v %v", i, got, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	if hits := testutil.ToFloat64(m.CounterLookupCache.WithLabelValues("hit")); hits != 1 {
		t.Errorf("cache hits = %v, want 1", hits)
	}
}

// TestSearchCacheKeyKeepsCase verifies queries differing only in case are
// fetched separately, each with its own casing.
func TestSearchCacheKeyKeepsCase(t *testing.T) {
	var queries []string
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/v2/exercises/search": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query().Get("query")
			queries = append(queries, q)
			writeTestJSON(t, w, []map[string]any{{"id": q, "name": q}})
		},
	})
	defer ts.Close()

	c, _ := newTestClient(ts.URL, 1)
	for _, q := range []string{"Squat", "squat", "Squat"} {
		got, err := c.Search(context.Background(), q, 10)
		if err != nil || len(got) != 1 {
			t.Fatalf("search %q: %v %v", q, got, err)
		}
		if got[0].Name != q {
			t.Errorf("search %q returned %q", q, got[0].Name)
		}
	}
	if len(queries) != 2 || queries[0] != "Squat" || queries[1] != "squat" {
		t.Errorf("upstream queries = %v, want [Squat squat]", queries)
	}
}
