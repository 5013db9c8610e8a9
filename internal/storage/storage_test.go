package storage

import (
	"encoding/json"
	"testing"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// TestEscapeLike verifies LIKE wildcards in user queries are matched literally.
func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bench", "bench"},
		{"100%", `100\%`},
		{"t_bar", `t\_bar`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestNewWorkoutEvent verifies absent numerics become zero and the payload
// omits them on the wire.
func TestNewWorkoutEvent(t *testing.T) {
	id := uuid.New()
	date := models.NewDate(2025, 3, 14)
	km := 10.5
	in := &models.WorkoutInput{Date: "2025-03-14", Type: "Run", DistanceKm: &km}

	ev := newWorkoutEvent(id, 3, date, in, models.SourceHAE)
	if ev.WorkoutID != id || ev.UserID != 3 || ev.Source != "hae" || ev.Type != "Run" {
		t.Errorf("event = %+v", ev)
	}
	if ev.DurationSec != 0 || ev.Calories != 0 || ev.DistanceKm != 10.5 {
		t.Errorf("numerics = %d / %d / %v", ev.DurationSec, ev.Calories, ev.DistanceKm)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["duration_seconds"]; ok {
		t.Error("zero duration should be omitted")
	}
	if m["date"] != "2025-03-14" {
		t.Errorf("date = %v, want 2025-03-14", m["date"])
	}
}
