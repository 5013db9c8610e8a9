package analytics

import (
	"testing"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// TestStrengthSummaryMergesByCatalogID verifies that differently named rows
// sharing a catalog id form one summary with independent best weight and 1RM.
func TestStrengthSummaryMergesByCatalogID(t *testing.T) {
	w1, w2 := uuid.New(), uuid.New()
	rows := []models.ExerciseHistoryRow{
		row(w1, "2025-10-01", models.WorkoutExercise{Name: "Bench Press", ExerciseID: ptr(int64(7))},
			set(ptr(100.0), ptr(5))),
		row(w2, "2025-10-08", models.WorkoutExercise{Name: "bench", ExerciseID: ptr(int64(7))},
			set(ptr(90.0), ptr(10))),
	}

	got := StrengthSummary(rows)
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	s := got[0]
	if s.Name != "Bench Press" || s.IdentityKey != "local:7" || s.RepresentativeID != rows[0].ID {
		t.Errorf("header = %+v", s)
	}
	if s.SessionsCount != 2 {
		t.Errorf("sessions = %d, want 2", s.SessionsCount)
	}
	if s.BestWeightKg != 100 || s.BestOneRMKg != 120.0 || s.TotalVolume != 1400 {
		t.Errorf("best weight %v, 1RM %v, volume %v; want 100, 120, 1400", s.BestWeightKg, s.BestOneRMKg, s.TotalVolume)
	}
	if s.LastDate == nil || s.LastDate.String() != "2025-10-08" {
		t.Errorf("last date = %v, want 2025-10-08", s.LastDate)
	}
}

// TestStrengthSummaryOrderAndFiltering verifies descending 1RM order with
// stable ties, the catalog-name fallback and the dropped groups.
func TestStrengthSummaryOrderAndFiltering(t *testing.T) {
	w := uuid.New()
	rows := []models.ExerciseHistoryRow{
		row(w, "2025-10-01", models.WorkoutExercise{Name: "Curl"}, set(ptr(20.0), ptr(10))),
		row(w, "2025-10-01", models.WorkoutExercise{Name: "Squat"}, set(ptr(140.0), ptr(3))),
		row(w, "2025-10-01", models.WorkoutExercise{Name: "Pull-up"}, set(nil, ptr(8))),
		row(w, "2025-10-01", models.WorkoutExercise{Name: "Plank"}),
		row(w, "2025-10-01", models.WorkoutExercise{Name: "Dips"}, set(nil, ptr(12))),
	}
	catalog := row(w, "2025-10-01", models.WorkoutExercise{ExerciseID: ptr(int64(3))}, set(ptr(60.0), ptr(8)))
	catalog.CatalogName = ptr("Overhead Press")
	nameless := row(w, "2025-10-01", models.WorkoutExercise{}, set(ptr(50.0), ptr(5)))
	rows = append(rows, catalog, nameless)

	got := StrengthSummary(rows)
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	want := []string{"Squat", "Overhead Press", "Curl", "Pull-up", "Dips"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if got[3].BestOneRMKg != 0 || got[3].TotalVolume != 0 {
		t.Errorf("bodyweight summary = %+v, want zero 1RM and volume", got[3])
	}
}

// TestStrengthSummaryEmpty verifies an empty, non-nil result.
func TestStrengthSummaryEmpty(t *testing.T) {
	got := StrengthSummary(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("StrengthSummary(nil) = %#v, want empty slice", got)
	}
}
