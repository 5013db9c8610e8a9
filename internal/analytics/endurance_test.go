package analytics

import (
	"testing"

	"github.com/claude/fitlog/internal/models"
)

// TestBestForTargetPicksShortestDuration verifies that among workouts inside
// the tolerance band the shortest duration wins, not the closest distance.
func TestBestForTargetPicksShortestDuration(t *testing.T) {
	a := workout("2025-10-01", models.WorkoutRun, 1200, 4.9, 300)
	b := workout("2025-10-02", models.WorkoutRun, 1150, 5.3, 310)
	far := workout("2025-10-03", models.WorkoutRun, 900, 5.6, 200)

	rec := BestForTarget([]models.Workout{a, b, far}, 5, DefaultTolerance)
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.WorkoutID != b.ID || rec.DurationSec != 1150 {
		t.Errorf("record = %+v, want workout %s at 1150s", rec, b.ID)
	}
	if rec.PaceSecKm == nil || *rec.PaceSecKm != 217 {
		t.Errorf("pace = %v, want 217", rec.PaceSecKm)
	}
}

// TestBestForTargetEdges verifies band inclusivity, first-wins ties and the
// nil result.
func TestBestForTargetEdges(t *testing.T) {
	lo := workout("2025-10-01", models.WorkoutRun, 1500, 9, 0)
	hi := workout("2025-10-02", models.WorkoutRun, 1500, 11, 0)
	untimed := workout("2025-10-03", models.WorkoutRun, 0, 10, 0)

	rec := BestForTarget([]models.Workout{lo, hi, untimed}, 10, DefaultTolerance)
	if rec == nil || rec.WorkoutID != lo.ID {
		t.Errorf("record = %+v, want first of the tied workouts", rec)
	}
	if got := BestForTarget([]models.Workout{untimed}, 10, DefaultTolerance); got != nil {
		t.Errorf("untimed workout produced %+v", got)
	}
	if got := BestForTarget(nil, 10, DefaultTolerance); got != nil {
		t.Errorf("empty input produced %+v", got)
	}
}

// TestRecordsFor verifies longest, fastest and max-calories per discipline
// and that zero-distance workouts never qualify.
func TestRecordsFor(t *testing.T) {
	slow := workout("2025-09-01", models.WorkoutRun, 3600, 10, 700)
	fast := workout("2025-09-05", models.WorkoutRun, 1500, 5, 400)
	treadmill := workout("2025-09-06", models.WorkoutRun, 600, 0, 900)
	ride := workout("2025-09-07", models.WorkoutRide, 3600, 40, 1200)

	recs := RecordsFor([]models.Workout{slow, fast, treadmill, ride}, models.WorkoutRun)

	if recs.Longest == nil || recs.Longest.WorkoutID != slow.ID {
		t.Errorf("longest = %+v, want the 10 km run", recs.Longest)
	}
	if recs.FastestOverall == nil || recs.FastestOverall.WorkoutID != fast.ID {
		t.Fatalf("fastest = %+v, want the 5 km run", recs.FastestOverall)
	}
	if p := recs.FastestOverall.PaceSecKm; p == nil || *p != 300 {
		t.Errorf("fastest pace = %v, want 300", p)
	}
	if recs.MaxCalories == nil || recs.MaxCalories.WorkoutID != slow.ID {
		t.Errorf("max calories = %+v, want the 10 km run", recs.MaxCalories)
	}
	if recs.MaxCalories.Type != "" {
		t.Errorf("discipline record carries type %q", recs.MaxCalories.Type)
	}
	if len(recs.BestEfforts) != len(Targets[models.WorkoutRun]) {
		t.Fatalf("best efforts = %d, want %d", len(recs.BestEfforts), len(Targets[models.WorkoutRun]))
	}
	if be := recs.BestEfforts[0]; be.Target != "5K" || be.Record == nil || be.Record.WorkoutID != fast.ID {
		t.Errorf("5K effort = %+v", be)
	}
	if be := recs.BestEfforts[3]; be.Target != "Marathon" || be.Record != nil {
		t.Errorf("marathon effort = %+v, want no record", be)
	}
}

// TestRecordsForTiesKeepFirst verifies equal distances and paces keep input order.
func TestRecordsForTiesKeepFirst(t *testing.T) {
	first := workout("2025-09-01", models.WorkoutSwim, 1800, 1.5, 0)
	second := workout("2025-09-02", models.WorkoutSwim, 1800, 1.5, 0)

	recs := RecordsFor([]models.Workout{first, second}, models.WorkoutSwim)
	if recs.Longest.WorkoutID != first.ID || recs.FastestOverall.WorkoutID != first.ID {
		t.Errorf("ties resolved to %s / %s, want %s", recs.Longest.WorkoutID, recs.FastestOverall.WorkoutID, first.ID)
	}
	if recs.MaxCalories != nil {
		t.Errorf("max calories = %+v, want nil without calories", recs.MaxCalories)
	}
}

// TestEnduranceRecordsEmpty verifies every record is nil and every target is
// still listed when there is no data.
func TestEnduranceRecordsEmpty(t *testing.T) {
	sum := EnduranceRecords(nil)
	for name, recs := range map[string]DisciplineRecords{"run": sum.Run, "ride": sum.Ride, "swim": sum.Swim} {
		if recs.Longest != nil || recs.FastestOverall != nil || recs.MaxCalories != nil {
			t.Errorf("%s: unexpected records %+v", name, recs)
		}
		for _, be := range recs.BestEfforts {
			if be.Record != nil {
				t.Errorf("%s %s: unexpected record", name, be.Target)
			}
		}
	}
	if sum.Overall.MaxCalories != nil {
		t.Errorf("overall = %+v, want nil", sum.Overall.MaxCalories)
	}
}

// TestEnduranceOverallMaxCalories verifies the overall record spans every
// type, carries the type and ignores untimed workouts.
func TestEnduranceOverallMaxCalories(t *testing.T) {
	run := workout("2025-09-01", models.WorkoutRun, 3600, 10, 700)
	lift := workout("2025-09-02", models.WorkoutStrength, 4200, 0, 850)
	untimed := workout("2025-09-03", models.WorkoutOther, 0, 0, 5000)

	sum := EnduranceRecords([]models.Workout{run, lift, untimed})
	rec := sum.Overall.MaxCalories
	if rec == nil || rec.WorkoutID != lift.ID {
		t.Fatalf("overall = %+v, want the strength workout", rec)
	}
	if rec.Type != models.WorkoutStrength || rec.Calories == nil || *rec.Calories != 850 {
		t.Errorf("overall = %+v", rec)
	}
}
