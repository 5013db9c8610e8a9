package analytics

import (
	"math"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// DefaultTolerance is the relative band used for named best efforts (±10%).
const DefaultTolerance = 0.1

// paceFloorKm guards the pace division; real inputs are already distance > 0.
const paceFloorKm = 0.0001

// Target is a named distance a best effort is measured against.
type Target struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

// Targets lists the named best-effort distances per endurance discipline.
var Targets = map[models.WorkoutType][]Target{
	models.WorkoutRun: {
		{"5K", 5},
		{"10K", 10},
		{"Half Marathon", 21.0975},
		{"Marathon", 42.195},
	},
	models.WorkoutRide: {
		{"20K", 20},
		{"40K", 40},
		{"100K", 100},
	},
	models.WorkoutSwim: {
		{"400m", 0.4},
		{"1500m", 1.5},
		{"3.8K", 3.8},
	},
}

// Record is a single personal-best workout.
type Record struct {
	WorkoutID   uuid.UUID          `json:"workout_id"`
	Date        *models.Date       `json:"date"`
	Type        models.WorkoutType `json:"type,omitempty"`
	DistanceKm  float64            `json:"distance_km"`
	DurationSec int                `json:"duration_seconds"`
	PaceSecKm   *int               `json:"pace_seconds_per_km,omitempty"`
	Calories    *int               `json:"calories,omitempty"`
}

// BestEffort is the fastest workout around a named target distance.
type BestEffort struct {
	Target string  `json:"target"`
	Km     float64 `json:"target_km"`
	Record *Record `json:"record"`
}

// DisciplineRecords are the records of one endurance discipline. Nil
// records mean no workout qualified.
type DisciplineRecords struct {
	Longest        *Record      `json:"longest"`
	FastestOverall *Record      `json:"fastest_overall"`
	MaxCalories    *Record      `json:"max_calories"`
	BestEfforts    []BestEffort `json:"best_efforts"`
}

// OverallRecords span every workout type.
type OverallRecords struct {
	MaxCalories *Record `json:"max_calories"`
}

// EnduranceSummary groups the per-discipline records.
type EnduranceSummary struct {
	Run     DisciplineRecords `json:"run"`
	Ride    DisciplineRecords `json:"ride"`
	Swim    DisciplineRecords `json:"swim"`
	Overall OverallRecords    `json:"overall"`
}

// EnduranceRecords computes Run, Ride and Swim records and the overall
// max-calories record. Workouts with no duration are ignored.
func EnduranceRecords(workouts []models.Workout) EnduranceSummary {
	entries := timed(NormalizeAll(workouts))
	return EnduranceSummary{
		Run:     disciplineRecords(entries, models.WorkoutRun),
		Ride:    disciplineRecords(entries, models.WorkoutRide),
		Swim:    disciplineRecords(entries, models.WorkoutSwim),
		Overall: OverallRecords{MaxCalories: maxCalories(entries, true)},
	}
}

// RecordsFor computes the records of a single discipline.
func RecordsFor(workouts []models.Workout, discipline models.WorkoutType) DisciplineRecords {
	return disciplineRecords(timed(NormalizeAll(workouts)), discipline)
}

// BestForTarget picks the shortest-duration workout whose distance lies in
// [target*(1-tolerance), target*(1+tolerance)]. It returns nil when none does.
func BestForTarget(workouts []models.Workout, targetKm, tolerance float64) *Record {
	return bestForTarget(timed(NormalizeAll(workouts)), targetKm, tolerance)
}

func disciplineRecords(entries []Entry, discipline models.WorkoutType) DisciplineRecords {
	var pool []Entry
	for _, e := range entries {
		if e.Type == discipline && e.DistanceKm > 0 && e.DurationSec > 0 {
			pool = append(pool, e)
		}
	}

	recs := DisciplineRecords{BestEfforts: []BestEffort{}}
	for _, t := range Targets[discipline] {
		recs.BestEfforts = append(recs.BestEfforts, BestEffort{
			Target: t.Name,
			Km:     t.DistanceKm,
			Record: bestForTarget(pool, t.DistanceKm, DefaultTolerance),
		})
	}
	if len(pool) == 0 {
		return recs
	}

	// Strict comparisons keep the first of equal candidates.
	longest, fastest := pool[0], pool[0]
	for _, e := range pool[1:] {
		if e.DistanceKm > longest.DistanceKm {
			longest = e
		}
		if pace(e) < pace(fastest) {
			fastest = e
		}
	}

	recs.Longest = newRecord(longest)
	recs.FastestOverall = withPace(newRecord(fastest), fastest)
	recs.MaxCalories = maxCalories(pool, false)
	return recs
}

func bestForTarget(entries []Entry, targetKm, tolerance float64) *Record {
	lo, hi := targetKm*(1-tolerance), targetKm*(1+tolerance)
	var best *Entry
	for i := range entries {
		e := &entries[i]
		if e.DurationSec <= 0 || e.DistanceKm < lo || e.DistanceKm > hi {
			continue
		}
		if best == nil || e.DurationSec < best.DurationSec {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	rec := newRecord(*best)
	if best.DistanceKm > 0 {
		rec = withPace(rec, *best)
	}
	return rec
}

func maxCalories(entries []Entry, withType bool) *Record {
	var best *Entry
	for i := range entries {
		e := &entries[i]
		if e.Calories <= 0 {
			continue
		}
		if best == nil || e.Calories > best.Calories {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	rec := newRecord(*best)
	cal := best.Calories
	rec.Calories = &cal
	if withType {
		rec.Type = best.Type
	}
	return rec
}

func timed(entries []Entry) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.DurationSec > 0 {
			out = append(out, e)
		}
	}
	return out
}

// pace is seconds per kilometre.
func pace(e Entry) float64 {
	return float64(e.DurationSec) / math.Max(e.DistanceKm, paceFloorKm)
}

func newRecord(e Entry) *Record {
	return &Record{
		WorkoutID:   e.ID,
		Date:        e.Date,
		DistanceKm:  e.DistanceKm,
		DurationSec: e.DurationSec,
	}
}

func withPace(r *Record, e Entry) *Record {
	p := int(math.Round(pace(e)))
	r.PaceSecKm = &p
	return r
}
