package analytics

import (
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// fixedNow is a Wednesday; its week starts Monday 2025-11-03.
var fixedNow = time.Date(2025, 11, 5, 14, 30, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func day(s string) *models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func workout(date string, typ models.WorkoutType, durSec int, km float64, kcal int) models.Workout {
	w := models.Workout{
		ID:          uuid.New(),
		Type:        typ,
		DurationSec: ptr(durSec),
		DistanceKm:  ptr(km),
		Calories:    ptr(kcal),
	}
	if date != "" {
		w.Date = day(date)
	}
	return w
}

func set(weight *float64, reps *int) models.WorkoutSet {
	return models.WorkoutSet{ID: uuid.New(), WeightKg: weight, Reps: reps}
}

func row(workoutID uuid.UUID, date string, ex models.WorkoutExercise, sets ...models.WorkoutSet) models.ExerciseHistoryRow {
	ex.ID = uuid.New()
	ex.WorkoutID = workoutID
	ex.Sets = sets
	r := models.ExerciseHistoryRow{WorkoutExercise: ex}
	if date != "" {
		r.WorkoutDate = day(date)
	}
	return r
}
