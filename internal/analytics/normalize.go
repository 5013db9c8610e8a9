package analytics

import (
	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// Entry is a workout with its optional numerics resolved. Duration, distance
// and calories are absent-means-zero for every aggregation in this package;
// Normalize is the only place that decision is made.
type Entry struct {
	ID          uuid.UUID
	Date        *models.Date
	Type        models.WorkoutType
	DurationSec int
	DistanceKm  float64
	Calories    int
}

// Normalize defaults a workout's missing duration, distance and calories to 0.
func Normalize(w models.Workout) Entry {
	e := Entry{ID: w.ID, Date: w.Date, Type: w.Type}
	if w.DurationSec != nil {
		e.DurationSec = *w.DurationSec
	}
	if w.DistanceKm != nil {
		e.DistanceKm = *w.DistanceKm
	}
	if w.Calories != nil {
		e.Calories = *w.Calories
	}
	return e
}

// NormalizeAll normalizes workouts, preserving order.
func NormalizeAll(workouts []models.Workout) []Entry {
	out := make([]Entry, len(workouts))
	for i, w := range workouts {
		out[i] = Normalize(w)
	}
	return out
}
