package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkoutType is the discipline of a workout. Stored values are free text
// up to 30 characters; the constants below are the ones analytics knows about.
type WorkoutType string

const (
	WorkoutRun      WorkoutType = "Run"
	WorkoutRide     WorkoutType = "Ride"
	WorkoutSwim     WorkoutType = "Swim"
	WorkoutStrength WorkoutType = "Strength"
	WorkoutOther    WorkoutType = "Other"
)

// KnownWorkoutTypes lists the types accepted by list filters.
var KnownWorkoutTypes = []WorkoutType{WorkoutRun, WorkoutRide, WorkoutSwim, WorkoutStrength, WorkoutOther}

// ParseWorkoutType matches s case-insensitively against KnownWorkoutTypes.
func ParseWorkoutType(s string) (WorkoutType, bool) {
	for _, t := range KnownWorkoutTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Workout sources.
const (
	SourceManual = "manual"
	SourceAlpha  = "alpha"
	SourceHAE    = "hae"
)

// Workout is a single logged training session.
type Workout struct {
	ID          uuid.UUID         `json:"id"`
	UserID      int               `json:"-"`
	Date        *Date             `json:"date"`
	Type        WorkoutType       `json:"type"`
	DurationSec *int              `json:"duration_seconds"`
	DistanceKm  *float64          `json:"distance_km"`
	Calories    *int              `json:"calories"`
	Notes       *string           `json:"notes,omitempty"`
	Source      string            `json:"source"`
	SourceRef   *string           `json:"source_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Exercises   []WorkoutExercise `json:"exercises,omitempty"`
}

// Exercise is a local catalog entry.
type Exercise struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	MuscleGroup *string `json:"muscle_group"`
}

// WorkoutExercise is one exercise performed within a strength workout.
type WorkoutExercise struct {
	ID             uuid.UUID    `json:"id"`
	WorkoutID      uuid.UUID    `json:"workout_id"`
	OrderNo        int          `json:"order_no"`
	Name           string       `json:"name"`
	ExerciseID     *int64       `json:"exercise_id"`
	ExternalSource *string      `json:"external_source"`
	ExternalID     *string      `json:"external_id"`
	Sets           []WorkoutSet `json:"sets"`
}

// WorkoutSet is a single set. Reps and weight are nullable: a missing weight
// is not the same as a bodyweight set logged as 0 kg.
type WorkoutSet struct {
	ID          uuid.UUID `json:"id"`
	SetNo       int       `json:"set_no"`
	Reps        *int      `json:"reps"`
	WeightKg    *float64  `json:"weight_kg"`
	RIR         *int      `json:"rir"`
	RestSeconds *int      `json:"rest_seconds"`
}

// ExerciseHistoryRow is a workout exercise joined with its parent workout's
// date and owner and the linked catalog entry's name.
type ExerciseHistoryRow struct {
	WorkoutExercise
	UserID      int
	WorkoutDate *Date
	CatalogName *string
}
