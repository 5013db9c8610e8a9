package models

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// WorkoutInput is the create/update payload for a workout.
type WorkoutInput struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	DurationSec *int            `json:"duration_seconds"`
	DistanceKm  *float64        `json:"distance_km"`
	Calories    *int            `json:"calories"`
	Notes       *string         `json:"notes"`
	Exercises   []ExerciseInput `json:"exercises"`
}

// ExerciseInput is one exercise within a WorkoutInput.
type ExerciseInput struct {
	ExerciseID     *int64     `json:"exercise_id"`
	ExternalSource *string    `json:"external_source"`
	ExternalID     *string    `json:"external_id"`
	Name           string     `json:"name"`
	OrderNo        *int       `json:"order_no"`
	Sets           []SetInput `json:"sets"`
}

// SetInput is one set within an ExerciseInput.
type SetInput struct {
	SetNo       *int     `json:"set_no"`
	Reps        *int     `json:"reps"`
	WeightKg    *float64 `json:"weight_kg"`
	RIR         *int     `json:"rir"`
	RestSeconds *int     `json:"rest_seconds"`
}

// ValidationError carries per-field messages keyed by dotted path
// (e.g. "exercises.0.sets.1.reps").
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Validate checks the payload and returns a *ValidationError when any rule fails.
// On success the parsed date is returned.
func (in *WorkoutInput) Validate() (Date, error) {
	verr := &ValidationError{}

	var date Date
	if strings.TrimSpace(in.Date) == "" {
		verr.add("date", "is required")
	} else if d, err := ParseDate(in.Date); err != nil {
		verr.add("date", "must be a date (YYYY-MM-DD)")
	} else {
		date = d
	}

	switch {
	case strings.TrimSpace(in.Type) == "":
		verr.add("type", "is required")
	case utf8.RuneCountInString(in.Type) > 30:
		verr.add("type", "must be at most 30 characters")
	}

	if in.DurationSec != nil && *in.DurationSec < 0 {
		verr.add("duration_seconds", "must be at least 0")
	}
	if in.DistanceKm != nil && *in.DistanceKm < 0 {
		verr.add("distance_km", "must be at least 0")
	}
	if in.Calories != nil && *in.Calories < 0 {
		verr.add("calories", "must be at least 0")
	}

	for i, ex := range in.Exercises {
		prefix := fmt.Sprintf("exercises.%d", i)
		switch {
		case strings.TrimSpace(ex.Name) == "":
			verr.add(prefix+".name", "is required")
		case utf8.RuneCountInString(ex.Name) > 120:
			verr.add(prefix+".name", "must be at most 120 characters")
		}
		if ex.ExternalSource != nil && utf8.RuneCountInString(*ex.ExternalSource) > 50 {
			verr.add(prefix+".external_source", "must be at most 50 characters")
		}
		if ex.ExternalID != nil && utf8.RuneCountInString(*ex.ExternalID) > 80 {
			verr.add(prefix+".external_id", "must be at most 80 characters")
		}
		if ex.OrderNo != nil && *ex.OrderNo < 1 {
			verr.add(prefix+".order_no", "must be at least 1")
		}
		for j, set := range ex.Sets {
			sp := fmt.Sprintf("%s.sets.%d", prefix, j)
			if set.SetNo != nil && *set.SetNo < 1 {
				verr.add(sp+".set_no", "must be at least 1")
			}
			if set.Reps != nil && *set.Reps < 1 {
				verr.add(sp+".reps", "Reps must be at least 1.")
			}
			if set.WeightKg != nil && *set.WeightKg < 0 {
				verr.add(sp+".weight_kg", "must be at least 0")
			}
			if set.RIR != nil && (*set.RIR < 0 || *set.RIR > 10) {
				verr.add(sp+".rir", "must be between 0 and 10")
			}
			if set.RestSeconds != nil && *set.RestSeconds < 0 {
				verr.add(sp+".rest_seconds", "must be at least 0")
			}
		}
	}

	// Strength workouts need real content.
	if WorkoutType(in.Type) == WorkoutStrength {
		if len(in.Exercises) == 0 {
			verr.add("exercises", "Add at least one exercise.")
		}
		for i, ex := range in.Exercises {
			if len(ex.Sets) == 0 {
				verr.add(fmt.Sprintf("exercises.%d.sets", i), "Each exercise must have at least one set.")
				continue
			}
			for j, set := range ex.Sets {
				if set.Reps == nil || *set.Reps < 1 {
					verr.add(fmt.Sprintf("exercises.%d.sets.%d.reps", i, j), "Reps must be at least 1.")
				}
			}
		}
	}

	if len(verr.Fields) > 0 {
		return Date{}, verr
	}
	return date, nil
}
