// Package ingest holds what the import providers share.
package ingest

import (
	"context"

	"github.com/claude/fitlog/internal/models"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutsReceived int `json:"workouts_received"`
	WorkoutsInserted int `json:"workouts_inserted"`
	WorkoutsUpdated  int `json:"workouts_updated"`
	WorkoutsSkipped  int `json:"workouts_skipped"`

	SetsReceived int   `json:"sets_received"`
	SetsInserted int64 `json:"sets_inserted"`

	MetricsReceived int `json:"metrics_received,omitempty"`
	MetricsSkipped  int `json:"metrics_skipped,omitempty"`

	Message string `json:"message,omitempty"`
}

// WorkoutStore stores imported workouts keyed by (user, source, ref).
type WorkoutStore interface {
	UpsertSourcedWorkout(ctx context.Context, userID int, source, ref string, in *models.WorkoutInput) (created bool, sets int64, err error)
}

// Count records one upsert outcome.
func (r *Result) Count(created bool, sets int64) {
	if created {
		r.WorkoutsInserted++
	} else {
		r.WorkoutsUpdated++
	}
	r.SetsInserted += sets
}
