package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Workout event types written to the outbox.
const (
	EventWorkoutCreated = "workout.created"
	EventWorkoutUpdated = "workout.updated"
	EventWorkoutDeleted = "workout.deleted"
)

// claimTimeout is how long a claimed but unpublished event stays invisible
// to other dispatchers before it is retried.
const claimTimeout = time.Minute

// WorkoutEvent is the JSON payload of a workout outbox event.
type WorkoutEvent struct {
	WorkoutID   uuid.UUID    `json:"workout_id"`
	UserID      int          `json:"user_id"`
	Date        *models.Date `json:"date,omitempty"`
	Type        string       `json:"type"`
	Source      string       `json:"source"`
	DurationSec int          `json:"duration_seconds,omitempty"`
	DistanceKm  float64      `json:"distance_km,omitempty"`
	Calories    int          `json:"calories,omitempty"`
	Exercises   int          `json:"exercises,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// OutboxEvent is an outbox row awaiting delivery.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

func newWorkoutEvent(id uuid.UUID, userID int, date models.Date, in *models.WorkoutInput, source string) WorkoutEvent {
	d := date
	return WorkoutEvent{
		WorkoutID:   id,
		UserID:      userID,
		Date:        &d,
		Type:        in.Type,
		Source:      source,
		DurationSec: valueOr(in.DurationSec),
		DistanceKm:  valueOr(in.DistanceKm),
		Calories:    valueOr(in.Calories),
		Exercises:   len(in.Exercises),
		OccurredAt:  time.Now().UTC(),
	}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType string, ev WorkoutEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO outbox (id, aggregate_id, event_type, payload) VALUES ($1,$2,$3,$4)`,
		uuid.New(), ev.WorkoutID, eventType, body)
	if err != nil {
		return fmt.Errorf("inserting %s event: %w", eventType, err)
	}
	return nil
}

// ClaimOutbox locks up to limit unpublished events, oldest first, and marks
// them claimed so concurrent dispatchers skip them.
func (db *DB) ClaimOutbox(ctx context.Context, limit int) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, aggregate_id, event_type, payload, created_at
			 FROM outbox
			 WHERE published_at IS NULL
			   AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $2))
			 ORDER BY created_at
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED`,
			limit, claimTimeout.Seconds())
		if err != nil {
			return fmt.Errorf("selecting outbox events: %w", err)
		}
		defer rows.Close()

		var ids []uuid.UUID
		for rows.Next() {
			var e OutboxEvent
			if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
				return fmt.Errorf("scanning outbox event: %w", err)
			}
			events = append(events, e)
			ids = append(ids, e.ID)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("claiming outbox events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkOutboxPublished records successful delivery of the given events.
func (db *DB) MarkOutboxPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := db.Pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("marking outbox events published: %w", err)
	}
	return nil
}

// ReleaseOutbox clears the claim on events whose delivery failed so the next
// poll retries them.
func (db *DB) ReleaseOutbox(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := db.Pool.Exec(ctx, `UPDATE outbox SET claimed_at = NULL WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("releasing outbox events: %w", err)
	}
	return nil
}
