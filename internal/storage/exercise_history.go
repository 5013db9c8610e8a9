package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const historyColumns = `we.id, we.workout_id, we.order_no, we.name, we.exercise_id,
	we.external_source, we.external_id, w.user_id, w.date, e.name`

const historyFrom = `FROM workout_exercises we
	JOIN workouts w ON w.id = we.workout_id
	LEFT JOIN exercises e ON e.id = we.exercise_id`

// QueryExerciseHistory returns every workout exercise of a user with its sets,
// ordered by workout date then order_no.
func (db *DB) QueryExerciseHistory(ctx context.Context, userID int) ([]models.ExerciseHistoryRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+historyColumns+` `+historyFrom+`
		 WHERE w.user_id = $1
		 ORDER BY w.date ASC NULLS LAST, w.created_at ASC, we.order_no ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	result := []models.ExerciseHistoryRow{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		r, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		index[r.ID] = len(result)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.workout_exercise_id, s.id, s.set_no, s.reps, s.weight_kg, s.rir, s.rest_seconds
		 FROM workout_sets s
		 JOIN workout_exercises we ON we.id = s.workout_exercise_id
		 JOIN workouts w ON w.id = we.workout_id
		 WHERE w.user_id = $1
		 ORDER BY s.workout_exercise_id, s.set_no ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var exID uuid.UUID
		var s models.WorkoutSet
		if err := setRows.Scan(&exID, &s.ID, &s.SetNo, &s.Reps, &s.WeightKg, &s.RIR, &s.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning exercise set: %w", err)
		}
		if i, ok := index[exID]; ok {
			result[i].Sets = append(result[i].Sets, s)
		}
	}
	return result, setRows.Err()
}

// GetWorkoutExercise loads one workout exercise for userID. It returns
// ErrNotFound when the row does not exist and ErrForbidden when it belongs
// to someone else.
func (db *DB) GetWorkoutExercise(ctx context.Context, userID int, id uuid.UUID) (*models.ExerciseHistoryRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+historyColumns+` `+historyFrom+` WHERE we.id = $1`, id)
	r, err := scanHistoryRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, ErrForbidden
	}
	return &r, nil
}

func scanHistoryRow(row pgx.Row) (models.ExerciseHistoryRow, error) {
	var (
		r    models.ExerciseHistoryRow
		date *time.Time
	)
	err := row.Scan(&r.ID, &r.WorkoutID, &r.OrderNo, &r.Name, &r.ExerciseID,
		&r.ExternalSource, &r.ExternalID, &r.UserID, &date, &r.CatalogName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning exercise history row: %w", err)
	}
	r.WorkoutDate = models.DatePtr(date)
	return r, nil
}
