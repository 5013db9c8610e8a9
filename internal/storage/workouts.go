package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PerPage is the fixed page size of ListWorkouts.
const PerPage = 10

// WorkoutFilter narrows ListWorkouts. Nil fields are not applied.
type WorkoutFilter struct {
	From        *models.Date
	To          *models.Date
	Type        *models.WorkoutType
	MinDistance *float64
	MaxDistance *float64
	MinCalories *int
	MaxCalories *int
	Page        int
}

// WorkoutPage is one page of ListWorkouts.
type WorkoutPage struct {
	Data     []models.Workout `json:"data"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
	Total    int              `json:"total"`
	LastPage int              `json:"last_page"`
}

const workoutColumns = `id, user_id, date, type, duration_sec, distance_km, calories, notes,
	source, source_ref, created_at, updated_at`

// CreateWorkout validates in and stores it as a manual workout together with
// its exercises and sets and a workout.created event.
func (db *DB) CreateWorkout(ctx context.Context, userID int, in *models.WorkoutInput) (*models.Workout, error) {
	date, err := in.Validate()
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	err = db.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertWorkoutRow(ctx, tx, id, userID, date, in, models.SourceManual, nil); err != nil {
			return err
		}
		if _, err := insertExercises(ctx, tx, id, in); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, EventWorkoutCreated, newWorkoutEvent(id, userID, date, in, models.SourceManual))
	})
	if err != nil {
		return nil, err
	}
	return db.GetWorkout(ctx, userID, id)
}

// UpdateWorkout replaces the fields, exercises and sets of an existing workout.
// Exercises and sets are deleted and recreated from in.
func (db *DB) UpdateWorkout(ctx context.Context, userID int, id uuid.UUID, in *models.WorkoutInput) (*models.Workout, error) {
	date, err := in.Validate()
	if err != nil {
		return nil, err
	}

	err = db.inTx(ctx, func(tx pgx.Tx) error {
		var source string
		err := tx.QueryRow(ctx,
			`SELECT source FROM workouts WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			id, userID).Scan(&source)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("locking workout: %w", err)
		}
		if _, err := replaceWorkout(ctx, tx, id, date, in); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, EventWorkoutUpdated, newWorkoutEvent(id, userID, date, in, source))
	})
	if err != nil {
		return nil, err
	}
	return db.GetWorkout(ctx, userID, id)
}

// DeleteWorkout removes a workout; exercises and sets cascade.
func (db *DB) DeleteWorkout(ctx context.Context, userID int, id uuid.UUID) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var (
			date   *time.Time
			typ    string
			source string
		)
		err := tx.QueryRow(ctx,
			`DELETE FROM workouts WHERE id = $1 AND user_id = $2 RETURNING date, type, source`,
			id, userID).Scan(&date, &typ, &source)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("deleting workout: %w", err)
		}
		return insertOutbox(ctx, tx, EventWorkoutDeleted, WorkoutEvent{
			WorkoutID:  id,
			UserID:     userID,
			Date:       models.DatePtr(date),
			Type:       typ,
			Source:     source,
			OccurredAt: time.Now().UTC(),
		})
	})
}

// UpsertSourcedWorkout stores an imported workout keyed by (user, source, ref).
// An existing workout with the same key is replaced in place. It reports
// whether a new workout was created and how many sets were written.
func (db *DB) UpsertSourcedWorkout(ctx context.Context, userID int, source, ref string, in *models.WorkoutInput) (created bool, sets int64, err error) {
	date, err := in.Validate()
	if err != nil {
		return false, 0, err
	}

	err = db.inTx(ctx, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT id FROM workouts WHERE user_id = $1 AND source = $2 AND source_ref = $3 FOR UPDATE`,
			userID, source, ref).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			created = true
			id = uuid.New()
			if err := insertWorkoutRow(ctx, tx, id, userID, date, in, source, &ref); err != nil {
				return err
			}
			if sets, err = insertExercises(ctx, tx, id, in); err != nil {
				return err
			}
			return insertOutbox(ctx, tx, EventWorkoutCreated, newWorkoutEvent(id, userID, date, in, source))
		case err != nil:
			return fmt.Errorf("looking up %s workout %q: %w", source, ref, err)
		}

		if sets, err = replaceWorkout(ctx, tx, id, date, in); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, EventWorkoutUpdated, newWorkoutEvent(id, userID, date, in, source))
	})
	return created, sets, err
}

// GetWorkout returns a workout with its exercises (by order_no) and their
// sets (by set_no).
func (db *DB) GetWorkout(ctx context.Context, userID int, id uuid.UUID) (*models.Workout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		id, userID)
	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT id, workout_id, order_no, name, exercise_id, external_source, external_id
		 FROM workout_exercises
		 WHERE workout_id = $1
		 ORDER BY order_no ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer exRows.Close()

	index := map[uuid.UUID]int{}
	for exRows.Next() {
		var ex models.WorkoutExercise
		if err := exRows.Scan(&ex.ID, &ex.WorkoutID, &ex.OrderNo, &ex.Name,
			&ex.ExerciseID, &ex.ExternalSource, &ex.ExternalID); err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		ex.Sets = []models.WorkoutSet{}
		index[ex.ID] = len(w.Exercises)
		w.Exercises = append(w.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}
	if len(w.Exercises) == 0 {
		return &w, nil
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT s.workout_exercise_id, s.id, s.set_no, s.reps, s.weight_kg, s.rir, s.rest_seconds
		 FROM workout_sets s
		 JOIN workout_exercises we ON we.id = s.workout_exercise_id
		 WHERE we.workout_id = $1
		 ORDER BY s.set_no ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var exID uuid.UUID
		var s models.WorkoutSet
		if err := setRows.Scan(&exID, &s.ID, &s.SetNo, &s.Reps, &s.WeightKg, &s.RIR, &s.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		if i, ok := index[exID]; ok {
			w.Exercises[i].Sets = append(w.Exercises[i].Sets, s)
		}
	}
	return &w, setRows.Err()
}

// ListWorkouts returns one page of a user's workouts, newest first.
func (db *DB) ListWorkouts(ctx context.Context, userID int, f WorkoutFilter) (*WorkoutPage, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("date >= $%d", f.From.Time)
	}
	if f.To != nil {
		add("date <= $%d", f.To.Time)
	}
	if f.Type != nil {
		add("LOWER(type) = LOWER($%d)", string(*f.Type))
	}
	if f.MinDistance != nil {
		add("distance_km >= $%d", *f.MinDistance)
	}
	if f.MaxDistance != nil {
		add("distance_km <= $%d", *f.MaxDistance)
	}
	if f.MinCalories != nil {
		add("calories >= $%d", *f.MinCalories)
	}
	if f.MaxCalories != nil {
		add("calories <= $%d", *f.MaxCalories)
	}
	cond := strings.Join(where, " AND ")

	page := &WorkoutPage{Data: []models.Workout{}, Page: max(f.Page, 1), PerPage: PerPage}
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM workouts WHERE `+cond, args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}
	page.LastPage = max((page.Total+PerPage-1)/PerPage, 1)

	args = append(args, PerPage, (page.Page-1)*PerPage)
	rows, err := db.Pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM workouts WHERE %s
		 ORDER BY date DESC NULLS LAST, created_at DESC
		 LIMIT $%d OFFSET $%d`, workoutColumns, cond, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		page.Data = append(page.Data, w)
	}
	return page, rows.Err()
}

// QueryAnalyticsWorkouts returns dated workouts of the given types within
// [from, to], oldest first. An empty types slice applies no type filter.
func (db *DB) QueryAnalyticsWorkouts(ctx context.Context, userID int, types []string, from, to *models.Date) ([]models.Workout, error) {
	where := []string{"user_id = $1", "date IS NOT NULL"}
	args := []any{userID}
	if len(types) > 0 {
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if from != nil {
		args = append(args, from.Time)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, to.Time)
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY date ASC, created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying analytics workouts: %w", err)
	}
	defer rows.Close()
	return scanWorkouts(rows)
}

// QueryAllWorkouts returns every workout of a user without exercises,
// newest first.
func (db *DB) QueryAllWorkouts(ctx context.Context, userID int) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE user_id = $1
		 ORDER BY date DESC NULLS LAST, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()
	return scanWorkouts(rows)
}

// WorkoutTypes returns the distinct workout types a user has logged, sorted.
func (db *DB) WorkoutTypes(ctx context.Context, userID int) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT type FROM workouts WHERE user_id = $1 ORDER BY type`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning workout type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func insertWorkoutRow(ctx context.Context, tx pgx.Tx, id uuid.UUID, userID int, date models.Date, in *models.WorkoutInput, source string, ref *string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO workouts (id, user_id, date, type, duration_sec, distance_km, calories, notes, source, source_ref)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		id, userID, date.Time, in.Type, valueOr(in.DurationSec), valueOr(in.DistanceKm),
		valueOr(in.Calories), in.Notes, source, ref)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

func updateWorkoutRow(ctx context.Context, tx pgx.Tx, id uuid.UUID, date models.Date, in *models.WorkoutInput) error {
	_, err := tx.Exec(ctx,
		`UPDATE workouts SET date = $2, type = $3, duration_sec = $4, distance_km = $5,
		 calories = $6, notes = $7, updated_at = NOW()
		 WHERE id = $1`,
		id, date.Time, in.Type, valueOr(in.DurationSec), valueOr(in.DistanceKm),
		valueOr(in.Calories), in.Notes)
	if err != nil {
		return fmt.Errorf("updating workout: %w", err)
	}
	return nil
}

// replaceWorkout updates the workout row and recreates its exercises and sets.
func replaceWorkout(ctx context.Context, tx pgx.Tx, id uuid.UUID, date models.Date, in *models.WorkoutInput) (int64, error) {
	if err := updateWorkoutRow(ctx, tx, id, date, in); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM workout_exercises WHERE workout_id = $1`, id); err != nil {
		return 0, fmt.Errorf("clearing exercises: %w", err)
	}
	return insertExercises(ctx, tx, id, in)
}

// insertExercises writes the exercises and sets of a strength workout.
// Other types carry no exercises. It returns the number of sets written.
func insertExercises(ctx context.Context, tx pgx.Tx, workoutID uuid.UUID, in *models.WorkoutInput) (int64, error) {
	if models.WorkoutType(in.Type) != models.WorkoutStrength {
		return 0, nil
	}

	var sets int64
	for i, ex := range in.Exercises {
		exID := uuid.New()
		orderNo := i + 1
		if ex.OrderNo != nil {
			orderNo = *ex.OrderNo
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO workout_exercises (id, workout_id, order_no, name, exercise_id, external_source, external_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			exID, workoutID, orderNo, strings.TrimSpace(ex.Name), ex.ExerciseID, ex.ExternalSource, ex.ExternalID)
		if err != nil {
			return 0, fmt.Errorf("inserting exercise %q: %w", ex.Name, err)
		}

		for j, s := range ex.Sets {
			setNo := j + 1
			if s.SetNo != nil {
				setNo = *s.SetNo
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO workout_sets (id, workout_exercise_id, set_no, reps, weight_kg, rir, rest_seconds)
				 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				uuid.New(), exID, setNo, s.Reps, s.WeightKg, s.RIR, s.RestSeconds)
			if err != nil {
				return 0, fmt.Errorf("inserting set %d of %q: %w", setNo, ex.Name, err)
			}
			sets++
		}
	}
	return sets, nil
}

func scanWorkout(row pgx.Row) (models.Workout, error) {
	var (
		w    models.Workout
		date *time.Time
		typ  string
	)
	err := row.Scan(&w.ID, &w.UserID, &date, &typ, &w.DurationSec, &w.DistanceKm, &w.Calories,
		&w.Notes, &w.Source, &w.SourceRef, &w.CreatedAt, &w.UpdatedAt)
	w.Date = models.DatePtr(date)
	w.Type = models.WorkoutType(typ)
	return w, err
}

func scanWorkouts(rows pgx.Rows) ([]models.Workout, error) {
	result := []models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func valueOr[T int | float64](p *T) T {
	if p == nil {
		return 0
	}
	return *p
}
