// Package reports loads a user's history from storage and runs it through
// the analytics functions. The REST handlers and the MCP tools both read
// through it.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/google/uuid"
)

// Store is the subset of storage the reports read from.
type Store interface {
	QueryAnalyticsWorkouts(ctx context.Context, userID int, types []string, from, to *models.Date) ([]models.Workout, error)
	QueryAllWorkouts(ctx context.Context, userID int) ([]models.Workout, error)
	WorkoutTypes(ctx context.Context, userID int) ([]string, error)
	ListWorkouts(ctx context.Context, userID int, f storage.WorkoutFilter) (*storage.WorkoutPage, error)
	QueryExerciseHistory(ctx context.Context, userID int) ([]models.ExerciseHistoryRow, error)
	GetWorkoutExercise(ctx context.Context, userID int, id uuid.UUID) (*models.ExerciseHistoryRow, error)
}

// Searcher finds exercises by name.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error)
}

// RecordsOptions narrows Records. An empty Discipline means all of them.
type RecordsOptions struct {
	Discipline models.WorkoutType
	Endurance  bool
	Strength   bool
}

// Service computes analytics payloads for one user at a time.
type Service struct {
	store  Store
	search Searcher
	now    func() time.Time
}

// New creates a Service. search may be nil, in which case SearchExercises
// returns no results.
func New(store Store, search Searcher) *Service {
	return &Service{store: store, search: search, now: time.Now}
}

// Overview returns weekly and monthly buckets for the selected types within
// the optional inclusive [from, to] range. Requested types the user has
// never logged select nothing: when none of them match, the buckets are empty
// rather than falling back to all types.
func (s *Service) Overview(ctx context.Context, userID int, types []string, from, to *models.Date) (*analytics.Overview, error) {
	available, err := s.store.WorkoutTypes(ctx, userID)
	if err != nil {
		return nil, err
	}
	selected := analytics.SelectTypes(available, types)

	var workouts []models.Workout
	if len(selected) > 0 {
		workouts, err = s.store.QueryAnalyticsWorkouts(ctx, userID, selected, from, to)
		if err != nil {
			return nil, err
		}
	}

	ov := analytics.BuildOverview(workouts, analytics.OverviewFilters{
		AvailableTypes: available,
		SelectedTypes:  selected,
		From:           from,
		To:             to,
	}, s.now())
	return &ov, nil
}

// Records returns endurance and strength records.
func (s *Service) Records(ctx context.Context, userID int, opts RecordsOptions) (*analytics.Records, error) {
	var rec analytics.Records
	if opts.Endurance {
		workouts, err := s.store.QueryAllWorkouts(ctx, userID)
		if err != nil {
			return nil, err
		}
		if opts.Discipline != "" {
			workouts = ofType(workouts, opts.Discipline)
		}
		summary := analytics.EnduranceRecords(workouts)
		rec.Endurance = &summary
	}
	if opts.Strength {
		strength, err := s.StrengthExercises(ctx, userID)
		if err != nil {
			return nil, err
		}
		rec.Strength = strength
	}
	return &rec, nil
}

// StrengthExercises ranks the user's exercises by best estimated 1RM.
func (s *Service) StrengthExercises(ctx context.Context, userID int) ([]analytics.ExerciseSummary, error) {
	rows, err := s.store.QueryExerciseHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.StrengthSummary(rows), nil
}

// WorkoutExerciseSeries builds the series of the exercise group that the
// workout exercise id belongs to. It passes through storage.ErrNotFound and
// storage.ErrForbidden.
func (s *Service) WorkoutExerciseSeries(ctx context.Context, userID int, id uuid.UUID) (*analytics.ExerciseSeries, error) {
	anchor, err := s.store.GetWorkoutExercise(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.QueryExerciseHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	series := analytics.BuildExerciseSeries(*anchor, rows)
	return &series, nil
}

// ExerciseSeries builds a series addressed by identity key. The first
// history row of that identity anchors the header.
func (s *Service) ExerciseSeries(ctx context.Context, userID int, identityKey string) (*analytics.ExerciseSeries, error) {
	id, err := analytics.ParseIdentity(identityKey)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.QueryExerciseHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if analytics.Resolve(r.WorkoutExercise) == id {
			series := analytics.BuildExerciseSeries(r, rows)
			return &series, nil
		}
	}
	return nil, fmt.Errorf("exercise %s: %w", identityKey, storage.ErrNotFound)
}

// ListWorkouts returns one page of the user's workouts.
func (s *Service) ListWorkouts(ctx context.Context, userID int, f storage.WorkoutFilter) (*storage.WorkoutPage, error) {
	return s.store.ListWorkouts(ctx, userID, f)
}

// Dashboard summarizes the user's whole history.
func (s *Service) Dashboard(ctx context.Context, userID int) (*analytics.Dashboard, error) {
	workouts, err := s.store.QueryAllWorkouts(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := analytics.BuildDashboard(workouts, s.now())
	return &d, nil
}

// SearchExercises looks an exercise up in the local and external catalogs.
func (s *Service) SearchExercises(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error) {
	if s.search == nil {
		return []models.ExerciseLookup{}, nil
	}
	return s.search.Search(ctx, query, limit)
}

func ofType(workouts []models.Workout, t models.WorkoutType) []models.Workout {
	out := make([]models.Workout, 0, len(workouts))
	for _, w := range workouts {
		if strings.EqualFold(string(w.Type), string(t)) {
			out = append(out, w)
		}
	}
	return out
}
