package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalWorkouts    int64             `json:"total_workouts"`
	TotalExercises   int64             `json:"total_exercises"`
	TotalSets        int64             `json:"total_sets"`
	EarliestDate     *time.Time        `json:"earliest_date"`
	LatestDate       *time.Time        `json:"latest_date"`
	WorkoutsByType   []WorkoutTypeStat `json:"workouts_by_type"`
	WorkoutsBySource []SourceStat      `json:"workouts_by_source"`
}

// WorkoutTypeStat holds summary stats for a single workout type.
type WorkoutTypeStat struct {
	Type          string  `json:"type"`
	Count         int64   `json:"count"`
	TotalDuration int64   `json:"total_duration_sec"`
	TotalDistance float64 `json:"total_distance_km"`
	TotalCalories int64   `json:"total_calories"`
}

// SourceStat counts workouts per origin (manual, alpha, hae).
type SourceStat struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{WorkoutsByType: []WorkoutTypeStat{}, WorkoutsBySource: []SourceStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(date)::timestamptz, MAX(date)::timestamptz FROM workouts WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.EarliestDate, &stats.LatestDate)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT we.id), COUNT(s.id)
		 FROM workout_exercises we
		 JOIN workouts w ON w.id = we.workout_id
		 LEFT JOIN workout_sets s ON s.workout_exercise_id = we.id
		 WHERE w.user_id = $1`, userID,
	).Scan(&stats.TotalExercises, &stats.TotalSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	// Workouts by type
	rows, err := db.Pool.Query(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(duration_sec), 0), COALESCE(SUM(distance_km), 0), COALESCE(SUM(calories), 0)
		 FROM workouts
		 WHERE user_id = $1
		 GROUP BY type
		 ORDER BY COUNT(*) DESC, type`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s WorkoutTypeStat
		if err := rows.Scan(&s.Type, &s.Count, &s.TotalDuration, &s.TotalDistance, &s.TotalCalories); err != nil {
			return nil, fmt.Errorf("scanning workout type stat: %w", err)
		}
		stats.WorkoutsByType = append(stats.WorkoutsByType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	srcRows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*) FROM workouts WHERE user_id = $1 GROUP BY source ORDER BY source`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts by source: %w", err)
	}
	defer srcRows.Close()

	for srcRows.Next() {
		var s SourceStat
		if err := srcRows.Scan(&s.Source, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats.WorkoutsBySource = append(stats.WorkoutsBySource, s)
	}
	if err := srcRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
