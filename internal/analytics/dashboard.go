package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

const (
	// RecentWorkouts is how many workouts the dashboard lists.
	RecentWorkouts   = 8
	activeDaysWindow = 7
)

// RecentWorkout is a dashboard row.
type RecentWorkout struct {
	ID         uuid.UUID          `json:"id"`
	Date       *models.Date       `json:"date"`
	Type       models.WorkoutType `json:"type"`
	Duration   string             `json:"duration"`
	DistanceKm float64            `json:"distance_km"`
	Calories   int                `json:"calories"`
}

// Dashboard is the all-time summary shown on the landing page.
type Dashboard struct {
	TotalWorkouts   int             `json:"total_workouts"`
	TotalDistanceKm float64         `json:"total_distance_km"`
	TotalCalories   int             `json:"total_calories"`
	ActiveDays      int             `json:"active_days"`
	Recent          []RecentWorkout `json:"recent"`
}

// BuildDashboard totals every workout, counts distinct workout days within
// the last 7 days including today and lists the most recent workouts.
func BuildDashboard(workouts []models.Workout, now time.Time) Dashboard {
	today := models.DateOf(now)
	weekAgo := today.AddDays(-(activeDaysWindow - 1))

	d := Dashboard{TotalWorkouts: len(workouts), Recent: []RecentWorkout{}}
	days := map[models.Date]struct{}{}
	for _, w := range workouts {
		e := Normalize(w)
		d.TotalDistanceKm += e.DistanceKm
		d.TotalCalories += e.Calories
		if e.Date != nil && e.Date.Between(weekAgo, today) {
			days[*e.Date] = struct{}{}
		}
	}
	d.TotalDistanceKm = round2(d.TotalDistanceKm)
	d.ActiveDays = len(days)

	sorted := append([]models.Workout(nil), workouts...)
	sort.SliceStable(sorted, func(i, j int) bool { return newer(sorted[i], sorted[j]) })
	for _, w := range sorted[:min(len(sorted), RecentWorkouts)] {
		e := Normalize(w)
		d.Recent = append(d.Recent, RecentWorkout{
			ID:         e.ID,
			Date:       e.Date,
			Type:       e.Type,
			Duration:   FormatDuration(e.DurationSec),
			DistanceKm: e.DistanceKm,
			Calories:   e.Calories,
		})
	}
	return d
}

// FormatDuration renders seconds as "HH:MM:SS". Hours are not capped at 24.
func FormatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
}

// newer orders by date desc (undated last), then creation desc.
func newer(a, b models.Workout) bool {
	switch {
	case a.Date == nil && b.Date == nil:
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	case !a.Date.Time.Equal(b.Date.Time):
		return a.Date.After(*b.Date)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
