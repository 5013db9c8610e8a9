package analytics

import (
	"time"

	"github.com/claude/fitlog/internal/models"
)

const (
	WeeklyBuckets  = 8
	MonthlyBuckets = 12
)

// Bucket is one trailing time window with workout totals.
type Bucket struct {
	Label      string      `json:"label"`
	Start      models.Date `json:"start"`
	End        models.Date `json:"end"`
	Workouts   int         `json:"workouts"`
	DistanceKm float64     `json:"distance_km"`
	Calories   int         `json:"calories"`
}

// StartOfWeek returns the Monday on or before d.
func StartOfWeek(d models.Date) models.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d models.Date) models.Date {
	return models.NewDate(d.Year(), d.Month(), 1)
}

// Weekly returns the 8 Monday-to-Sunday weeks ending with the week of now,
// oldest first. Labels read "dd.mm - dd.mm".
func Weekly(workouts []models.Workout, now time.Time) []Bucket {
	entries := NormalizeAll(workouts)
	current := StartOfWeek(models.DateOf(now))

	out := make([]Bucket, 0, WeeklyBuckets)
	for k := WeeklyBuckets - 1; k >= 0; k-- {
		start := current.AddDays(-7 * k)
		end := start.AddDays(6)
		out = append(out, fill(Bucket{
			Label: start.Format("02.01") + " - " + end.Format("02.01"),
			Start: start,
			End:   end,
		}, entries))
	}
	return out
}

// Monthly returns the 12 calendar months ending with the month of now,
// oldest first. Labels read "mm.yyyy".
func Monthly(workouts []models.Workout, now time.Time) []Bucket {
	entries := NormalizeAll(workouts)
	current := StartOfMonth(models.DateOf(now))

	out := make([]Bucket, 0, MonthlyBuckets)
	for k := MonthlyBuckets - 1; k >= 0; k-- {
		// time.Date normalizes month underflow into the previous year.
		start := models.NewDate(current.Year(), current.Month()-time.Month(k), 1)
		end := models.NewDate(start.Year(), start.Month()+1, 0)
		out = append(out, fill(Bucket{
			Label: start.Format("01.2006"),
			Start: start,
			End:   end,
		}, entries))
	}
	return out
}

// fill sums the entries dated inside [b.Start, b.End]. Undated entries never match.
func fill(b Bucket, entries []Entry) Bucket {
	for _, e := range entries {
		if e.Date == nil || !e.Date.Between(b.Start, b.End) {
			continue
		}
		b.Workouts++
		b.DistanceKm += e.DistanceKm
		b.Calories += e.Calories
	}
	b.DistanceKm = round2(b.DistanceKm)
	return b
}
