package analytics

import (
	"sort"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// SeriesPoint is one training day of an exercise.
type SeriesPoint struct {
	Date       models.Date `json:"date"`
	Volume     float64     `json:"volume"`
	EstOneRMKg float64     `json:"est_one_rm_kg"`
}

// ExerciseHeader identifies the exercise a series belongs to.
type ExerciseHeader struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IdentityKey string    `json:"identity_key"`
}

// ExerciseSeries is a progression series with its exercise header.
type ExerciseSeries struct {
	Exercise ExerciseHeader `json:"exercise"`
	Series   []SeriesPoint  `json:"series"`
}

// Series builds the per-date progression of one identity, oldest first.
// Volume counts missing weight or reps as 0; the 1RM estimate is the best
// single-set estimate of the day, 0 when no set that day has a weight.
// Undated rows and dates without sets are skipped.
func Series(id Identity, rows []models.ExerciseHistoryRow) []SeriesPoint {
	byDate := map[models.Date]*SeriesPoint{}
	setCount := map[models.Date]int{}
	var order []models.Date

	for _, r := range rows {
		if r.WorkoutDate == nil || Resolve(r.WorkoutExercise) != id {
			continue
		}
		d := *r.WorkoutDate
		p, ok := byDate[d]
		if !ok {
			p = &SeriesPoint{Date: d}
			byDate[d] = p
			order = append(order, d)
		}
		for _, set := range r.Sets {
			setCount[d]++
			var w float64
			var reps int
			if set.WeightKg != nil {
				w = *set.WeightKg
			}
			if set.Reps != nil {
				reps = *set.Reps
			}
			p.Volume += w * float64(reps)
			if orm := EstimateOneRM(set.WeightKg, set.Reps); orm > p.EstOneRMKg {
				p.EstOneRMKg = orm
			}
		}
	}

	out := []SeriesPoint{}
	for _, d := range order {
		if setCount[d] == 0 {
			continue
		}
		p := *byDate[d]
		p.Volume = round2(p.Volume)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// BuildExerciseSeries resolves anchor's identity and builds its series over
// rows, which should hold the owner's complete exercise history.
func BuildExerciseSeries(anchor models.ExerciseHistoryRow, rows []models.ExerciseHistoryRow) ExerciseSeries {
	id := Resolve(anchor.WorkoutExercise)
	return ExerciseSeries{
		Exercise: ExerciseHeader{
			ID:          anchor.ID,
			Name:        displayName(anchor),
			IdentityKey: id.Key(),
		},
		Series: Series(id, rows),
	}
}
