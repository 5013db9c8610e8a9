package analytics

import (
	"sort"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// ExerciseSummary is the all-time record of one exercise identity.
type ExerciseSummary struct {
	Name             string       `json:"name"`
	IdentityKey      string       `json:"identity_key"`
	RepresentativeID uuid.UUID    `json:"representative_workout_exercise_id"`
	SessionsCount    int          `json:"sessions_count"`
	LastDate         *models.Date `json:"last_date"`
	BestWeightKg     float64      `json:"best_weight_kg"`
	BestOneRMKg      float64      `json:"best_one_rm_kg"`
	TotalVolume      float64      `json:"total_volume"`
}

type identityGroup struct {
	id   Identity
	rows []models.ExerciseHistoryRow
}

// groupByIdentity buckets rows by resolved identity, in first-seen order.
func groupByIdentity(rows []models.ExerciseHistoryRow) []*identityGroup {
	index := map[Identity]*identityGroup{}
	var groups []*identityGroup
	for _, r := range rows {
		id := Resolve(r.WorkoutExercise)
		g, ok := index[id]
		if !ok {
			g = &identityGroup{id: id}
			index[id] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	return groups
}

// StrengthSummary ranks every exercise identity by best estimated 1RM,
// highest first. Identities without sets or without a resolvable name are
// left out. Best weight and best 1RM are maximised independently and may
// come from different sets.
func StrengthSummary(rows []models.ExerciseHistoryRow) []ExerciseSummary {
	out := []ExerciseSummary{}
	for _, g := range groupByIdentity(rows) {
		first := g.rows[0]
		name := displayName(first)
		if name == "" {
			continue
		}

		var sets []models.WorkoutSet
		workouts := map[uuid.UUID]struct{}{}
		var last *models.Date
		for _, r := range g.rows {
			sets = append(sets, r.Sets...)
			workouts[r.WorkoutID] = struct{}{}
			if r.WorkoutDate != nil && (last == nil || r.WorkoutDate.After(*last)) {
				last = r.WorkoutDate
			}
		}
		if len(sets) == 0 {
			continue
		}

		s := ExerciseSummary{
			Name:             name,
			IdentityKey:      g.id.Key(),
			RepresentativeID: first.ID,
			SessionsCount:    len(workouts),
			LastDate:         last,
		}
		for _, set := range sets {
			if set.WeightKg != nil {
				if *set.WeightKg > s.BestWeightKg {
					s.BestWeightKg = *set.WeightKg
				}
				if orm := EstimateOneRM(set.WeightKg, set.Reps); orm > s.BestOneRMKg {
					s.BestOneRMKg = orm
				}
			}
			if set.WeightKg != nil && set.Reps != nil {
				s.TotalVolume += *set.WeightKg * float64(*set.Reps)
			}
		}
		s.TotalVolume = round2(s.TotalVolume)
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BestOneRMKg > out[j].BestOneRMKg
	})
	return out
}

// displayName is the logged name, falling back to the catalog name.
func displayName(r models.ExerciseHistoryRow) string {
	if r.Name != "" {
		return r.Name
	}
	if r.CatalogName != nil {
		return *r.CatalogName
	}
	return ""
}
