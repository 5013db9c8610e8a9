package analytics

import (
	"time"

	"github.com/claude/fitlog/internal/models"
)

// OverviewFilters echoes the type filter that produced an Overview.
type OverviewFilters struct {
	AvailableTypes []string     `json:"available_types"`
	SelectedTypes  []string     `json:"selected_types"`
	From           *models.Date `json:"from"`
	To             *models.Date `json:"to"`
}

// Overview is the analytics page payload.
type Overview struct {
	Weekly  []Bucket        `json:"weekly"`
	Monthly []Bucket        `json:"monthly"`
	Filters OverviewFilters `json:"filters"`
}

// SelectTypes resolves the requested type filter against the types the user
// actually has. An empty request selects everything; otherwise the result is
// the intersection in the order of available, which is empty when nothing
// requested exists. Callers must not treat that as "no filter".
func SelectTypes(available, requested []string) []string {
	if len(requested) == 0 {
		return append([]string{}, available...)
	}
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[r] = true
	}
	selected := []string{}
	for _, a := range available {
		if want[a] {
			selected = append(selected, a)
		}
	}
	return selected
}

// BuildOverview assembles weekly and monthly buckets for already-filtered workouts.
func BuildOverview(workouts []models.Workout, filters OverviewFilters, now time.Time) Overview {
	if filters.AvailableTypes == nil {
		filters.AvailableTypes = []string{}
	}
	if filters.SelectedTypes == nil {
		filters.SelectedTypes = []string{}
	}
	return Overview{
		Weekly:  Weekly(workouts, now),
		Monthly: Monthly(workouts, now),
		Filters: filters,
	}
}
