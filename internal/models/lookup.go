package models

// Exercise lookup sources.
const (
	LookupSourceLocal      = "local"
	LookupSourceExerciseDB = "exercisedb"
)

// ExerciseLookup is a search hit from the local catalog or an external catalog.
type ExerciseLookup struct {
	Source         string   `json:"source"`
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	MuscleGroup    *string  `json:"muscle_group"`
	ExternalSource *string  `json:"external_source"`
	ExternalID     *string  `json:"external_id"`
	BodyParts      []string `json:"body_parts"`
	Equipments     []string `json:"equipments"`
	ImageURL       *string  `json:"image_url"`
	VideoURL       *string  `json:"video_url"`
}
