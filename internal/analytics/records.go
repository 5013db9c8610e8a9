package analytics

// Records is the personal-records payload. Either half may be omitted when
// the caller asked for only one of them.
type Records struct {
	Endurance *EnduranceSummary `json:"endurance,omitempty"`
	Strength  []ExerciseSummary `json:"strength,omitempty"`
}
