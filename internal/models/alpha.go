package models

import "time"

// AlphaSession is one workout session from an Alpha Progression CSV export.
type AlphaSession struct {
	Name      string
	Start     time.Time
	Duration  string // e.g. "1:02 hr"
	Exercises []AlphaExercise
}

// AlphaExercise is a single exercise within a session.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet is a working or warmup set. Bodyweight-plus sets ("+35") carry
// only the added load in WeightKg.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}
