package analytics

import "math"

// EstimateOneRM estimates a one-repetition maximum with the Epley formula,
// weight * (1 + reps/30), rounded to one decimal.
//
// It returns 0 when weight is missing or zero, or reps is missing or not
// positive. Callers treat 0 as "no estimate", not as a lift of 0 kg.
func EstimateOneRM(weightKg *float64, reps *int) float64 {
	if weightKg == nil || *weightKg == 0 || reps == nil || *reps <= 0 {
		return 0
	}
	return round1(*weightKg * (1 + float64(*reps)/30))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
