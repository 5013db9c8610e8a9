package hae

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
)

const kJPerKcal = 4.184

// Provider processes Health Auto Export REST API payloads.
type Provider struct {
	store   ingest.WorkoutStore
	metrics *metrics.Manager
	log     *slog.Logger
}

// NewProvider creates a new HAE ingest provider.
func NewProvider(store ingest.WorkoutStore, m *metrics.Manager, log *slog.Logger) *Provider {
	return &Provider{store: store, metrics: m, log: log}
}

// Ingest stores the payload's workouts as endurance workouts keyed by their
// HAE id. Health metrics are counted and skipped.
func (p *Provider) Ingest(ctx context.Context, payload *models.HAEPayload, userID int) (*ingest.Result, error) {
	result := &ingest.Result{
		MetricsReceived: len(payload.Data.Metrics),
		MetricsSkipped:  len(payload.Data.Metrics),
	}

	for _, w := range payload.Data.Workouts {
		result.WorkoutsReceived++

		if strings.TrimSpace(w.ID) == "" {
			p.log.Warn("skipping workout without id", "name", w.Name)
			result.WorkoutsSkipped++
			continue
		}

		in := WorkoutInput(w)
		created, _, err := p.store.UpsertSourcedWorkout(ctx, userID, models.SourceHAE, w.ID, in)
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			p.log.Warn("skipping workout", "id", w.ID, "error", verr)
			result.WorkoutsSkipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("storing workout %s: %w", w.ID, err)
		}
		result.Count(created, 0)
		p.metrics.CounterImportedWorkouts.WithLabelValues(models.SourceHAE, action(created)).Inc()
	}

	if result.MetricsSkipped > 0 {
		result.Message = fmt.Sprintf("%d health metrics were skipped; only workouts are stored.", result.MetricsSkipped)
	}
	return result, nil
}

// WorkoutInput converts an HAE workout into a workout payload.
func WorkoutInput(w models.HAEWorkout) *models.WorkoutInput {
	in := &models.WorkoutInput{
		Date: models.DateOf(w.Start.Time).String(),
		Type: string(MapType(w.Name)),
	}
	if w.Duration > 0 {
		sec := int(math.Round(w.Duration))
		in.DurationSec = &sec
	} else if d := w.End.Sub(w.Start.Time); d > 0 {
		sec := int(d.Seconds())
		in.DurationSec = &sec
	}
	if w.Distance != nil {
		if km, ok := DistanceKm(*w.Distance); ok {
			in.DistanceKm = &km
		}
	}
	if w.ActiveEnergyBurned != nil {
		if kcal, ok := Kilocalories(*w.ActiveEnergyBurned); ok {
			in.Calories = &kcal
		}
	}
	if w.Name != "" {
		notes := w.Name
		if w.Location != "" {
			notes += " (" + w.Location + ")"
		}
		in.Notes = &notes
	}
	return in
}

// MapType maps an HAE workout name onto a workout type.
func MapType(name string) models.WorkoutType {
	n := strings.ToLower(name)
	switch {
	case containsAny(n, "run", "walk", "hik", "jog"):
		return models.WorkoutRun
	case containsAny(n, "cycl", "bik", "ride"):
		return models.WorkoutRide
	case strings.Contains(n, "swim"):
		return models.WorkoutSwim
	default:
		return models.WorkoutOther
	}
}

// DistanceKm converts a distance quantity to kilometres, rounded to metres.
func DistanceKm(q models.HAEQuantity) (float64, bool) {
	var km float64
	switch strings.ToLower(strings.TrimSpace(q.Units)) {
	case "km":
		km = q.Qty
	case "m":
		km = q.Qty / 1000
	case "mi":
		km = q.Qty * 1.609344
	case "yd":
		km = q.Qty * 0.0009144
	default:
		return 0, false
	}
	if km < 0 {
		return 0, false
	}
	return math.Round(km*1000) / 1000, true
}

// Kilocalories converts an energy quantity to whole kcal.
func Kilocalories(q models.HAEQuantity) (int, bool) {
	var kcal float64
	switch strings.ToLower(strings.TrimSpace(q.Units)) {
	case "kcal", "cal":
		kcal = q.Qty
	case "kj":
		kcal = q.Qty / kJPerKcal
	default:
		return 0, false
	}
	if kcal < 0 {
		return 0, false
	}
	return int(math.Round(kcal)), true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func action(created bool) string {
	if created {
		return "inserted"
	}
	return "updated"
}
