package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"

	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
)

// sessionRefLayout formats a session start as its source_ref.
const sessionRefLayout = "2006-01-02 15:04"

// durationRe matches session durations like "1:02 hr".
var durationRe = regexp.MustCompile(`^(\d+):(\d{2})\s*hr?$`)

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store   ingest.WorkoutStore
	metrics *metrics.Manager
	log     *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store ingest.WorkoutStore, m *metrics.Manager, log *slog.Logger) *Provider {
	return &Provider{store: store, metrics: m, log: log}
}

// Ingest parses a CSV export and stores each session as a Strength workout.
// Re-importing a session replaces the workout stored for the same start time.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{}
	for _, s := range sessions {
		result.WorkoutsReceived++

		in, sets := SessionInput(s)
		result.SetsReceived += sets
		ref := s.Start.Format(sessionRefLayout)

		created, inserted, err := p.store.UpsertSourcedWorkout(ctx, userID, models.SourceAlpha, ref, in)
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			p.log.Warn("skipping session", "session", s.Name, "start", ref, "error", verr)
			result.WorkoutsSkipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("storing session %s: %w", ref, err)
		}
		result.Count(created, inserted)
		p.metrics.CounterImportedWorkouts.WithLabelValues(models.SourceAlpha, action(created)).Inc()
	}

	p.log.Info("alpha import finished",
		"sessions", result.WorkoutsReceived,
		"inserted", result.WorkoutsInserted,
		"updated", result.WorkoutsUpdated,
		"skipped", result.WorkoutsSkipped)
	return result, nil
}

// SessionInput converts a parsed session into a Strength workout payload.
// Warmup sets and exercises left without working sets are dropped. It also
// returns the number of working sets kept.
func SessionInput(s models.AlphaSession) (*models.WorkoutInput, int) {
	in := &models.WorkoutInput{
		Date:        s.Start.Format(models.DateLayout),
		Type:        string(models.WorkoutStrength),
		DurationSec: ParseDuration(s.Duration),
		Exercises:   []models.ExerciseInput{},
	}
	if s.Name != "" {
		name := s.Name
		in.Notes = &name
	}

	total := 0
	for _, ex := range s.Exercises {
		var sets []models.SetInput
		for _, set := range ex.Sets {
			if set.IsWarmup || set.Reps < 1 {
				continue
			}
			sets = append(sets, models.SetInput{
				SetNo:    intPtr(set.Number),
				Reps:     intPtr(set.Reps),
				WeightKg: &set.WeightKg,
				RIR:      rir(set.RIR),
			})
		}
		if len(sets) == 0 {
			continue
		}
		total += len(sets)
		in.Exercises = append(in.Exercises, models.ExerciseInput{
			Name:    ex.Name,
			OrderNo: intPtr(len(in.Exercises) + 1),
			Sets:    sets,
		})
	}
	return in, total
}

// ParseDuration converts "H:MM hr" to seconds. Unknown formats yield nil.
func ParseDuration(s string) *int {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec := h*3600 + mins*60
	return &sec
}

// rir rounds fractional RIR values into the stored 0..10 range.
func rir(v float64) *int {
	r := int(math.Round(v))
	r = max(0, min(r, 10))
	return &r
}

func intPtr(v int) *int {
	if v < 1 {
		return nil
	}
	return &v
}

func action(created bool) string {
	if created {
		return "inserted"
	}
	return "updated"
}
