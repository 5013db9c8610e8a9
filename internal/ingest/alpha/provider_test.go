package alpha

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
)

type upsertCall struct {
	source, ref string
	in          *models.WorkoutInput
}

type fakeStore struct {
	calls []upsertCall
	seen  map[string]bool
}

func (f *fakeStore) UpsertSourcedWorkout(_ context.Context, _ int, source, ref string, in *models.WorkoutInput) (bool, int64, error) {
	if _, err := in.Validate(); err != nil {
		return false, 0, err
	}
	f.calls = append(f.calls, upsertCall{source, ref, in})
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	created := !f.seen[ref]
	f.seen[ref] = true
	var sets int64
	for _, ex := range in.Exercises {
		sets += int64(len(ex.Sets))
	}
	return created, sets, nil
}

func newTestProvider(store *fakeStore) *Provider {
	return NewProvider(store, metrics.NewTestManager(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestIngestStoresSessions verifies each session becomes one Strength workout
// keyed by its start, with warmups dropped.
func TestIngestStoresSessions(t *testing.T) {
	store := &fakeStore{}
	res, err := newTestProvider(store).Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WorkoutsReceived != 2 || res.WorkoutsInserted != 2 {
		t.Errorf("result = %+v", res)
	}
	// 17 working sets in the legs session, 3 in push.
	if res.SetsReceived != 20 || res.SetsInserted != 20 {
		t.Errorf("sets received/inserted = %d/%d, want 20/20", res.SetsReceived, res.SetsInserted)
	}

	first := store.calls[0]
	if first.source != models.SourceAlpha || first.ref != "2026-02-19 04:54" {
		t.Errorf("key = %s/%s", first.source, first.ref)
	}
	if first.in.Date != "2026-02-19" || first.in.Type != "Strength" {
		t.Errorf("input = %s %s", first.in.Date, first.in.Type)
	}
	if first.in.DurationSec == nil || *first.in.DurationSec != 3720 {
		t.Errorf("duration = %v, want 3720", first.in.DurationSec)
	}
	hack := first.in.Exercises[0]
	if hack.Name != "Hack Squats" || len(hack.Sets) != 3 {
		t.Errorf("first exercise = %s with %d sets", hack.Name, len(hack.Sets))
	}
	if *hack.Sets[0].WeightKg != 115 || *hack.Sets[0].Reps != 8 || *hack.Sets[0].RIR != 1 {
		t.Errorf("first set = %+v", hack.Sets[0])
	}
}

// TestIngestReimportUpdates verifies importing the same export twice updates
// instead of inserting.
func TestIngestReimportUpdates(t *testing.T) {
	store := &fakeStore{}
	p := newTestProvider(store)
	if _, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1); err != nil {
		t.Fatal(err)
	}
	res, err := p.Ingest(context.Background(), strings.NewReader(sampleCSV), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.WorkoutsInserted != 0 || res.WorkoutsUpdated != 2 {
		t.Errorf("result = %+v, want 2 updates", res)
	}
}

// TestIngestSkipsEmptySession verifies a session with only warmups is skipped.
func TestIngestSkipsEmptySession(t *testing.T) {
	csv := "\"Warmup only\";\"2026-02-20 6:00 h\";\"0:10 hr\"\n\"1. Bench Press · Barbell · 6 reps\";\"WU1 · 20 kg · 10 reps\"\n"
	res, err := newTestProvider(&fakeStore{}).Ingest(context.Background(), strings.NewReader(csv), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.WorkoutsSkipped != 1 || res.WorkoutsInserted != 0 {
		t.Errorf("result = %+v", res)
	}
}

// TestParseDuration verifies "H:MM hr" parsing and unknown formats.
func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1:02 hr", 3720, true},
		{"0:45 hr", 2700, true},
		{"12:00 h", 43200, true},
		{"45 min", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := ParseDuration(tt.in)
		if (got != nil) != tt.ok || (got != nil && *got != tt.want) {
			t.Errorf("ParseDuration(%q) = %v, want %d (ok=%v)", tt.in, got, tt.want, tt.ok)
		}
	}
}

// TestRIRRounding verifies half values round and the range is clamped.
func TestRIRRounding(t *testing.T) {
	for in, want := range map[float64]int{0: 0, 0.5: 1, 2.4: 2, 12: 10, -1: 0} {
		if got := *rir(in); got != want {
			t.Errorf("rir(%v) = %d, want %d", in, got, want)
		}
	}
}
