// Package lookup merges local catalog exercises with external catalog hits
// for the exercise picker.
package lookup

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Catalog searches the local exercise catalog.
type Catalog interface {
	SearchCatalog(ctx context.Context, q string, limit int) ([]models.Exercise, error)
}

// External searches an external exercise catalog.
type External interface {
	Search(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error)
}

// Service answers exercise searches.
type Service struct {
	catalog  Catalog
	external External
	metrics  *metrics.Manager
	log      *slog.Logger
}

// New creates a Service. external may be nil to search the local catalog only.
func New(catalog Catalog, external External, m *metrics.Manager, log *slog.Logger) *Service {
	return &Service{catalog: catalog, external: external, metrics: m, log: log}
}

// ClampLimit maps a requested limit into [1, MaxLimit], defaulting non-positive values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Search returns local matches followed by external matches, deduplicated
// on (lowercased name, source, external id). External failures are logged
// and degrade to local results only.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.ExerciseLookup{}, nil
	}
	limit = ClampLimit(limit)

	local, err := s.catalog.SearchCatalog(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	s.metrics.CounterLookups.WithLabelValues(models.LookupSourceLocal, resultLabel(len(local))).Inc()

	results := make([]models.ExerciseLookup, 0, len(local))
	for _, e := range local {
		results = append(results, fromCatalog(e))
	}

	if s.external != nil {
		ext, err := s.external.Search(ctx, q, limit)
		if err != nil {
			s.log.Warn("external exercise lookup failed", "query", q, "error", err)
			s.metrics.CounterLookups.WithLabelValues(models.LookupSourceExerciseDB, "error").Inc()
		} else {
			s.metrics.CounterLookups.WithLabelValues(models.LookupSourceExerciseDB, resultLabel(len(ext))).Inc()
			results = append(results, ext...)
		}
	}

	return dedupe(results), nil
}

func fromCatalog(e models.Exercise) models.ExerciseLookup {
	return models.ExerciseLookup{
		Source:      models.LookupSourceLocal,
		ID:          strconv.FormatInt(e.ID, 10),
		Name:        e.Name,
		MuscleGroup: e.MuscleGroup,
		BodyParts:   []string{},
		Equipments:  []string{},
	}
}

// dedupe keeps the first result per lower(name)|source|external_id.
func dedupe(results []models.ExerciseLookup) []models.ExerciseLookup {
	seen := map[string]bool{}
	out := make([]models.ExerciseLookup, 0, len(results))
	for _, r := range results {
		extID := ""
		if r.ExternalID != nil {
			extID = *r.ExternalID
		}
		key := strings.ToLower(r.Name) + "|" + r.Source + "|" + extID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func resultLabel(n int) string {
	if n == 0 {
		return "empty"
	}
	return "ok"
}
