package mcp

import (
	"context"

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *reports.Service
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Overview(ctx context.Context, userID int, types []string, from, to *models.Date) (*analytics.Overview, error)
	Records(ctx context.Context, userID int, opts reports.RecordsOptions) (*analytics.Records, error)
	StrengthExercises(ctx context.Context, userID int) ([]analytics.ExerciseSummary, error)
	ExerciseSeries(ctx context.Context, userID int, identityKey string) (*analytics.ExerciseSeries, error)
	ListWorkouts(ctx context.Context, userID int, f storage.WorkoutFilter) (*storage.WorkoutPage, error)
	Dashboard(ctx context.Context, userID int) (*analytics.Dashboard, error)
	SearchExercises(ctx context.Context, query string, limit int) ([]models.ExerciseLookup, error)
}

// Compile-time check: *reports.Service satisfies DataSource.
var _ DataSource = (*reports.Service)(nil)
