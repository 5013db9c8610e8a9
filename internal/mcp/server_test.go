package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSource struct {
	gotUser   int
	gotTypes  []string
	gotOpts   reports.RecordsOptions
	gotFilter storage.WorkoutFilter
	gotLimit  int
}

func (f *fakeSource) Overview(_ context.Context, userID int, types []string, _, _ *models.Date) (*analytics.Overview, error) {
	f.gotUser, f.gotTypes = userID, types
	return &analytics.Overview{}, nil
}

func (f *fakeSource) Records(_ context.Context, userID int, opts reports.RecordsOptions) (*analytics.Records, error) {
	f.gotUser, f.gotOpts = userID, opts
	return &analytics.Records{}, nil
}

func (f *fakeSource) StrengthExercises(_ context.Context, _ int) ([]analytics.ExerciseSummary, error) {
	return []analytics.ExerciseSummary{{Name: "Squat", IdentityKey: "local:3", BestOneRMKg: 140}}, nil
}

func (f *fakeSource) ExerciseSeries(_ context.Context, _ int, key string) (*analytics.ExerciseSeries, error) {
	if _, err := analytics.ParseIdentity(key); err != nil {
		return nil, err
	}
	if key != "local:3" {
		return nil, storage.ErrNotFound
	}
	return &analytics.ExerciseSeries{Exercise: analytics.ExerciseHeader{Name: "Squat", IdentityKey: key}}, nil
}

func (f *fakeSource) ListWorkouts(_ context.Context, _ int, filter storage.WorkoutFilter) (*storage.WorkoutPage, error) {
	f.gotFilter = filter
	return &storage.WorkoutPage{Data: []models.Workout{}, Page: filter.Page, PerPage: storage.PerPage}, nil
}

func (f *fakeSource) Dashboard(_ context.Context, _ int) (*analytics.Dashboard, error) {
	return &analytics.Dashboard{TotalWorkouts: 4}, nil
}

func (f *fakeSource) SearchExercises(_ context.Context, _ string, limit int) ([]models.ExerciseLookup, error) {
	f.gotLimit = limit
	return []models.ExerciseLookup{}, nil
}

func newTestHandlers() (*handlers, *fakeSource) {
	ds := &fakeSource{}
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}, ds
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestParseDateArg verifies optional date arguments.
func TestParseDateArg(t *testing.T) {
	if d, err := parseDateArg(""); d != nil || err != nil {
		t.Errorf("empty = (%v, %v), want (nil, nil)", d, err)
	}
	d, err := parseDateArg("2024-01-31")
	if err != nil || d.String() != "2024-01-31" {
		t.Errorf("parseDateArg = (%v, %v)", d, err)
	}
	if _, err := parseDateArg("31.01.2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

// TestSplitList verifies comma-separated arguments are trimmed and blanks dropped.
func TestSplitList(t *testing.T) {
	got := splitList(" Run, ,Ride ,")
	if strings.Join(got, "|") != "Run|Ride" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}

// TestTrainingOverviewTool verifies the user from context and the parsed
// types reach the data source.
func TestTrainingOverviewTool(t *testing.T) {
	h, ds := newTestHandlers()
	ctx := WithUserID(context.Background(), 7)

	res, err := h.getTrainingOverview(ctx, callRequest(map[string]any{"types": "Run,Swim"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotUser != 7 {
		t.Errorf("user = %d, want 7", ds.gotUser)
	}
	if strings.Join(ds.gotTypes, ",") != "Run,Swim" {
		t.Errorf("types = %v", ds.gotTypes)
	}

	res, _ = h.getTrainingOverview(ctx, callRequest(map[string]any{"from": "yesterday"}))
	if !res.IsError {
		t.Error("invalid from date accepted")
	}
}

// TestRecordsTool verifies the discipline argument validation.
func TestRecordsTool(t *testing.T) {
	tests := []struct {
		discipline string
		wantErr    bool
		want       models.WorkoutType
	}{
		{"", false, ""},
		{"ride", false, models.WorkoutRide},
		{"strength", true, ""},
		{"rowing", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.discipline, func(t *testing.T) {
			h, ds := newTestHandlers()
			args := map[string]any{}
			if tt.discipline != "" {
				args["discipline"] = tt.discipline
			}
			res, err := h.getRecords(context.Background(), callRequest(args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError != tt.wantErr {
				t.Fatalf("IsError = %v, want %v", res.IsError, tt.wantErr)
			}
			if !tt.wantErr && (ds.gotOpts.Discipline != tt.want || !ds.gotOpts.Endurance || !ds.gotOpts.Strength) {
				t.Errorf("opts = %+v", ds.gotOpts)
			}
		})
	}
}

// TestExerciseSeriesTool verifies missing, malformed, unknown and known keys.
func TestExerciseSeriesTool(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"missing", map[string]any{}, true},
		{"malformed", map[string]any{"identity_key": "bench"}, true},
		{"unknown", map[string]any{"identity_key": "local:9"}, true},
		{"known", map[string]any{"identity_key": "local:3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandlers()
			res, err := h.getExerciseSeries(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError != tt.wantErr {
				t.Errorf("IsError = %v, want %v: %s", res.IsError, tt.wantErr, resultText(t, res))
			}
		})
	}
}

// TestWorkoutsTool verifies filter parsing and the page floor.
func TestWorkoutsTool(t *testing.T) {
	h, ds := newTestHandlers()
	res, err := h.getWorkouts(context.Background(), callRequest(map[string]any{
		"from": "2025-01-01",
		"type": "RUN",
		"page": float64(0),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotFilter.Page != 1 {
		t.Errorf("page = %d, want 1", ds.gotFilter.Page)
	}
	if ds.gotFilter.Type == nil || *ds.gotFilter.Type != models.WorkoutRun {
		t.Errorf("type = %v, want Run", ds.gotFilter.Type)
	}
	if ds.gotFilter.From == nil || ds.gotFilter.From.String() != "2025-01-01" {
		t.Errorf("from = %v", ds.gotFilter.From)
	}

	res, _ = h.getWorkouts(context.Background(), callRequest(map[string]any{"type": "yoga"}))
	if !res.IsError {
		t.Error("unknown type accepted")
	}
}

// TestSearchExercisesTool verifies the limit is clamped and the query required.
func TestSearchExercisesTool(t *testing.T) {
	h, ds := newTestHandlers()
	res, err := h.searchExercises(context.Background(), callRequest(map[string]any{"query": "row", "limit": float64(500)}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotLimit != 50 {
		t.Errorf("limit = %d, want 50", ds.gotLimit)
	}

	res, _ = h.searchExercises(context.Background(), callRequest(map[string]any{"query": "  "}))
	if !res.IsError {
		t.Error("blank query accepted")
	}
}

// TestDashboardResource verifies the resource body is the dashboard JSON.
func TestDashboardResource(t *testing.T) {
	h, _ := newTestHandlers()
	var req mcp.ReadResourceRequest
	req.Params.URI = "fitlog://dashboard"

	contents, err := h.dashboardResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents is %T", contents[0])
	}
	var d analytics.Dashboard
	if err := json.Unmarshal([]byte(text.Text), &d); err != nil {
		t.Fatal(err)
	}
	if d.TotalWorkouts != 4 || text.URI != "fitlog://dashboard" {
		t.Errorf("resource = %+v / %s", d, text.URI)
	}
}
