package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/fitlog/internal/analytics"
	"github.com/claude/fitlog/internal/lookup"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// parseDateArg parses an optional YYYY-MM-DD argument.
func parseDateArg(s string) (*models.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// splitList splits a comma-separated argument, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Tool definitions ---

var toolGetTrainingOverview = mcp.NewTool("get_training_overview",
	mcp.WithDescription("Weekly (last 8 weeks, Monday start) and monthly (last 12 months) workout counts, distance and calories. Optionally filtered by workout type and date range."),
	mcp.WithString("types", mcp.Description("Comma-separated workout types, e.g. 'Run,Ride'. Defaults to all logged types.")),
	mcp.WithString("from", mcp.Description("Start date (YYYY-MM-DD), inclusive")),
	mcp.WithString("to", mcp.Description("End date (YYYY-MM-DD), inclusive")),
)

var toolGetRecords = mcp.NewTool("get_records",
	mcp.WithDescription("Personal records: longest, fastest and best efforts per endurance discipline, and strength exercises ranked by estimated 1RM."),
	mcp.WithString("discipline", mcp.Description("Restrict endurance records to one discipline"), mcp.Enum("run", "ride", "swim")),
)

var toolGetStrengthExercises = mcp.NewTool("get_strength_exercises",
	mcp.WithDescription("All strength exercises with sessions, last date, best weight, best estimated 1RM and total volume, highest 1RM first. Each carries the identity_key used by get_exercise_series."),
)

var toolGetExerciseSeries = mcp.NewTool("get_exercise_series",
	mcp.WithDescription("Per-day volume and best estimated 1RM of one exercise, oldest first."),
	mcp.WithString("identity_key", mcp.Required(), mcp.Description("Exercise identity key from get_strength_exercises, e.g. 'local:12' or 'name:bench press'")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("List workouts newest first, 10 per page."),
	mcp.WithString("from", mcp.Description("Start date (YYYY-MM-DD), inclusive")),
	mcp.WithString("to", mcp.Description("End date (YYYY-MM-DD), inclusive")),
	mcp.WithString("type", mcp.Description("Workout type"), mcp.Enum("run", "ride", "swim", "strength", "other")),
	mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
)

var toolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription("All-time totals, active days in the last 7 days and the 8 most recent workouts."),
)

var toolSearchExercises = mcp.NewTool("search_exercises",
	mcp.WithDescription("Search the local exercise catalog and ExerciseDB by name."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Exercise name or part of it")),
	mcp.WithNumber("limit", mcp.Description("Maximum results, 1-50 (default 10)")),
)

// --- Tool handlers ---

func (h *handlers) getTrainingOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := parseDateArg(req.GetString("from", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid from date: " + err.Error()), nil
	}
	to, err := parseDateArg(req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid to date: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	ov, err := h.ds.Overview(ctx, uid, splitList(req.GetString("types", "")), from, to)
	if err != nil {
		h.log.Error("mcp get_training_overview", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(ov)
}

func (h *handlers) getRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := reports.RecordsOptions{Endurance: true, Strength: true}
	if d := req.GetString("discipline", ""); d != "" {
		t, ok := models.ParseWorkoutType(d)
		if !ok || (t != models.WorkoutRun && t != models.WorkoutRide && t != models.WorkoutSwim) {
			return mcp.NewToolResultError("discipline must be run, ride or swim"), nil
		}
		opts.Discipline = t
	}

	uid := UserIDFromContext(ctx)
	rec, err := h.ds.Records(ctx, uid, opts)
	if err != nil {
		h.log.Error("mcp get_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(rec)
}

func (h *handlers) getStrengthExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	summary, err := h.ds.StrengthExercises(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_strength_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(summary)
}

func (h *handlers) getExerciseSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("identity_key")
	if err != nil {
		return mcp.NewToolResultError("identity_key parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	series, err := h.ds.ExerciseSeries(ctx, uid, key)
	switch {
	case errors.Is(err, analytics.ErrInvalidIdentity):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, storage.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("no exercise with identity_key %q", key)), nil
	case err != nil:
		h.log.Error("mcp get_exercise_series", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(series)
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f storage.WorkoutFilter
	var err error
	if f.From, err = parseDateArg(req.GetString("from", "")); err != nil {
		return mcp.NewToolResultError("invalid from date: " + err.Error()), nil
	}
	if f.To, err = parseDateArg(req.GetString("to", "")); err != nil {
		return mcp.NewToolResultError("invalid to date: " + err.Error()), nil
	}
	if s := req.GetString("type", ""); s != "" {
		t, ok := models.ParseWorkoutType(s)
		if !ok {
			return mcp.NewToolResultError("unknown workout type: " + s), nil
		}
		f.Type = &t
	}
	f.Page = max(req.GetInt("page", 1), 1)

	uid := UserIDFromContext(ctx)
	page, err := h.ds.ListWorkouts(ctx, uid, f)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(page)
}

func (h *handlers) getDashboard(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	d, err := h.ds.Dashboard(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_dashboard", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(d)
}

func (h *handlers) searchExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	limit := lookup.ClampLimit(req.GetInt("limit", lookup.DefaultLimit))

	results, err := h.ds.SearchExercises(ctx, query, limit)
	if err != nil {
		h.log.Error("mcp search_exercises", "error", err)
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}
	return jsonResult(results)
}
