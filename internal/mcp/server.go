package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("fitlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("fitlog training log. Query workouts, weekly and monthly trends, endurance and strength records and per-exercise progression. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTrainingOverview, Handler: h.getTrainingOverview},
		server.ServerTool{Tool: toolGetRecords, Handler: h.getRecords},
		server.ServerTool{Tool: toolGetStrengthExercises, Handler: h.getStrengthExercises},
		server.ServerTool{Tool: toolGetExerciseSeries, Handler: h.getExerciseSeries},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetDashboard, Handler: h.getDashboard},
		server.ServerTool{Tool: toolSearchExercises, Handler: h.searchExercises},
	)

	s.AddResources(
		server.ServerResource{Resource: resDashboard, Handler: h.dashboardResource},
		server.ServerResource{Resource: resRecords, Handler: h.recordsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resDashboard = mcp.NewResource(
	"fitlog://dashboard",
	"Dashboard",
	mcp.WithResourceDescription("All-time totals, active days of the last week and the most recent workouts"),
	mcp.WithMIMEType("application/json"),
)

var resRecords = mcp.NewResource(
	"fitlog://records",
	"Personal Records",
	mcp.WithResourceDescription("Endurance records for run, ride and swim plus strength exercises ranked by estimated 1RM"),
	mcp.WithMIMEType("application/json"),
)
