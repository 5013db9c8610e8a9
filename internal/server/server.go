package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/ingest/hae"
	"github.com/claude/fitlog/internal/lookup"
	"github.com/claude/fitlog/internal/mcp"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/reports"
	"github.com/claude/fitlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	reports.Store
	CreateWorkout(ctx context.Context, userID int, in *models.WorkoutInput) (*models.Workout, error)
	UpdateWorkout(ctx context.Context, userID int, id uuid.UUID, in *models.WorkoutInput) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, userID int, id uuid.UUID) error
	GetWorkout(ctx context.Context, userID int, id uuid.UUID) (*models.Workout, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	Ping(ctx context.Context) error
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      Store
	reports *reports.Service
	hae     *hae.Provider
	alpha   *alpha.Provider
	metrics *metrics.Manager
	log     *slog.Logger
	apiKey  string
	router  chi.Router

	// tailscale replaces DevIdentity once SetTailscale is called.
	tailscale func(http.Handler) http.Handler

	importMu     sync.Mutex
	activeImport *haeImportState
}

// New creates a new Server with all routes configured.
func New(db Store, lookupSvc *lookup.Service, haeProvider *hae.Provider, alphaProvider *alpha.Provider, m *metrics.Manager, apiKey string, log *slog.Logger) *Server {
	var search reports.Searcher
	if lookupSvc != nil {
		search = lookupSvc
	}
	s := &Server{
		db:      db,
		reports: reports.New(db, search),
		hae:     haeProvider,
		alpha:   alphaProvider,
		metrics: m,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Reports exposes the analytics service, e.g. as an MCP data source.
func (s *Server) Reports() *reports.Service { return s.reports }

// SetTailscale switches request identity from the dev user to Tailscale WhoIs.
func (s *Server) SetTailscale(whois WhoIsClient, users UserStore) {
	s.tailscale = TailscaleIdentity(whois, users, s.log)
}

// SetMetrics exposes the registry at path.
func (s *Server) SetMetrics(path string, gatherer prometheus.Gatherer) {
	s.router.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// SetMCP mounts the streamable HTTP MCP endpoint at /mcp. Tool calls run as
// the identified user.
func (s *Server) SetMCP(m *mcpserver.MCPServer) {
	h := mcpserver.NewStreamableHTTPServer(m,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)
		r.Handle("/mcp", h)
	})
}

// ConnState tracks open connections in the requests gauge.
func (s *Server) ConnState(_ net.Conn, state http.ConnState) {
	if s.metrics == nil {
		return
	}
	switch state {
	case http.StateNew:
		s.metrics.GaugeRequests.Inc()
	case http.StateClosed, http.StateHijacked:
		s.metrics.GaugeRequests.Dec()
	}
}

func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tailscale != nil {
			s.tailscale(next).ServeHTTP(w, r)
			return
		}
		dev.ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		// Ingest endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/ingest/alpha", s.handleAlphaIngest)
			r.Post("/ingest/hae", s.handleHAEIngest)
		})

		// HAE TCP pull (server-side)
		r.Post("/import/hae-tcp", s.handleStartHAEImport)
		r.Get("/import/hae-tcp", s.handleHAEImportStatus)
		r.Delete("/import/hae-tcp", s.handleCancelHAEImport)
		r.Get("/import/hae-tcp/events", s.handleHAEImportEvents)

		r.Get("/workouts", s.handleListWorkouts)
		r.Post("/workouts", s.handleCreateWorkout)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Put("/workouts/{id}", s.handleUpdateWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)

		r.Get("/analytics", s.handleAnalytics)
		r.Get("/records", s.handleRecords)
		r.Get("/strength-exercises", s.handleStrengthExercises)
		r.Get("/workout-exercises/{id}/stats", s.handleWorkoutExerciseStats)
		r.Get("/dashboard", s.handleDashboard)

		r.Get("/exercises/search", s.handleExerciseSearch)
		r.Get("/import-logs", s.handleImportLogs)
		r.Get("/stats", s.handleStats)
		r.Get("/me", s.handleMe)
	})
}
