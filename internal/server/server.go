package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/fitarch/internal/metrics"
	"github.com/claude/fitarch/internal/plans"
	"github.com/claude/fitarch/internal/progress"
	"github.com/claude/fitarch/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store saves finished sessions and reads them back, along with body
// measurements and achievements.
type Store interface {
	workout.ResultSink
	ListResults(ctx context.Context, userID string, start, end time.Time) ([]workout.Result, error)
	GetResult(ctx context.Context, userID, id string) (*workout.Result, error)
	DeleteResult(ctx context.Context, userID, id string) error
	progress.Store
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *workout.Registry
	plans    plans.Source
	store    Store
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	now      func() time.Time

	metrics  *metrics.Manager
	gatherer prometheus.Gatherer
	whois    WhoIsClient
}

// New creates a new Server with all routes configured.
func New(sessions *workout.Registry, planSource plans.Source, store Store, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		plans:    planSource,
		store:    store,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		now:      time.Now,
	}
	s.routes()
	return s
}

// SetMetrics enables request metrics and the /metrics endpoint.
func (s *Server) SetMetrics(m *metrics.Manager, g prometheus.Gatherer) {
	s.metrics = m
	s.gatherer = g
}

// SetTailscale switches user identity from the X-User-ID header to
// Tailscale WhoIs lookups.
func (s *Server) SetTailscale(c WhoIsClient) {
	s.whois = c
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.observeRequests)
	s.router.Use(CORS())

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identity)

		r.Get("/me", s.handleMe)
		r.Get("/plan", s.handleGetPlan)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleEndSession)
			r.Post("/start", s.handleStartSession)
			r.Post("/sets", s.handleCompleteSet)
			r.Post("/rest/skip", s.handleSkipRest)
			r.Post("/camera", s.handleToggleCamera)
			r.Post("/finish", s.handleFinishSession)
			r.Get("/ws", s.handleSessionStream)
		})

		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)
		r.Get("/progress", s.handleProgress)
		r.Get("/progress/one-rep-max", s.handleOneRepMax)

		r.Get("/measurements", s.handleListMeasurements)
		r.Post("/measurements", s.handleAddMeasurement)
		r.Get("/achievements", s.handleListAchievements)
		r.Post("/achievements", s.handleAddAchievement)
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.gatherer == nil {
		http.NotFound(w, r)
		return
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.metrics.ObserveRequest(r.Method, sw.status, time.Since(start))
	})
}
