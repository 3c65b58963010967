package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/community"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/feed"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/interaction"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/scheduler"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

// MetricsStore computes and persists dashboard snapshots
type MetricsStore interface {
	Compute(ctx context.Context) (*models.MetricsSnapshot, error)
	Save(ctx context.Context, snap *models.MetricsSnapshot) error
	Latest(ctx context.Context) (*models.MetricsSnapshot, error)
}

// TriggerLimiter throttles manual ingestion runs
type TriggerLimiter interface {
	Allow(key string) bool
}

// Deps are the services the API serves. Nil optional services disable
// their routes.
type Deps struct {
	Feed           *feed.Service
	Live           *feed.Hub
	Community      *community.Service
	Interactions   *interaction.Service
	Runner         *workers.Runner
	Scheduler      *scheduler.Scheduler
	Metrics        MetricsStore
	AuthMiddleware *auth.Middleware
	Limiter        TriggerLimiter
	CronSecret     string
}

type Server struct {
	deps   Deps
	logger *logging.Logger
	server *http.Server
}

func New(deps Deps, logger *logging.Logger) *Server {
	if deps.AuthMiddleware == nil {
		deps.AuthMiddleware = auth.NewMiddleware(nil)
	}
	return &Server{
		deps:   deps,
		logger: logger,
	}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Ingestion control
	cronAPI := NewCronAPI(s.deps.Runner, s.deps.Scheduler, s.deps.Metrics, s.deps.Limiter, s.deps.CronSecret, s.logger)
	cronAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Unified feed
	if s.deps.Feed != nil {
		feedAPI := NewFeedAPI(s.deps.Feed, s.deps.Live, s.logger)
		feedAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Community posts, interactions and membership
	if s.deps.Community != nil {
		communityAPI := NewCommunityAPI(s.deps.Community, s.deps.Interactions, s.deps.AuthMiddleware, s.logger)
		communityAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// writeServiceError maps domain errors onto HTTP responses. Anything
// unrecognized is logged and reported as a 500 with fallback as message.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, err error, fallback string) {
	var authErr *auth.AuthError
	var serviceErr *community.ServiceError

	switch {
	case errors.As(err, &authErr):
		status := http.StatusUnauthorized
		if authErr.Code == auth.ErrNotAuthorized.Code {
			status = http.StatusForbidden
		}
		writeError(w, status, authErr.Code, authErr.Message)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.As(err, &serviceErr):
		writeError(w, http.StatusBadRequest, "invalid_request", serviceErr.Message)
	case errors.Is(err, interaction.ErrInvalidDirection):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, feed.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "invalid_filter", "type must be news, paper or model")
	default:
		logger.Error(fallback, logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
