package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/scheduler"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

const manualRunTimeout = 4 * time.Minute

// CronAPI exposes ingestion triggers, schedule status and metrics
type CronAPI struct {
	runner    *workers.Runner
	scheduler *scheduler.Scheduler
	metrics   MetricsStore
	limiter   TriggerLimiter
	secret    string
	logger    *logging.Logger
}

func NewCronAPI(runner *workers.Runner, sched *scheduler.Scheduler, metrics MetricsStore, limiter TriggerLimiter, secret string, logger *logging.Logger) *CronAPI {
	return &CronAPI{
		runner:    runner,
		scheduler: sched,
		metrics:   metrics,
		limiter:   limiter,
		secret:    secret,
		logger:    logger,
	}
}

// RegisterRoutes registers cron routes on the given mux
func (api *CronAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/cron", corsMiddleware(api.handleCron))
	mux.HandleFunc("/ingest", corsMiddleware(api.handleIngest))
	mux.HandleFunc("/metrics", corsMiddleware(api.handleMetrics))
}

// authorized accepts the secret as ?secret= or as a bearer token. An empty
// configured secret rejects everything.
func (api *CronAPI) authorized(r *http.Request) bool {
	if api.secret == "" {
		return false
	}
	provided := r.URL.Query().Get("secret")
	if provided == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			provided = strings.TrimPrefix(h, "Bearer ")
		}
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(api.secret)) == 1
}

// runContext detaches a manual run from the client connection so a dropped
// request does not abort an ingestion batch halfway.
func runContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), manualRunTimeout)
}

// handleCron handles GET /cron?secret=&action=
func (api *CronAPI) handleCron(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !api.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid cron secret")
		return
	}
	if api.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "ingestion is not configured")
		return
	}

	action := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("action")))
	switch action {
	case "", "status":
		api.writeStatus(w)
	case "run":
		api.runAll(w, r, func(settlements []workers.Settlement) interface{} {
			return map[string]interface{}{
				"action":  "run",
				"results": settlements,
			}
		})
	default:
		if !api.knownWorker(action) {
			writeError(w, http.StatusBadRequest, "unknown_action", "unknown action: "+action)
			return
		}
		api.runOne(w, r, action)
	}
}

// handleIngest handles GET /ingest?secret=
func (api *CronAPI) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !api.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid cron secret")
		return
	}
	if api.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "ingestion is not configured")
		return
	}

	api.runAll(w, r, func(settlements []workers.Settlement) interface{} {
		return workers.Summarize(settlements)
	})
}

func (api *CronAPI) writeStatus(w http.ResponseWriter) {
	resp := map[string]interface{}{
		"workers": api.runner.Names(),
		"sources": api.runner.Sources(),
	}
	if api.scheduler != nil {
		resp["schedule"] = api.scheduler.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *CronAPI) knownWorker(name string) bool {
	for _, n := range api.runner.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func (api *CronAPI) allow(key string) bool {
	return api.limiter == nil || api.limiter.Allow(key)
}

func (api *CronAPI) runAll(w http.ResponseWriter, r *http.Request, render func([]workers.Settlement) interface{}) {
	if !api.allow("trigger:all") {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "a manual run was triggered recently")
		return
	}

	ctx, cancel := runContext(r)
	defer cancel()

	api.logger.Info("Manual ingestion run", logging.WithField("path", r.URL.Path))
	settlements := api.runner.RunAll(ctx)
	if api.scheduler != nil {
		api.scheduler.Record(settlements)
	}
	writeJSON(w, http.StatusOK, render(settlements))
}

func (api *CronAPI) runOne(w http.ResponseWriter, r *http.Request, name string) {
	if !api.allow("trigger:" + name) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "this worker was triggered recently")
		return
	}

	ctx, cancel := runContext(r)
	defer cancel()

	settlement, err := api.runner.Run(ctx, name)
	if errors.Is(err, workers.ErrUnknownWorker) {
		writeError(w, http.StatusBadRequest, "unknown_action", "unknown action: "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"action":  name,
		"results": []workers.Settlement{settlement},
	})
}

// handleMetrics handles GET /metrics?refresh=
func (api *CronAPI) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if api.metrics == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "metrics are not configured")
		return
	}

	ctx := r.Context()
	refresh := r.URL.Query().Get("refresh") == "true"

	if !refresh {
		snap, err := api.metrics.Latest(ctx)
		if err == nil {
			writeJSON(w, http.StatusOK, models.MetricsResponse{Snapshot: *snap, Cached: true})
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			writeServiceError(w, api.logger, err, "failed to load metrics")
			return
		}
	}

	snap, err := api.metrics.Compute(ctx)
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to compute metrics")
		return
	}
	if err := api.metrics.Save(ctx, snap); err != nil {
		api.logger.Warn("Failed to save metrics snapshot", logging.WithField("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, models.MetricsResponse{Snapshot: *snap, Cached: false})
}
