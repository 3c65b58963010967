package httpapi

import (
	"net/http"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/feed"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// FeedAPI serves the merged and live feeds
type FeedAPI struct {
	service *feed.Service
	live    *feed.Hub
	logger  *logging.Logger
}

func NewFeedAPI(service *feed.Service, live *feed.Hub, logger *logging.Logger) *FeedAPI {
	return &FeedAPI{
		service: service,
		live:    live,
		logger:  logger,
	}
}

// RegisterRoutes registers feed routes on the given mux
func (api *FeedAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/feed", corsMiddleware(api.handleFeed))
	if api.live != nil {
		mux.HandleFunc("/api/feed/live", corsMiddleware(api.handleLive))
	}
}

// handleFeed handles GET /api/feed?type=&q=
func (api *FeedAPI) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	items, err := api.service.GetFeedItems(r.Context(), query.Get("type"), query.Get("q"))
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to load feed")
		return
	}

	writeJSON(w, http.StatusOK, models.FeedResponse{
		Items:       items,
		TotalCount:  len(items),
		GeneratedAt: time.Now().UTC(),
	})
}

// handleLive handles GET /api/feed/live?type=
func (api *FeedAPI) handleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	list, err := api.live.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to load live feed")
		return
	}

	items := list.Items()
	writeJSON(w, http.StatusOK, models.FeedResponse{
		Items:       items,
		TotalCount:  len(items),
		GeneratedAt: time.Now().UTC(),
	})
}
