package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/community"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/interaction"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

const maxBodyBytes = 64 << 10

// CommunityAPI handles posts, interactions and membership
type CommunityAPI struct {
	service        *community.Service
	interactions   *interaction.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

func NewCommunityAPI(service *community.Service, interactions *interaction.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *CommunityAPI {
	return &CommunityAPI{
		service:        service,
		interactions:   interactions,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers community routes on the given mux
func (api *CommunityAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/posts", corsMiddleware(api.authMiddleware.OptionalAuth(api.handlePosts)))
	mux.HandleFunc("/api/posts/", corsMiddleware(api.authMiddleware.RequireAuth(api.handlePostRoutes)))
	mux.HandleFunc("/api/communities", corsMiddleware(api.authMiddleware.RequireAuth(api.handleCreateCommunity)))
	mux.HandleFunc("/api/communities/", corsMiddleware(api.authMiddleware.OptionalAuth(api.handleCommunityRoutes)))
}

type postListResponse struct {
	Posts      []models.Post     `json:"posts"`
	Directions map[string]string `json:"directions"`
}

// handlePosts handles GET/POST /api/posts
func (api *CommunityAPI) handlePosts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listPosts(w, r)
	case http.MethodPost:
		api.createPost(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (api *CommunityAPI) listPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	posts, err := api.service.ListPosts(r.Context(), models.PostListParams{
		CommunitySlug: query.Get("community"),
		Sort:          query.Get("sort"),
		Search:        query.Get("q"),
		Limit:         limit,
	})
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to list posts")
		return
	}

	resp := postListResponse{Posts: posts, Directions: map[string]string{}}
	if userID := auth.GetUserID(r.Context()); userID != "" && api.interactions != nil && len(posts) > 0 {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		directions, err := api.interactions.UserDirections(r.Context(), userID, ids)
		if err != nil {
			api.logger.Warn("Failed to load user directions", logging.WithField("error", err.Error()))
		}
		for id, d := range directions {
			resp.Directions[id] = d.String()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (api *CommunityAPI) createPost(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r.Context())
	if identity == nil {
		writeServiceError(w, api.logger, auth.ErrNotAuthenticated, "")
		return
	}

	var params models.CreatePostParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	post, err := api.service.CreatePost(r.Context(), identity, params)
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// handlePostRoutes handles DELETE /api/posts/{id} and
// POST /api/posts/{id}/interaction
func (api *CommunityAPI) handlePostRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/posts/"), "/")
	parts := strings.Split(path, "/")
	postID := parts[0]
	if postID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "post ID required")
		return
	}
	userID := auth.GetUserID(r.Context())

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := api.service.DeletePost(r.Context(), userID, postID); err != nil {
			writeServiceError(w, api.logger, err, "failed to delete post")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "interaction" && r.Method == http.MethodPost:
		api.toggleInteraction(w, r, userID, postID)
	case len(parts) <= 2:
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	}
}

func (api *CommunityAPI) toggleInteraction(w http.ResponseWriter, r *http.Request, userID, postID string) {
	if api.interactions == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "interactions are not configured")
		return
	}

	var body struct {
		Direction string `json:"direction"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	direction, ok := models.ParseDirection(body.Direction)
	if !ok {
		writeServiceError(w, api.logger, interaction.ErrInvalidDirection, "")
		return
	}

	result, err := api.interactions.Toggle(r.Context(), userID, postID, direction)
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to record interaction")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateCommunity handles POST /api/communities
func (api *CommunityAPI) handleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var body struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, err := api.service.CreateCommunity(r.Context(), auth.GetUserID(r.Context()), body.Slug, body.Name, body.Description)
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to create community")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleCommunityRoutes handles POST/DELETE /api/communities/{slug}/join
func (api *CommunityAPI) handleCommunityRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/communities/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "join" {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	slug := parts[0]
	userID := auth.GetUserID(r.Context())

	var (
		c   *models.Community
		err error
	)
	switch r.Method {
	case http.MethodPost:
		c, err = api.service.Join(r.Context(), userID, slug)
	case http.MethodDelete:
		c, err = api.service.Leave(r.Context(), userID, slug)
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		writeServiceError(w, api.logger, err, "failed to update membership")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"community": c,
		"joined":    r.Method == http.MethodPost,
	})
}

func decodeBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(dst)
}
