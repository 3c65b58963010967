package community

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/auth"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ranking"
)

const (
	maxTitleLength   = 300
	maxContentLength = 10000
	defaultListLimit = 50
	maxListLimit     = 100
	// hotWindow is how many recent posts are scored for a hot listing
	hotWindow = 500
)

// ServiceError represents a community validation error.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

type postStore interface {
	CreateCommunity(ctx context.Context, slug, name, description string) (*models.Community, error)
	GetCommunity(ctx context.Context, slug string) (*models.Community, error)
	MemberRole(ctx context.Context, communityID, userID string) (models.MemberRole, bool, error)
	AddMember(ctx context.Context, communityID, userID string, role models.MemberRole) (bool, error)
	RemoveMember(ctx context.Context, communityID, userID string) (bool, error)
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, params models.PostListParams) ([]models.Post, error)
}

// Service coordinates community posts and membership.
type Service struct {
	store  postStore
	policy ranking.Policy
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a community service.
func NewService(store postStore, policy ranking.Policy, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// CreateCommunity creates a community and makes the caller its admin.
func (s *Service) CreateCommunity(ctx context.Context, userID, slug, name, description string) (*models.Community, error) {
	if userID == "" {
		return nil, auth.ErrNotAuthenticated
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	name = strings.TrimSpace(name)
	if !validSlug(slug) {
		return nil, &ServiceError{Message: "slug must be 2-64 lowercase letters, digits or dashes"}
	}
	if name == "" {
		name = slug
	}

	// The insert itself decides ownership; only its winner becomes admin
	c, err := s.store.CreateCommunity(ctx, slug, name, strings.TrimSpace(description))
	if errors.Is(err, database.ErrDuplicate) {
		return nil, &ServiceError{Message: "community already exists"}
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AddMember(ctx, c.ID, userID, models.MemberRoleAdmin); err != nil {
		return nil, err
	}
	c.MemberCount++

	s.logger.Info("Community created", logging.WithFields(map[string]interface{}{
		"slug":    c.Slug,
		"user_id": userID,
	}))
	return c, nil
}

// Join adds the user as a member. An existing role is left unchanged.
func (s *Service) Join(ctx context.Context, userID, slug string) (*models.Community, error) {
	if userID == "" {
		return nil, auth.ErrNotAuthenticated
	}
	c, err := s.store.GetCommunity(ctx, slug)
	if err != nil {
		return nil, err
	}

	if _, ok, err := s.store.MemberRole(ctx, c.ID, userID); err != nil {
		return nil, err
	} else if ok {
		return c, nil
	}

	if _, err := s.store.AddMember(ctx, c.ID, userID, models.MemberRoleMember); err != nil {
		return nil, err
	}
	return s.store.GetCommunity(ctx, slug)
}

// Leave removes the user's membership. Leaving twice is not an error.
func (s *Service) Leave(ctx context.Context, userID, slug string) (*models.Community, error) {
	if userID == "" {
		return nil, auth.ErrNotAuthenticated
	}
	c, err := s.store.GetCommunity(ctx, slug)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.RemoveMember(ctx, c.ID, userID); err != nil {
		return nil, err
	}
	return s.store.GetCommunity(ctx, slug)
}

// CreatePost validates and stores a post authored by identity.
func (s *Service) CreatePost(ctx context.Context, identity *auth.Identity, params models.CreatePostParams) (*models.Post, error) {
	if identity == nil || identity.UserID == "" {
		return nil, auth.ErrNotAuthenticated
	}

	title := strings.TrimSpace(params.Title)
	content := strings.TrimSpace(params.Content)
	switch {
	case title == "":
		return nil, &ServiceError{Message: "title is required"}
	case len([]rune(title)) > maxTitleLength:
		return nil, &ServiceError{Message: "title is too long"}
	case len([]rune(content)) > maxContentLength:
		return nil, &ServiceError{Message: "content is too long"}
	}

	variant := params.Variant
	if variant == "" {
		variant = models.PostVariantVote
	}
	if variant != models.PostVariantVote && variant != models.PostVariantInsight {
		return nil, &ServiceError{Message: "variant must be vote or insight"}
	}

	c, err := s.store.GetCommunity(ctx, strings.TrimSpace(params.CommunitySlug))
	if err != nil {
		return nil, err
	}

	authorName := strings.TrimSpace(params.AuthorName)
	if authorName == "" {
		authorName = identity.Name
	}

	post, err := s.store.CreatePost(ctx, &models.Post{
		CommunityID: c.ID,
		AuthorID:    identity.UserID,
		AuthorName:  authorName,
		Title:       title,
		Content:     content,
		Variant:     variant,
	})
	if err != nil {
		return nil, err
	}
	post.CommunitySlug = c.Slug
	s.policy.ScorePost(post, s.now())

	s.logger.Info("Post created", logging.WithFields(map[string]interface{}{
		"post_id":   post.ID,
		"community": c.Slug,
		"user_id":   identity.UserID,
	}))
	return post, nil
}

// DeletePost removes a post. Only its author or a moderator or admin of its
// community may delete it.
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	if userID == "" {
		return auth.ErrNotAuthenticated
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	if post.AuthorID != userID {
		role, ok, err := s.store.MemberRole(ctx, post.CommunityID, userID)
		if err != nil {
			return err
		}
		if !ok || !role.CanModerate() {
			return auth.ErrNotAuthorized
		}
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("Post deleted", logging.WithFields(map[string]interface{}{
		"post_id": postID,
		"user_id": userID,
	}))
	return nil
}

// ListPosts returns posts ordered by hot score (default) or recency. Hot
// listings rank the newest hotWindow posts.
func (s *Service) ListPosts(ctx context.Context, params models.PostListParams) ([]models.Post, error) {
	sortMode := strings.ToLower(strings.TrimSpace(params.Sort))
	if sortMode == "" {
		sortMode = "hot"
	}
	if sortMode != "hot" && sortMode != "new" {
		return nil, &ServiceError{Message: "sort must be hot or new"}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := params
	query.Sort = sortMode
	query.Limit = limit
	if sortMode == "hot" {
		query.Limit = hotWindow
	}

	posts, err := s.store.ListPosts(ctx, query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sortMode == "hot" {
		s.policy.SortByHot(posts, now)
	} else {
		s.policy.SortByNew(posts, now)
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func validSlug(slug string) bool {
	if len(slug) < 2 || len(slug) > 64 {
		return false
	}
	for _, r := range slug {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return false
		}
	}
	return true
}
