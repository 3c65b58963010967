// Package memstore keeps all content, community and metrics state in memory.
// It is used when Postgres is unavailable and as a fixture in handler tests.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/interaction"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

type memberKey struct {
	communityID string
	userID      string
}

type interactionKey struct {
	postID string
	userID string
}

// Store is a thread-safe in-memory backend
type Store struct {
	mu sync.RWMutex

	news       map[string]models.NewsArticle
	papers     map[string]models.Paper
	aiModels   map[string]models.AIModel
	nextNewsID int64

	communities  map[string]*models.Community // by slug
	members      map[memberKey]models.MemberRole
	posts        map[string]*models.Post
	interactions map[interactionKey]models.Direction

	snapshots []models.MetricsSnapshot

	events chan database.InsertEvent
	now    func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		news:         make(map[string]models.NewsArticle),
		papers:       make(map[string]models.Paper),
		aiModels:     make(map[string]models.AIModel),
		communities:  make(map[string]*models.Community),
		members:      make(map[memberKey]models.MemberRole),
		posts:        make(map[string]*models.Post),
		interactions: make(map[interactionKey]models.Direction),
		events:       make(chan database.InsertEvent, 256),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Events delivers inserted content rows in the same shape as the Postgres
// notification triggers. Events are dropped when nobody is reading.
func (s *Store) Events() <-chan database.InsertEvent {
	return s.events
}

func (s *Store) publish(table string, row map[string]interface{}) {
	data, err := json.Marshal(row)
	if err != nil {
		return
	}
	select {
	case s.events <- database.InsertEvent{Table: table, Row: data}:
	default:
	}
}

func orNow(t time.Time, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

// UpsertNews inserts unseen URLs and returns how many were new
func (s *Store) UpsertNews(ctx context.Context, articles []models.NewsArticle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	inserted := 0
	for _, a := range articles {
		if _, exists := s.news[a.URL]; exists {
			continue
		}
		s.nextNewsID++
		a.ID = s.nextNewsID
		a.PublishedAt = orNow(a.PublishedAt, now)
		a.CreatedAt = now
		s.news[a.URL] = a
		inserted++
		s.publish("news_articles", map[string]interface{}{
			"url": a.URL, "title": a.Title, "summary": a.Summary, "source": a.Source,
			"category": a.Category, "published_at": a.PublishedAt,
		})
	}
	return inserted, nil
}

// UpsertPapers inserts unseen arXiv ids and returns how many were new
func (s *Store) UpsertPapers(ctx context.Context, papers []models.Paper) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	inserted := 0
	for _, p := range papers {
		if _, exists := s.papers[p.ArxivID]; exists {
			continue
		}
		p.PublishedDate = orNow(p.PublishedDate, now)
		p.CreatedAt = now
		s.papers[p.ArxivID] = p
		inserted++
		s.publish("research_papers", map[string]interface{}{
			"arxiv_id": p.ArxivID, "title": p.Title, "authors": p.Authors, "abstract": p.Abstract,
			"pdf_url": p.PDFURL, "category": p.Category, "published_date": p.PublishedDate,
		})
	}
	return inserted, nil
}

// UpsertModels inserts new hub ids and refreshes existing ones. Every row
// counts as written.
func (s *Store) UpsertModels(ctx context.Context, items []models.AIModel) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, m := range items {
		if m.Tags == nil {
			m.Tags = []string{}
		}
		if existing, ok := s.aiModels[m.HubID]; ok {
			existing.Description = m.Description
			existing.Category = m.Category
			existing.PipelineTag = m.PipelineTag
			existing.Tags = m.Tags
			existing.Downloads = m.Downloads
			existing.Likes = m.Likes
			existing.DownloadURL = m.DownloadURL
			existing.UpdatedAt = now
			s.aiModels[m.HubID] = existing
			continue
		}
		m.CreatedAt = orNow(m.CreatedAt, now)
		m.UpdatedAt = now
		s.aiModels[m.HubID] = m
		s.publish("ai_models", map[string]interface{}{
			"hub_id": m.HubID, "name": m.Name, "provider": m.Provider, "description": m.Description,
			"category": m.Category, "download_url": m.DownloadURL, "created_at": m.CreatedAt,
		})
	}
	return len(items), nil
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// ListNews returns articles newest first
func (s *Store) ListNews(ctx context.Context, q models.ContentQuery) ([]models.NewsArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.NewsArticle, 0, len(s.news))
	for _, a := range s.news {
		if matches(search, a.Title, a.Summary, a.Source) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID > out[j].ID
	})
	return limit(out, q.Limit), nil
}

// ListPapers returns papers newest first
func (s *Store) ListPapers(ctx context.Context, q models.ContentQuery) ([]models.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Paper, 0, len(s.papers))
	for _, p := range s.papers {
		if matches(search, p.Title, p.Abstract, p.Authors) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedDate.Equal(out[j].PublishedDate) {
			return out[i].PublishedDate.After(out[j].PublishedDate)
		}
		return out[i].ArxivID > out[j].ArxivID
	})
	return limit(out, q.Limit), nil
}

// ListModels returns models newest first
func (s *Store) ListModels(ctx context.Context, q models.ContentQuery) ([]models.AIModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.AIModel, 0, len(s.aiModels))
	for _, m := range s.aiModels {
		if matches(search, m.Name, m.Description, m.Provider) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].HubID < out[j].HubID
	})
	return limit(out, q.Limit), nil
}

// Counts returns the size of each content collection
func (s *Store) Counts(ctx context.Context) (news, papers, aiModels int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.news)), int64(len(s.papers)), int64(len(s.aiModels)), nil
}

// CreateCommunity adds a community. A taken slug returns database.ErrDuplicate.
func (s *Store) CreateCommunity(ctx context.Context, slug, name, description string) (*models.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.communities[slug]; ok {
		return nil, database.ErrDuplicate
	}
	c := &models.Community{
		ID:          uuid.New().String(),
		Slug:        slug,
		Name:        name,
		Description: description,
		CreatedAt:   s.now(),
	}
	s.communities[slug] = c
	cp := *c
	return &cp, nil
}

// GetCommunity looks a community up by slug
func (s *Store) GetCommunity(ctx context.Context, slug string) (*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.communities[slug]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) communityByID(id string) *models.Community {
	for _, c := range s.communities {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// MemberRole returns the user's role in the community
func (s *Store) MemberRole(ctx context.Context, communityID, userID string) (models.MemberRole, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.members[memberKey{communityID, userID}]
	return role, ok, nil
}

// AddMember inserts or updates a membership
func (s *Store) AddMember(ctx context.Context, communityID, userID string, role models.MemberRole) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.communityByID(communityID)
	if c == nil {
		return false, database.ErrNotFound
	}
	key := memberKey{communityID, userID}
	_, existed := s.members[key]
	s.members[key] = role
	if !existed {
		c.MemberCount++
	}
	return !existed, nil
}

// RemoveMember deletes a membership
func (s *Store) RemoveMember(ctx context.Context, communityID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{communityID, userID}
	if _, ok := s.members[key]; !ok {
		return false, nil
	}
	delete(s.members, key)
	if c := s.communityByID(communityID); c != nil && c.MemberCount > 0 {
		c.MemberCount--
	}
	return true, nil
}

// CreatePost stores a new post
func (s *Store) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.communityByID(post.CommunityID)
	if c == nil {
		return nil, database.ErrNotFound
	}

	p := *post
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Variant == "" {
		p.Variant = models.PostVariantVote
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.CommunitySlug = c.Slug
	s.posts[p.ID] = &p

	out := p
	return &out, nil
}

// GetPost returns a post by id
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *p
	return &out, nil
}

// DeletePost removes a post and its interactions
func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.posts, id)
	for key := range s.interactions {
		if key.postID == id {
			delete(s.interactions, key)
		}
	}
	return nil
}

// ListPosts returns posts newest first
func (s *Store) ListPosts(ctx context.Context, params models.PostListParams) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slug := strings.TrimSpace(params.CommunitySlug)
	search := strings.ToLower(strings.TrimSpace(params.Search))

	out := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if slug != "" && p.CommunitySlug != slug {
			continue
		}
		if !matches(search, p.Title, p.Content) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	n := params.Limit
	if n <= 0 {
		n = 50
	}
	return limit(out, n), nil
}

// CountPosts returns the number of posts
func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.posts)), nil
}

// Toggle applies one selection under the store lock
func (s *Store) Toggle(ctx context.Context, postID, userID string, selected models.Direction) (*models.InteractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return nil, database.ErrNotFound
	}

	key := interactionKey{postID, userID}
	change, err := interaction.Transition(s.interactions[key], selected)
	if err != nil {
		return nil, err
	}

	counts := interaction.Counts{Positive: p.PositiveCount, Negative: p.NegativeCount}.Apply(change)
	p.PositiveCount, p.NegativeCount = counts.Positive, counts.Negative
	if change.To == models.DirectionNone {
		delete(s.interactions, key)
	} else {
		s.interactions[key] = change.To
	}

	return &models.InteractionResult{
		PostID:        postID,
		Direction:     change.To,
		PositiveCount: p.PositiveCount,
		NegativeCount: p.NegativeCount,
	}, nil
}

// UserDirections returns the user's non-neutral direction per post
func (s *Store) UserDirections(ctx context.Context, userID string, postIDs []string) (map[string]models.Direction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Direction)
	for _, id := range postIDs {
		if d, ok := s.interactions[interactionKey{id, userID}]; ok && d != models.DirectionNone {
			out[id] = d
		}
	}
	return out, nil
}

// Compute aggregates current content
func (s *Store) Compute(ctx context.Context) (*models.MetricsSnapshot, error) {
	snap := &models.MetricsSnapshot{
		ModelCategories: map[string]int64{},
		NewsCategories:  map[string]int64{},
	}
	var err error
	if snap.NewsCount, snap.PaperCount, snap.ModelCount, err = s.Counts(ctx); err != nil {
		return nil, err
	}
	if snap.PostCount, err = s.CountPosts(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	snap.ComputedAt = now
	for _, a := range s.news {
		if !a.PublishedAt.Before(dayAgo) {
			snap.NewsLast24h++
		}
		category := a.Category
		if category == "" {
			category = "general"
		}
		snap.NewsCategories[category]++
	}
	for _, p := range s.papers {
		if !p.PublishedDate.Before(dayAgo) {
			snap.PapersLast24h++
		}
	}
	for _, m := range s.aiModels {
		category := m.Category
		if category == "" {
			category = models.ModelCategoryOther
		}
		snap.ModelCategories[category]++
	}
	return snap, nil
}

// Save records a snapshot
func (s *Store) Save(ctx context.Context, snap *models.MetricsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

// Latest returns the most recently saved snapshot
func (s *Store) Latest(ctx context.Context) (*models.MetricsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return nil, database.ErrNotFound
	}
	snap := s.snapshots[len(s.snapshots)-1]
	return &snap, nil
}
