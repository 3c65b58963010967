package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// PostStore handles communities, memberships and posts
type PostStore struct {
	db *DB
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

// CreateCommunity inserts a community. A taken slug returns ErrDuplicate.
func (s *PostStore) CreateCommunity(ctx context.Context, slug, name, description string) (*models.Community, error) {
	c := &models.Community{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO communities (slug, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id, slug, name, COALESCE(description, ''), member_count, created_at
	`, slug, name, nullString(description)).Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.MemberCount, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}
	return c, nil
}

// GetCommunity looks a community up by slug
func (s *PostStore) GetCommunity(ctx context.Context, slug string) (*models.Community, error) {
	c := &models.Community{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), member_count, created_at
		FROM communities WHERE slug = $1
	`, slug).Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.MemberCount, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get community: %w", err)
	}
	return c, nil
}

// MemberRole returns the user's role in the community. ok is false for non-members.
func (s *PostStore) MemberRole(ctx context.Context, communityID, userID string) (models.MemberRole, bool, error) {
	if _, err := uuid.Parse(communityID); err != nil {
		return "", false, nil
	}
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM community_members WHERE community_id = $1 AND user_id = $2
	`, communityID, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get member role: %w", err)
	}
	return models.MemberRole(role), true, nil
}

// AddMember inserts or updates a membership and keeps member_count in step.
// It reports whether a new membership was created.
func (s *PostStore) AddMember(ctx context.Context, communityID, userID string, role models.MemberRole) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var inserted bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO community_members (community_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (community_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING (xmax = 0)
	`, communityID, userID, string(role)).Scan(&inserted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("add member: %w", err)
	}

	if inserted {
		if _, err := tx.ExecContext(ctx, `UPDATE communities SET member_count = member_count + 1 WHERE id = $1`, communityID); err != nil {
			return false, fmt.Errorf("update member count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// RemoveMember deletes a membership. It reports whether one existed.
func (s *PostStore) RemoveMember(ctx context.Context, communityID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`, communityID, userID)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE communities SET member_count = GREATEST(member_count - 1, 0) WHERE id = $1`, communityID); err != nil {
			return false, fmt.Errorf("update member count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return rows > 0, nil
}

// CreatePost inserts a post into the given community
func (s *PostStore) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.Variant == "" {
		post.Variant = models.PostVariantVote
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO community_posts (id, community_id, author_id, author_name, title, content, variant)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING positive_count, negative_count, created_at
	`, post.ID, post.CommunityID, post.AuthorID, nullString(post.AuthorName), post.Title, post.Content, string(post.Variant),
	).Scan(&post.PositiveCount, &post.NegativeCount, &post.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

const postColumns = `
	p.id, p.community_id, c.slug, p.author_id, COALESCE(p.author_name, ''), p.title, p.content,
	p.variant, p.positive_count, p.negative_count, p.created_at`

func scanPost(row interface{ Scan(...interface{}) error }) (*models.Post, error) {
	p := &models.Post{}
	var variant string
	if err := row.Scan(&p.ID, &p.CommunityID, &p.CommunitySlug, &p.AuthorID, &p.AuthorName, &p.Title, &p.Content,
		&variant, &p.PositiveCount, &p.NegativeCount, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Variant = models.PostVariant(variant)
	return p, nil
}

// GetPost returns a post by id
func (s *PostStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM community_posts p JOIN communities c ON c.id = p.community_id
		WHERE p.id = $1
	`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// DeletePost removes a post and its interactions
func (s *PostStore) DeletePost(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM community_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPosts returns the newest posts, optionally limited to one community
// and filtered by a search over title and content.
func (s *PostStore) ListPosts(ctx context.Context, params models.PostListParams) ([]models.Post, error) {
	whereParts := []string{"TRUE"}
	args := make([]interface{}, 0, 3)
	argPos := 1

	if slug := strings.TrimSpace(params.CommunitySlug); slug != "" {
		whereParts = append(whereParts, fmt.Sprintf("c.slug = $%d", argPos))
		args = append(args, slug)
		argPos++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		placeholder := fmt.Sprintf("$%d", argPos)
		whereParts = append(whereParts, fmt.Sprintf("(p.title ILIKE %s OR p.content ILIKE %s)", placeholder, placeholder))
		args = append(args, "%"+escapeLike(search)+"%")
		argPos++
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM community_posts p JOIN communities c ON c.id = p.community_id
		WHERE %s
		ORDER BY p.created_at DESC
		LIMIT $%d
	`, postColumns, strings.Join(whereParts, " AND "), argPos)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CountPosts returns the number of community posts
func (s *PostStore) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM community_posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
