package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// InteractionStore records per-user reactions to community posts
type InteractionStore struct {
	db *DB
}

func NewInteractionStore(db *DB) *InteractionStore {
	return &InteractionStore{db: db}
}

// toggleQuery applies one selection as a single statement. The upsert row
// lock serializes concurrent toggles from the same user, and the counter
// update reads the previous direction from the same row version, so a flip
// moves exactly one count from one side to the other.
const toggleQuery = `
WITH upsert AS (
	INSERT INTO post_interactions (post_id, user_id, direction, prev_direction, updated_at)
	VALUES ($1, $2, $3, 0, NOW())
	ON CONFLICT (post_id, user_id) DO UPDATE SET
		prev_direction = post_interactions.direction,
		direction = CASE
			WHEN post_interactions.direction = EXCLUDED.direction THEN 0
			ELSE EXCLUDED.direction
		END,
		updated_at = NOW()
	RETURNING prev_direction, direction
), counted AS (
	UPDATE community_posts p SET
		positive_count = GREATEST(p.positive_count
			+ (CASE WHEN u.direction = 1 THEN 1 ELSE 0 END)
			- (CASE WHEN u.prev_direction = 1 THEN 1 ELSE 0 END), 0),
		negative_count = GREATEST(p.negative_count
			+ (CASE WHEN u.direction = -1 THEN 1 ELSE 0 END)
			- (CASE WHEN u.prev_direction = -1 THEN 1 ELSE 0 END), 0)
	FROM upsert u
	WHERE p.id = $1
	RETURNING p.positive_count, p.negative_count
)
SELECT u.direction, c.positive_count, c.negative_count
FROM upsert u CROSS JOIN counted c
`

// Toggle selects a direction for the user on the post
func (s *InteractionStore) Toggle(ctx context.Context, postID, userID string, selected models.Direction) (*models.InteractionResult, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, ErrNotFound
	}

	result := &models.InteractionResult{PostID: postID}
	var direction int
	err := s.db.QueryRowContext(ctx, toggleQuery, postID, userID, int(selected)).
		Scan(&direction, &result.PositiveCount, &result.NegativeCount)
	if err == sql.ErrNoRows || isForeignKeyViolation(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle interaction: %w", err)
	}
	result.Direction = models.Direction(direction)
	return result, nil
}

// UserDirections returns the user's non-neutral direction per post
func (s *InteractionStore) UserDirections(ctx context.Context, userID string, postIDs []string) (map[string]models.Direction, error) {
	ids := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}

	out := make(map[string]models.Direction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, direction FROM post_interactions
		WHERE user_id = $1 AND post_id = ANY($2::uuid[]) AND direction <> 0
	`, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID string
		var direction int
		if err := rows.Scan(&postID, &direction); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out[postID] = models.Direction(direction)
	}
	return out, rows.Err()
}
