package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// MetricsStore computes and caches dashboard snapshots
type MetricsStore struct {
	db      *DB
	content *ContentStore
	posts   *PostStore
}

func NewMetricsStore(db *DB) *MetricsStore {
	return &MetricsStore{db: db, content: NewContentStore(db), posts: NewPostStore(db)}
}

// Compute aggregates the content tables as of now
func (s *MetricsStore) Compute(ctx context.Context) (*models.MetricsSnapshot, error) {
	snap := &models.MetricsSnapshot{
		ModelCategories: map[string]int64{},
		NewsCategories:  map[string]int64{},
		ComputedAt:      time.Now().UTC(),
	}

	var err error
	if snap.NewsCount, snap.PaperCount, snap.ModelCount, err = s.content.Counts(ctx); err != nil {
		return nil, err
	}
	if snap.PostCount, err = s.posts.CountPosts(ctx); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM news_articles WHERE published_at >= NOW() - INTERVAL '24 hours'),
			(SELECT COUNT(*) FROM research_papers WHERE published_date >= NOW() - INTERVAL '24 hours')
	`).Scan(&snap.NewsLast24h, &snap.PapersLast24h)
	if err != nil {
		return nil, fmt.Errorf("compute recent totals: %w", err)
	}

	if err := s.groupCounts(ctx, `SELECT COALESCE(category, 'other'), COUNT(*) FROM ai_models GROUP BY 1`, snap.ModelCategories); err != nil {
		return nil, err
	}
	if err := s.groupCounts(ctx, `SELECT COALESCE(category, 'general'), COUNT(*) FROM news_articles GROUP BY 1`, snap.NewsCategories); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *MetricsStore) groupCounts(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("compute categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan category: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}

// Save stores a snapshot row
func (s *MetricsStore) Save(ctx context.Context, snap *models.MetricsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO metrics_snapshots (snapshot, computed_at) VALUES ($1, $2)`, data, snap.ComputedAt); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot, or ErrNotFound when none exists
func (s *MetricsStore) Latest(ctx context.Context) (*models.MetricsSnapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM metrics_snapshots ORDER BY computed_at DESC, id DESC LIMIT 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap models.MetricsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
