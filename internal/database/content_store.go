package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// ContentStore persists ingested news, papers and models
type ContentStore struct {
	db *DB
}

func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// UpsertNews inserts articles keyed on URL. Existing URLs are left untouched.
// It returns the number of rows actually inserted.
func (s *ContentStore) UpsertNews(ctx context.Context, articles []models.NewsArticle) (int, error) {
	return s.batch(ctx, "news article", len(articles), `
		INSERT INTO news_articles (title, summary, url, source, category, image_url, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (url) DO NOTHING
	`, func(i int) []interface{} {
		a := articles[i]
		return []interface{}{a.Title, nullString(a.Summary), a.URL, a.Source, nullString(a.Category), nullString(a.ImageURL), timeOrNow(a.PublishedAt)}
	})
}

// UpsertPapers inserts papers keyed on arXiv id. Existing ids are left untouched.
func (s *ContentStore) UpsertPapers(ctx context.Context, papers []models.Paper) (int, error) {
	return s.batch(ctx, "paper", len(papers), `
		INSERT INTO research_papers (arxiv_id, title, authors, abstract, pdf_url, category, published_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (arxiv_id) DO NOTHING
	`, func(i int) []interface{} {
		p := papers[i]
		return []interface{}{p.ArxivID, p.Title, p.Authors, nullString(p.Abstract), p.PDFURL, nullString(p.Category), timeOrNow(p.PublishedDate)}
	})
}

// UpsertModels inserts models keyed on hub id and refreshes the mutable
// fields of existing rows. It returns the number of rows written.
func (s *ContentStore) UpsertModels(ctx context.Context, items []models.AIModel) (int, error) {
	return s.batch(ctx, "model", len(items), `
		INSERT INTO ai_models (
			hub_id, name, provider, description, category, pipeline_tag,
			tags, downloads, likes, download_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (hub_id) DO UPDATE SET
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			pipeline_tag = EXCLUDED.pipeline_tag,
			tags = EXCLUDED.tags,
			downloads = EXCLUDED.downloads,
			likes = EXCLUDED.likes,
			download_url = EXCLUDED.download_url,
			updated_at = NOW()
	`, func(i int) []interface{} {
		m := items[i]
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}
		return []interface{}{
			m.HubID, m.Name, m.Provider, nullString(m.Description), nullString(m.Category), nullString(m.PipelineTag),
			pq.Array(tags), m.Downloads, m.Likes, m.DownloadURL, timeOrNow(m.CreatedAt),
		}
	})
}

// batch runs one prepared statement per row inside a single transaction
func (s *ContentStore) batch(ctx context.Context, noun string, n int, query string, args func(i int) []interface{}) (int, error) {
	if n == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare %s upsert: %w", noun, err)
	}
	defer stmt.Close()

	written := 0
	for i := 0; i < n; i++ {
		res, err := stmt.ExecContext(ctx, args(i)...)
		if err != nil {
			return 0, fmt.Errorf("upsert %s: %w", noun, err)
		}
		if rows, err := res.RowsAffected(); err == nil {
			written += int(rows)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return written, nil
}

// ListNews returns the newest articles, optionally filtered by a
// case-insensitive search over title, summary and source.
func (s *ContentStore) ListNews(ctx context.Context, q models.ContentQuery) ([]models.NewsArticle, error) {
	query, args := contentQuery(`
		SELECT id, title, COALESCE(summary, ''), url, source, COALESCE(category, ''),
			COALESCE(image_url, ''), published_at, created_at
		FROM news_articles`, []string{"title", "summary", "source"}, "published_at", q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var out []models.NewsArticle
	for rows.Next() {
		var a models.NewsArticle
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.URL, &a.Source, &a.Category, &a.ImageURL, &a.PublishedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListPapers returns the newest papers, searching title, abstract and authors
func (s *ContentStore) ListPapers(ctx context.Context, q models.ContentQuery) ([]models.Paper, error) {
	query, args := contentQuery(`
		SELECT arxiv_id, title, authors, COALESCE(abstract, ''), pdf_url, COALESCE(category, ''),
			published_date, created_at
		FROM research_papers`, []string{"title", "abstract", "authors"}, "published_date", q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var out []models.Paper
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.ArxivID, &p.Title, &p.Authors, &p.Abstract, &p.PDFURL, &p.Category, &p.PublishedDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListModels returns the newest models, searching name, description and provider
func (s *ContentStore) ListModels(ctx context.Context, q models.ContentQuery) ([]models.AIModel, error) {
	query, args := contentQuery(`
		SELECT hub_id, name, provider, COALESCE(description, ''), COALESCE(category, ''),
			COALESCE(pipeline_tag, ''), tags, downloads, likes, download_url, created_at, updated_at
		FROM ai_models`, []string{"name", "description", "provider"}, "created_at", q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []models.AIModel
	for rows.Next() {
		var m models.AIModel
		var tags pq.StringArray
		if err := rows.Scan(&m.HubID, &m.Name, &m.Provider, &m.Description, &m.Category, &m.PipelineTag,
			&tags, &m.Downloads, &m.Likes, &m.DownloadURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		m.Tags = []string(tags)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Counts returns the row count of each content table
func (s *ContentStore) Counts(ctx context.Context) (news, papers, aiModels int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM news_articles),
			(SELECT COUNT(*) FROM research_papers),
			(SELECT COUNT(*) FROM ai_models)
	`).Scan(&news, &papers, &aiModels)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("count content: %w", err)
	}
	return news, papers, aiModels, nil
}

func contentQuery(base string, searchColumns []string, orderColumn string, q models.ContentQuery) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(base)

	args := make([]interface{}, 0, 2)
	argPos := 1

	if search := strings.TrimSpace(q.Search); search != "" {
		placeholder := fmt.Sprintf("$%d", argPos)
		clauses := make([]string, 0, len(searchColumns))
		for _, col := range searchColumns {
			clauses = append(clauses, col+" ILIKE "+placeholder)
		}
		sb.WriteString(" WHERE (" + strings.Join(clauses, " OR ") + ")")
		args = append(args, "%"+escapeLike(search)+"%")
		argPos++
	}

	sb.WriteString(" ORDER BY " + orderColumn + " DESC")

	if q.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argPos))
		args = append(args, q.Limit)
	}
	return sb.String(), args
}

// escapeLike makes user input literal inside an ILIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
