package sources

import (
	"context"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// Source is anything the ingestion workers pull from
type Source interface {
	Name() string
	SourceInfo() models.SourceInfo
}

// NewsFetcher pulls articles from one news feed
type NewsFetcher interface {
	Source
	Fetch(ctx context.Context) ([]models.NewsArticle, error)
}

// PaperFetcher pulls papers from one arXiv category feed
type PaperFetcher interface {
	Source
	Fetch(ctx context.Context) ([]models.Paper, error)
}

// ModelFetcher pulls models from the model hub catalog
type ModelFetcher interface {
	Source
	Fetch(ctx context.Context) ([]models.AIModel, error)
}

type FetcherConfig struct {
	Timeout   time.Duration
	MaxItems  int
	UserAgent string
}

func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   20 * time.Second,
		MaxItems:  50,
		UserAgent: "Griva/1.0 (+https://github.com/sriramsowmithri9807/Griva)",
	}
}

// WithTimeout returns a copy of c using timeout when it is positive
func (c FetcherConfig) WithTimeout(timeout time.Duration) FetcherConfig {
	if timeout > 0 {
		c.Timeout = timeout
	}
	return c
}
