package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/cache"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

const (
	DefaultPerKindLimit = 30
	DefaultTotalLimit   = 90

	cacheNamespace = "feed"
)

// ErrInvalidFilter is returned for a type filter other than news, paper or model
var ErrInvalidFilter = errors.New("invalid feed type filter")

// Reader is the read side of the three content tables
type Reader interface {
	ListNews(ctx context.Context, q models.ContentQuery) ([]models.NewsArticle, error)
	ListPapers(ctx context.Context, q models.ContentQuery) ([]models.Paper, error)
	ListModels(ctx context.Context, q models.ContentQuery) ([]models.AIModel, error)
}

// Options bound the merge
type Options struct {
	PerKindLimit int
	TotalLimit   int
	CacheTTL     time.Duration
}

// Service merges the content tables into one time-ordered stream
type Service struct {
	reader Reader
	cache  cache.Cache
	opts   Options
	logger *logging.Logger
}

func NewService(reader Reader, c cache.Cache, opts Options, logger *logging.Logger) *Service {
	if opts.PerKindLimit <= 0 {
		opts.PerKindLimit = DefaultPerKindLimit
	}
	if opts.TotalLimit <= 0 {
		opts.TotalLimit = DefaultTotalLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	return &Service{
		reader: reader,
		cache:  c,
		opts:   opts,
		logger: logger,
	}
}

// TotalLimit is the cap applied to merged and live lists
func (s *Service) TotalLimit() int {
	return s.opts.TotalLimit
}

// GetFeedItems returns the newest items across the kinds allowed by filter.
// Each kind contributes at most PerKindLimit rows before the merge, so an
// older row can miss the global top even if it would otherwise rank there.
func (s *Service) GetFeedItems(ctx context.Context, filter, search string) ([]models.FeedItem, error) {
	feedType, ok := models.ParseFeedType(filter)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	search = strings.TrimSpace(search)

	key, cacheable := s.cacheKey(feedType, search)
	if cacheable {
		var cached []models.FeedItem
		if s.cache.GetInto(key, &cached) {
			return cached, nil
		}
	}

	q := models.ContentQuery{Search: search, Limit: s.opts.PerKindLimit}
	items := make([]models.FeedItem, 0, 3*s.opts.PerKindLimit)

	if feedType == "" || feedType == models.FeedTypeNews {
		news, err := s.reader.ListNews(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, a := range news {
			items = append(items, NewsItem(a))
		}
	}
	if feedType == "" || feedType == models.FeedTypePaper {
		papers, err := s.reader.ListPapers(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, p := range papers {
			items = append(items, PaperItem(p))
		}
	}
	if feedType == "" || feedType == models.FeedTypeModel {
		aiModels, err := s.reader.ListModels(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, m := range aiModels {
			items = append(items, ModelItem(m))
		}
	}

	items = Merge(items, s.opts.TotalLimit)

	if cacheable {
		s.cache.SetWithTTL(key, items, s.opts.CacheTTL)
	}

	s.logger.Debug("Feed merged", logging.WithFields(map[string]interface{}{
		"type":   string(feedType),
		"search": search,
		"count":  len(items),
	}))
	return items, nil
}

// Invalidate retires every cached feed page by bumping the key generation
func (s *Service) Invalidate() {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Bump(cacheNamespace); err != nil {
		s.logger.Warn("Feed cache invalidation failed", logging.WithField("error", err.Error()))
	}
}

// cacheKey reports false when the cache is off or its generation is
// unreadable; such requests bypass the cache in both directions.
func (s *Service) cacheKey(feedType models.FeedType, search string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	generation, err := s.cache.Generation(cacheNamespace)
	if err != nil {
		s.logger.Warn("Feed cache generation unavailable", logging.WithField("error", err.Error()))
		return "", false
	}
	t := string(feedType)
	if t == "" {
		t = "all"
	}
	return cacheNamespace + ":" + strconv.FormatInt(generation, 10) + ":" + t + ":" + strings.ToLower(search), true
}

// Merge orders items newest first and truncates to limit. Items with equal
// timestamps keep their input order.
func Merge(items []models.FeedItem, limit int) []models.FeedItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
