package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
)

// RSSFetcher reads one news RSS or Atom feed
type RSSFetcher struct {
	name     string
	url      string
	category string
	parser   *gofeed.Parser
	limiter  ratelimit.RateLimiter
	config   FetcherConfig
}

func NewRSSFetcher(source NewsSource, limiter ratelimit.RateLimiter, config FetcherConfig) *RSSFetcher {
	return &RSSFetcher{
		name:     source.Name,
		url:      source.URL,
		category: source.Category,
		parser:   newParser(config),
		limiter:  limiter,
		config:   config,
	}
}

func (f *RSSFetcher) Name() string {
	return f.name
}

func (f *RSSFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{
		ID:       slug(f.name),
		Name:     f.name,
		URL:      f.url,
		Kind:     models.FeedTypeNews,
		Category: f.category,
		Enabled:  true,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context) ([]models.NewsArticle, error) {
	feed, err := parseFeed(ctx, f.parser, f.limiter, f.url, f.config.Timeout)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(articles) >= f.config.MaxItems {
			break
		}
		link := strings.TrimSpace(item.Link)
		title := CleanText(item.Title, MaxTitleLength)
		if link == "" || title == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		articles = append(articles, models.NewsArticle{
			Title:       title,
			Summary:     CleanText(summary, MaxSummaryLength),
			URL:         link,
			Source:      f.name,
			Category:    f.category,
			ImageURL:    imageURL(item),
			PublishedAt: publishedAt(item, now),
		})
	}

	return articles, nil
}

func newParser(config FetcherConfig) *gofeed.Parser {
	parser := gofeed.NewParser()
	parser.UserAgent = config.UserAgent
	parser.Client = &http.Client{Timeout: config.Timeout}
	return parser
}

// parseFeed waits for the host slot, then parses url under its own timeout
func parseFeed(ctx context.Context, parser *gofeed.Parser, limiter ratelimit.RateLimiter, url string, timeout time.Duration) (*gofeed.Feed, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx, url); err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", url, err)
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	feed, err := parser.ParseURLWithContext(url, ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}
	return feed, nil
}

func publishedAt(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return fallback
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}
