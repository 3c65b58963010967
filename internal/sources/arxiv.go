package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
)

var (
	arxivAbsPattern     = regexp.MustCompile(`/abs/([^?#]+?)(v\d+)?(?:[?#].*)?$`)
	arxivVersionPattern = regexp.MustCompile(`v\d+$`)
)

// ArxivFetcher reads one arXiv category RSS feed
type ArxivFetcher struct {
	category string
	url      string
	parser   *gofeed.Parser
	limiter  ratelimit.RateLimiter
	config   FetcherConfig
}

func NewArxivFetcher(source PaperSource, limiter ratelimit.RateLimiter, config FetcherConfig) *ArxivFetcher {
	return &ArxivFetcher{
		category: source.Category,
		url:      source.URL,
		parser:   newParser(config),
		limiter:  limiter,
		config:   config,
	}
}

func (f *ArxivFetcher) Name() string {
	return "arXiv " + f.category
}

func (f *ArxivFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{
		ID:       "arxiv-" + slug(f.category),
		Name:     f.Name(),
		URL:      f.url,
		Kind:     models.FeedTypePaper,
		Category: f.category,
		Enabled:  true,
	}
}

func (f *ArxivFetcher) Fetch(ctx context.Context) ([]models.Paper, error) {
	feed, err := parseFeed(ctx, f.parser, f.limiter, f.url, f.config.Timeout)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	papers := make([]models.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(papers) >= f.config.MaxItems {
			break
		}
		id := ArxivID(item.Link)
		if id == "" {
			id = ArxivID(item.GUID)
		}
		title := CleanText(item.Title, MaxTitleLength)
		if id == "" || title == "" {
			continue
		}

		papers = append(papers, models.Paper{
			ArxivID:       id,
			Title:         title,
			Authors:       authors(item),
			Abstract:      CleanText(abstract(item.Description), MaxAbstractLength),
			PDFURL:        "https://arxiv.org/pdf/" + id,
			Category:      f.category,
			PublishedDate: publishedAt(item, now),
		})
	}

	return papers, nil
}

// ArxivID extracts the paper id from a canonical /abs/ link with any version
// suffix removed. Links without /abs/ and bare oai identifiers are accepted.
func ArxivID(link string) string {
	link = strings.TrimSpace(link)
	if m := arxivAbsPattern.FindStringSubmatch(link); m != nil {
		return strings.TrimSuffix(m[1], "/")
	}
	if strings.HasPrefix(link, "oai:arXiv.org:") {
		return arxivVersionPattern.ReplaceAllString(strings.TrimPrefix(link, "oai:arXiv.org:"), "")
	}
	return ""
}

func authors(item *gofeed.Item) string {
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			names = append(names, strings.TrimSpace(a.Name))
		}
	}
	if len(names) == 0 && item.DublinCoreExt != nil {
		names = append(names, item.DublinCoreExt.Creator...)
	}
	return CleanText(strings.Join(names, ", "), MaxTitleLength)
}

// abstract drops the "arXiv:<id> Announce Type: new Abstract:" preamble the
// arXiv RSS feeds put before the text.
func abstract(description string) string {
	if i := strings.Index(description, "Abstract:"); i >= 0 {
		return description[i+len("Abstract:"):]
	}
	return description
}
