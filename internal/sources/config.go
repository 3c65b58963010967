package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
)

// NewsSource is one news RSS feed
type NewsSource struct {
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Category string `json:"category" yaml:"category"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// PaperSource is one arXiv category feed
type PaperSource struct {
	Category string `json:"category" yaml:"category"`
	URL      string `json:"url" yaml:"url"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// ModelQuery configures model hub discovery
type ModelQuery struct {
	BaseURL      string   `json:"baseUrl" yaml:"base_url"`
	TopLimit     int      `json:"topLimit" yaml:"top_limit"`
	PipelineTags []string `json:"pipelineTags" yaml:"pipeline_tags"`
	PerTagLimit  int      `json:"perTagLimit" yaml:"per_tag_limit"`
	LikedLimit   int      `json:"likedLimit" yaml:"liked_limit"`
}

// Catalog is the full list of ingestion sources
type Catalog struct {
	News   []NewsSource  `json:"news" yaml:"news"`
	Papers []PaperSource `json:"papers" yaml:"papers"`
	Models ModelQuery    `json:"models" yaml:"models"`
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// LoadCatalog loads sources from a YAML or JSON file, chosen by extension
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources config: %w", err)
	}

	var catalog Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &catalog)
	default:
		err = yaml.Unmarshal(data, &catalog)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse sources config %s: %w", path, err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate rejects sources missing the fields their fetcher needs
func (c *Catalog) Validate() error {
	for i, s := range c.News {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("news source %d: name and url are required", i)
		}
	}
	for i, s := range c.Papers {
		if strings.TrimSpace(s.Category) == "" || strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("paper source %d: category and url are required", i)
		}
	}
	if c.Models.TopLimit < 0 || c.Models.PerTagLimit < 0 || c.Models.LikedLimit < 0 {
		return fmt.Errorf("model query limits must not be negative")
	}
	return nil
}

// FindCatalog searches for a sources file in common locations. explicit wins
// when set; an empty result means the built-in catalog applies.
func FindCatalog(explicit string) string {
	locations := []string{
		"sources.yaml",
		"sources.yml",
		"sources.json",
		"config/sources.yaml",
		"config/sources.json",
		"/app/sources.yaml",
	}

	if envPath := os.Getenv("SOURCES_CONFIG_PATH"); envPath != "" {
		locations = append([]string{envPath}, locations...)
	}
	if explicit != "" {
		locations = append([]string{explicit}, locations...)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

// NewsFetchers builds one fetcher per enabled news source
func (c *Catalog) NewsFetchers(limiter ratelimit.RateLimiter, config FetcherConfig) []NewsFetcher {
	fetchers := make([]NewsFetcher, 0, len(c.News))
	for _, s := range c.News {
		if enabled(s.Enabled) {
			fetchers = append(fetchers, NewRSSFetcher(s, limiter, config))
		}
	}
	return fetchers
}

// PaperFetchers builds one fetcher per enabled arXiv category
func (c *Catalog) PaperFetchers(limiter ratelimit.RateLimiter, config FetcherConfig) []PaperFetcher {
	fetchers := make([]PaperFetcher, 0, len(c.Papers))
	for _, s := range c.Papers {
		if enabled(s.Enabled) {
			fetchers = append(fetchers, NewArxivFetcher(s, limiter, config))
		}
	}
	return fetchers
}

// ModelFetcher builds the hub discovery fetcher
func (c *Catalog) ModelFetcher(limiter ratelimit.RateLimiter, config FetcherConfig) ModelFetcher {
	return NewHubFetcher(c.Models, limiter, config)
}

// DefaultCatalog returns the built-in sources used when no file is found
func DefaultCatalog() *Catalog {
	return &Catalog{
		News: []NewsSource{
			{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Category: "industry"},
			{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Category: "industry"},
			{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed", Category: "research"},
			{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Category: "industry"},
			{Name: "Hugging Face Blog", URL: "https://huggingface.co/blog/feed.xml", Category: "open-source"},
			{Name: "Google AI Blog", URL: "https://blog.research.google/feeds/posts/default?alt=rss", Category: "research"},
		},
		Papers: []PaperSource{
			{Category: "cs.AI", URL: "https://rss.arxiv.org/rss/cs.AI"},
			{Category: "cs.LG", URL: "https://rss.arxiv.org/rss/cs.LG"},
			{Category: "cs.CL", URL: "https://rss.arxiv.org/rss/cs.CL"},
			{Category: "cs.CV", URL: "https://rss.arxiv.org/rss/cs.CV"},
		},
		Models: ModelQuery{
			BaseURL:      defaultHubBaseURL,
			TopLimit:     50,
			PipelineTags: []string{"text-generation", "image-text-to-text", "text-to-image", "automatic-speech-recognition", "feature-extraction"},
			PerTagLimit:  20,
			LikedLimit:   30,
		},
	}
}
