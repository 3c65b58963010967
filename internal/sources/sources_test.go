package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
)

const newsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>AI Wire</title>
  <item>
    <title>Open weights &lt;b&gt;release&lt;/b&gt;</title>
    <link>https://news.example.com/a</link>
    <description>&lt;p&gt;A new   &lt;em&gt;model&lt;/em&gt; ships.&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>No link here</title>
    <description>dropped</description>
  </item>
  <item>
    <title>Benchmarks</title>
    <link>https://news.example.com/b</link>
    <pubDate>Sun, 01 Jun 2025 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>cs.AI updates on arXiv.org</title>
  <item>
    <title>Scaling Laws Revisited</title>
    <link>https://arxiv.org/abs/2506.01234v2</link>
    <description>arXiv:2506.01234v2 Announce Type: new
Abstract: We revisit scaling.</description>
    <guid isPermaLink="false">oai:arXiv.org:2506.01234v2</guid>
    <dc:creator>Ada Lovelace, Alan Turing</dc:creator>
    <pubDate>Tue, 03 Jun 2025 00:00:00 -0400</pubDate>
  </item>
</channel>
</rss>`

func testConfig() FetcherConfig {
	return FetcherConfig{Timeout: 5 * time.Second, MaxItems: 50, UserAgent: "GrivaTest/1.0"}
}

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"a &amp; b", "a & b"},
		{"  spaced\n\tout  ", "spaced out"},
		{"café", "café"},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate() = %q, want rune-safe cut", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate() = %q", got)
	}
	long := strings.Repeat("x", MaxAbstractLength+10)
	if got := CleanText(long, MaxAbstractLength); len([]rune(got)) != MaxAbstractLength {
		t.Errorf("CleanText() length = %d, want %d", len([]rune(got)), MaxAbstractLength)
	}
}

func TestArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://arxiv.org/abs/2506.01234v2", "2506.01234"},
		{"http://arxiv.org/abs/2506.01234", "2506.01234"},
		{"https://arxiv.org/abs/cs/0112017v1", "cs/0112017"},
		{"oai:arXiv.org:2506.01234v3", "2506.01234"},
		{"https://example.com/paper", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ArxivID(tt.in); got != tt.want {
			t.Errorf("ArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRSSFetcher_Fetch(t *testing.T) {
	srv := serve(t, newsFeed)
	fetcher := NewRSSFetcher(NewsSource{Name: "AI Wire", URL: srv.URL, Category: "industry"}, ratelimit.New(0), testConfig())

	articles, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Fetch() returned %d articles, want 2", len(articles))
	}

	first := articles[0]
	if first.Title != "Open weights release" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Summary != "A new model ships." {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.URL != "https://news.example.com/a" || first.Source != "AI Wire" || first.Category != "industry" {
		t.Errorf("article = %+v", first)
	}
	if !first.PublishedAt.Equal(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}

	info := fetcher.SourceInfo()
	if info.ID != "ai-wire" || info.Kind != models.FeedTypeNews {
		t.Errorf("SourceInfo() = %+v", info)
	}
}

func TestRSSFetcher_MaxItems(t *testing.T) {
	srv := serve(t, newsFeed)
	cfg := testConfig()
	cfg.MaxItems = 1

	articles, err := NewRSSFetcher(NewsSource{Name: "AI Wire", URL: srv.URL}, nil, cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("Fetch() returned %d articles, want 1", len(articles))
	}
}

func TestRSSFetcher_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	garbage := serve(t, "not a feed")

	tests := []struct {
		name    string
		url     string
		timeout time.Duration
	}{
		{"non-2xx", notFound.URL, 5 * time.Second},
		{"timeout", slow.URL, 50 * time.Millisecond},
		{"parse error", garbage.URL, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig().WithTimeout(tt.timeout)
			if _, err := NewRSSFetcher(NewsSource{Name: "x", URL: tt.url}, nil, cfg).Fetch(context.Background()); err == nil {
				t.Error("Fetch() expected error")
			}
		})
	}
}

func TestRSSFetcher_CancelledWhileRateLimited(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, newsFeed)
	}))
	defer srv.Close()

	limiter := ratelimit.New(time.Hour)
	fetcher := NewRSSFetcher(NewsSource{Name: "AI Wire", URL: srv.URL}, limiter, testConfig())
	if _, err := fetcher.Fetch(context.Background()); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := fetcher.Fetch(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want DeadlineExceeded", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestArxivFetcher_Fetch(t *testing.T) {
	srv := serve(t, arxivFeed)
	fetcher := NewArxivFetcher(PaperSource{Category: "cs.AI", URL: srv.URL}, nil, testConfig())

	papers, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("Fetch() returned %d papers, want 1", len(papers))
	}

	p := papers[0]
	if p.ArxivID != "2506.01234" {
		t.Errorf("ArxivID = %q", p.ArxivID)
	}
	if p.PDFURL != "https://arxiv.org/pdf/2506.01234" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Abstract != "We revisit scaling." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if !strings.Contains(p.Authors, "Ada Lovelace") {
		t.Errorf("Authors = %q", p.Authors)
	}
	if p.Category != "cs.AI" || fetcher.Name() != "arXiv cs.AI" {
		t.Errorf("paper = %+v, name = %q", p, fetcher.Name())
	}
}

func TestHubFetcher_MergesQueries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/api/models" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case q.Get("pipeline_tag") == "text-generation":
			fmt.Fprint(w, `[{"id":"acme/llm-7b","author":"acme","downloads":900,"likes":10,"pipeline_tag":"text-generation","createdAt":"2025-05-01T00:00:00.000Z"}]`)
		case q.Get("pipeline_tag") == "text-to-image":
			http.Error(w, "boom", http.StatusInternalServerError)
		case q.Get("sort") == "likes":
			fmt.Fprint(w, `[{"id":"acme/llm-7b","author":"acme","downloads":1000,"likes":99,"pipeline_tag":"text-generation","createdAt":"2025-05-01T00:00:00.000Z"},{"id":"solo-model","likes":5}]`)
		default:
			fmt.Fprint(w, `[{"id":"org/embedder","downloads":5000,"pipeline_tag":"feature-extraction","tags":["sentence-transformers"],"createdAt":"2025-04-01T00:00:00Z"}]`)
		}
	}))
	defer srv.Close()

	fetcher := NewHubFetcher(ModelQuery{
		BaseURL:      srv.URL,
		TopLimit:     10,
		PipelineTags: []string{"text-generation", "text-to-image"},
		PerTagLimit:  5,
		LikedLimit:   5,
	}, ratelimit.New(0), testConfig())

	got, err := fetcher.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "pipeline text-to-image") {
		t.Errorf("Fetch() error = %v, want labeled failure for text-to-image", err)
	}
	if atomic.LoadInt32(&calls) != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if len(got) != 3 {
		t.Fatalf("Fetch() returned %d models, want 3 unique", len(got))
	}

	byID := make(map[string]models.AIModel)
	for _, m := range got {
		byID[m.HubID] = m
	}

	llm := byID["acme/llm-7b"]
	if llm.Likes != 99 || llm.Downloads != 1000 {
		t.Errorf("later query should win for duplicate hub id, got %+v", llm)
	}
	if llm.Name != "llm-7b" || llm.Provider != "acme" || llm.Category != models.ModelCategoryLanguage {
		t.Errorf("llm = %+v", llm)
	}
	if llm.DownloadURL != srv.URL+"/acme/llm-7b" {
		t.Errorf("DownloadURL = %q", llm.DownloadURL)
	}

	if emb := byID["org/embedder"]; emb.Provider != "org" || emb.Category != models.ModelCategoryEmbedding || len(emb.Tags) != 1 {
		t.Errorf("embedder = %+v", emb)
	}
	if solo := byID["solo-model"]; solo.Provider != "community" || solo.Category != models.ModelCategoryOther || solo.Tags == nil {
		t.Errorf("solo = %+v", solo)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "sources.yaml")
	os.WriteFile(yamlPath, []byte(`
news:
  - name: AI Wire
    url: https://news.example.com/feed
    category: industry
  - name: Paused
    url: https://paused.example.com/feed
    enabled: false
papers:
  - category: cs.LG
    url: https://rss.arxiv.org/rss/cs.LG
models:
  top_limit: 5
  pipeline_tags: [text-generation]
  per_tag_limit: 2
`), 0o644)

	catalog, err := LoadCatalog(yamlPath)
	if err != nil {
		t.Fatalf("LoadCatalog(yaml) error = %v", err)
	}
	if len(catalog.News) != 2 || len(catalog.Papers) != 1 || catalog.Models.TopLimit != 5 {
		t.Errorf("catalog = %+v", catalog)
	}
	if n := len(catalog.NewsFetchers(nil, testConfig())); n != 1 {
		t.Errorf("NewsFetchers() = %d, want 1 enabled", n)
	}
	if n := len(catalog.PaperFetchers(nil, testConfig())); n != 1 {
		t.Errorf("PaperFetchers() = %d, want 1", n)
	}

	jsonPath := filepath.Join(dir, "sources.json")
	os.WriteFile(jsonPath, []byte(`{"news":[{"name":"A","url":"https://a.example.com"}],"models":{"topLimit":3}}`), 0o644)
	catalog, err = LoadCatalog(jsonPath)
	if err != nil {
		t.Fatalf("LoadCatalog(json) error = %v", err)
	}
	if catalog.Models.TopLimit != 3 || catalog.News[0].Name != "A" {
		t.Errorf("catalog = %+v", catalog)
	}

	badPath := filepath.Join(dir, "bad.yaml")
	os.WriteFile(badPath, []byte("news:\n  - name: missing url\n"), 0o644)
	if _, err := LoadCatalog(badPath); err == nil {
		t.Error("LoadCatalog() should reject a news source without url")
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadCatalog() should fail for a missing file")
	}
}

func TestFindCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	os.WriteFile(path, []byte("news: []\n"), 0o644)

	if got := FindCatalog(path); got != path {
		t.Errorf("FindCatalog(explicit) = %q, want %q", got, path)
	}

	t.Setenv("SOURCES_CONFIG_PATH", path)
	if got := FindCatalog(""); got != path {
		t.Errorf("FindCatalog(env) = %q, want %q", got, path)
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		t.Fatalf("DefaultCatalog() invalid: %v", err)
	}
	if len(catalog.News) == 0 || len(catalog.Papers) == 0 || catalog.Models.TopLimit == 0 {
		t.Errorf("DefaultCatalog() = %+v", catalog)
	}
}
