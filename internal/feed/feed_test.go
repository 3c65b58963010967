package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/cache"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/database"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/memstore"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/testutil"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return base.Add(time.Duration(hour) * time.Hour)
}

type fakeReader struct {
	news     []models.NewsArticle
	papers   []models.Paper
	aiModels []models.AIModel
	calls    int
	err      error
	last     models.ContentQuery
}

func (f *fakeReader) ListNews(ctx context.Context, q models.ContentQuery) ([]models.NewsArticle, error) {
	f.calls++
	f.last = q
	return f.news, f.err
}

func (f *fakeReader) ListPapers(ctx context.Context, q models.ContentQuery) ([]models.Paper, error) {
	f.calls++
	f.last = q
	return f.papers, f.err
}

func (f *fakeReader) ListModels(ctx context.Context, q models.ContentQuery) ([]models.AIModel, error) {
	f.calls++
	f.last = q
	return f.aiModels, f.err
}

func newTestService(reader Reader, c cache.Cache) *Service {
	return NewService(reader, c, Options{}, testutil.NullLogger())
}

func timestamps(items []models.FeedItem) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = int(item.Timestamp.Sub(base) / time.Hour)
	}
	return out
}

func TestGetFeedItems_MergesByTimestamp(t *testing.T) {
	reader := &fakeReader{
		news: []models.NewsArticle{
			{URL: "https://n/5", Title: "n5", Source: "Wire", PublishedAt: at(5)},
			{URL: "https://n/3", Title: "n3", Source: "Wire", PublishedAt: at(3)},
			{URL: "https://n/1", Title: "n1", Source: "Wire", PublishedAt: at(1)},
		},
		papers: []models.Paper{
			{ArxivID: "2401.4", Title: "p4", Authors: "A. Author", PublishedDate: at(4)},
			{ArxivID: "2401.2", Title: "p2", Authors: "B. Author", PublishedDate: at(2)},
		},
	}

	items, err := newTestService(reader, nil).GetFeedItems(context.Background(), "", "")
	if err != nil {
		t.Fatalf("GetFeedItems() error = %v", err)
	}

	got := fmt.Sprint(timestamps(items))
	if got != "[5 4 3 2 1]" {
		t.Errorf("timestamps = %s, want [5 4 3 2 1]", got)
	}
	if items[1].Type != models.FeedTypePaper || items[1].Subtitle != "A. Author" {
		t.Errorf("items[1] = %+v", items[1])
	}
	if items[0].Subtitle != "Wire" || items[0].URL != "https://n/5" {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestGetFeedItems_Filter(t *testing.T) {
	reader := &fakeReader{
		news:     []models.NewsArticle{{URL: "u", Title: "n", PublishedAt: at(1)}},
		papers:   []models.Paper{{ArxivID: "p", Title: "p", PublishedDate: at(2)}},
		aiModels: []models.AIModel{{HubID: "org/m", Name: "m", Provider: "org", CreatedAt: at(3)}},
	}

	tests := []struct {
		filter string
		want   models.FeedType
		calls  int
	}{
		{"news", models.FeedTypeNews, 1},
		{"papers", models.FeedTypePaper, 1},
		{"model", models.FeedTypeModel, 1},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			reader.calls = 0
			items, err := newTestService(reader, nil).GetFeedItems(context.Background(), tt.filter, "")
			if err != nil {
				t.Fatalf("GetFeedItems() error = %v", err)
			}
			if reader.calls != tt.calls {
				t.Errorf("reader calls = %d, want %d", reader.calls, tt.calls)
			}
			if len(items) != 1 || items[0].Type != tt.want {
				t.Errorf("items = %+v", items)
			}
		})
	}
}

func TestGetFeedItems_InvalidFilter(t *testing.T) {
	reader := &fakeReader{}
	_, err := newTestService(reader, nil).GetFeedItems(context.Background(), "videos", "")
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("error = %v, want ErrInvalidFilter", err)
	}
	if reader.calls != 0 {
		t.Error("invalid filter should not query the store")
	}
}

func TestGetFeedItems_CapsTotalAndPassesLimit(t *testing.T) {
	reader := &fakeReader{}
	for i := 0; i < 40; i++ {
		reader.news = append(reader.news, models.NewsArticle{URL: fmt.Sprintf("n%d", i), PublishedAt: at(i)})
		reader.papers = append(reader.papers, models.Paper{ArxivID: fmt.Sprintf("p%d", i), PublishedDate: at(i)})
		reader.aiModels = append(reader.aiModels, models.AIModel{HubID: fmt.Sprintf("m%d", i), CreatedAt: at(i)})
	}

	items, err := newTestService(reader, nil).GetFeedItems(context.Background(), "all", "  GPT ")
	if err != nil {
		t.Fatalf("GetFeedItems() error = %v", err)
	}
	if len(items) != DefaultTotalLimit {
		t.Errorf("len(items) = %d, want %d", len(items), DefaultTotalLimit)
	}
	if reader.last.Limit != DefaultPerKindLimit || reader.last.Search != "GPT" {
		t.Errorf("query = %+v", reader.last)
	}
}

func TestGetFeedItems_StoreError(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	if _, err := newTestService(reader, nil).GetFeedItems(context.Background(), "", ""); err == nil {
		t.Error("expected store error to propagate")
	}
}

func TestGetFeedItems_CacheAndInvalidate(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	defer c.Stop()

	reader := &fakeReader{news: []models.NewsArticle{{URL: "u1", Title: "first", PublishedAt: at(1)}}}
	svc := newTestService(reader, c)
	ctx := context.Background()

	if _, err := svc.GetFeedItems(ctx, "news", ""); err != nil {
		t.Fatal(err)
	}
	reader.news = append(reader.news, models.NewsArticle{URL: "u2", Title: "second", PublishedAt: at(2)})

	items, _ := svc.GetFeedItems(ctx, "news", "")
	if reader.calls != 1 || len(items) != 1 {
		t.Fatalf("second read should hit the cache, calls = %d len = %d", reader.calls, len(items))
	}

	items, _ = svc.GetFeedItems(ctx, "news", "second")
	if reader.calls != 2 {
		t.Errorf("different search should miss the cache, calls = %d", reader.calls)
	}

	svc.Invalidate()
	items, _ = svc.GetFeedItems(ctx, "news", "")
	if reader.calls != 3 || len(items) != 2 || items[0].Title != "second" {
		t.Errorf("after Invalidate calls = %d items = %+v", reader.calls, items)
	}
}

// outageCache fails generation reads while down, like Redis during a blip
type outageCache struct {
	*cache.MemoryCache
	down bool
}

func (c *outageCache) Generation(namespace string) (int64, error) {
	if c.down {
		return 0, errors.New("dial tcp: connection refused")
	}
	return c.MemoryCache.Generation(namespace)
}

func TestGetFeedItems_GenerationOutageBypassesCache(t *testing.T) {
	c := &outageCache{MemoryCache: cache.NewMemory(time.Minute)}
	defer c.Stop()

	reader := &fakeReader{news: []models.NewsArticle{{URL: "u1", Title: "first", PublishedAt: at(1)}}}
	svc := newTestService(reader, c)
	ctx := context.Background()

	svc.GetFeedItems(ctx, "news", "")
	reader.news = append(reader.news, models.NewsArticle{URL: "u2", Title: "second", PublishedAt: at(2)})
	svc.Invalidate()

	c.down = true
	items, err := svc.GetFeedItems(ctx, "news", "")
	if err != nil {
		t.Fatal(err)
	}
	if reader.calls != 2 || len(items) != 2 {
		t.Fatalf("outage served a retired page: calls = %d items = %+v", reader.calls, items)
	}
	svc.GetFeedItems(ctx, "news", "")
	if reader.calls != 3 {
		t.Errorf("reads during the outage should skip the cache, calls = %d", reader.calls)
	}

	c.down = false
	svc.GetFeedItems(ctx, "news", "")
	svc.GetFeedItems(ctx, "news", "")
	if reader.calls != 4 {
		t.Errorf("cache should resume after the outage, calls = %d", reader.calls)
	}
}

func TestMerge_StableOnTies(t *testing.T) {
	items := []models.FeedItem{
		{ID: "news:a", Timestamp: at(1)},
		{ID: "paper:b", Timestamp: at(1)},
		{ID: "model:c", Timestamp: at(1)},
		{ID: "news:d", Timestamp: at(2)},
	}
	merged := Merge(items, 0)
	want := []string{"news:d", "news:a", "paper:b", "model:c"}
	for i, id := range want {
		if merged[i].ID != id {
			t.Errorf("merged[%d] = %s, want %s", i, merged[i].ID, id)
		}
	}
}

func TestItemFromEvent(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		row     string
		want    models.FeedItem
		wantErr bool
	}{
		{
			name:  "news from postgres",
			table: "news_articles",
			row:   `{"url":"https://x/a","title":"A","summary":"s","source":"Wire","category":"ai","published_at":"2024-06-01T14:00:00.123+00:00"}`,
			want:  models.FeedItem{ID: "news:https://x/a", Type: models.FeedTypeNews, Title: "A", Subtitle: "Wire", Description: "s", URL: "https://x/a", Category: "ai"},
		},
		{
			name:  "paper",
			table: "research_papers",
			row:   `{"arxiv_id":"2401.00001","title":"P","authors":"X","pdf_url":"https://arxiv.org/pdf/2401.00001","published_date":"2024-06-01T14:00:00Z"}`,
			want:  models.FeedItem{ID: "paper:2401.00001", Type: models.FeedTypePaper, Title: "P", Subtitle: "X", URL: "https://arxiv.org/pdf/2401.00001"},
		},
		{
			name:  "model",
			table: "ai_models",
			row:   `{"hub_id":"org/m","name":"m","provider":"org","download_url":"https://huggingface.co/org/m","created_at":"2024-06-01T14:00:00Z"}`,
			want:  models.FeedItem{ID: "model:org/m", Type: models.FeedTypeModel, Title: "m", Subtitle: "org", URL: "https://huggingface.co/org/m"},
		},
		{name: "unknown table", table: "users", row: `{}`, wantErr: true},
		{name: "bad json", table: "news_articles", row: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ItemFromEvent(tt.table, json.RawMessage(tt.row))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Timestamp.Equal(at(2)) && tt.name != "news from postgres" {
				t.Errorf("timestamp = %v, want %v", got.Timestamp, at(2))
			}
			got.Timestamp = time.Time{}
			if got != tt.want {
				t.Errorf("ItemFromEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestItemFromEvent_MissingTimestamp(t *testing.T) {
	item, err := ItemFromEvent("news_articles", json.RawMessage(`{"url":"u","title":"t"}`))
	if err != nil {
		t.Fatal(err)
	}
	if item.Timestamp.IsZero() {
		t.Error("missing timestamp should default to now")
	}
}

func TestLive_SplicesAtHeadWithFilterAndCap(t *testing.T) {
	reader := &fakeReader{
		news:   []models.NewsArticle{{URL: "old", Title: "old", PublishedAt: at(1)}},
		papers: []models.Paper{{ArxivID: "p", PublishedDate: at(0)}},
	}
	svc := NewService(reader, nil, Options{TotalLimit: 2}, testutil.NullLogger())

	live, err := NewLive(context.Background(), svc, "news", testutil.NullLogger())
	if err != nil {
		t.Fatalf("NewLive() error = %v", err)
	}
	if len(live.Items()) != 1 {
		t.Fatalf("seed = %+v", live.Items())
	}

	if live.Insert(models.FeedItem{ID: "paper:x", Type: models.FeedTypePaper}) {
		t.Error("paper should be filtered out of a news list")
	}
	if !live.Insert(models.FeedItem{ID: "news:new1", Type: models.FeedTypeNews, Timestamp: at(2)}) {
		t.Error("news item should be inserted")
	}
	if live.Insert(models.FeedItem{ID: "news:new1", Type: models.FeedTypeNews}) {
		t.Error("duplicate should be ignored")
	}
	live.Insert(models.FeedItem{ID: "news:new2", Type: models.FeedTypeNews, Timestamp: at(3)})

	items := live.Items()
	if len(items) != 2 || items[0].ID != "news:new2" || items[1].ID != "news:new1" {
		t.Errorf("items = %+v", items)
	}
}

func TestLive_InvalidFilter(t *testing.T) {
	if _, err := NewLive(context.Background(), newTestService(&fakeReader{}, nil), "bogus", testutil.NullLogger()); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("error = %v, want ErrInvalidFilter", err)
	}
}

func TestHub_RunAppliesStoreEvents(t *testing.T) {
	store := memstore.New()
	svc := newTestService(store, nil)
	hub := NewHub(svc, testutil.NullLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all, err := hub.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	papers, err := hub.List(ctx, "paper")
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := hub.List(ctx, "all"); again != all {
		t.Error("List() should reuse the seeded list")
	}

	done := make(chan struct{})
	go func() {
		hub.Run(ctx, store.Events())
		close(done)
	}()

	store.UpsertNews(ctx, []models.NewsArticle{{URL: "https://x/1", Title: "Fresh", Source: "Wire", PublishedAt: time.Now()}})

	deadline := time.Now().Add(2 * time.Second)
	for len(all.Items()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if items := all.Items(); len(items) != 1 || items[0].Title != "Fresh" {
		t.Errorf("all list = %+v", items)
	}
	if len(papers.Items()) != 0 {
		t.Errorf("papers list should stay empty, got %+v", papers.Items())
	}

	cancel()
	<-done
}

func TestHub_DispatchDropsBadEvents(t *testing.T) {
	hub := NewHub(newTestService(&fakeReader{}, nil), testutil.NullLogger())
	live, _ := hub.List(context.Background(), "")
	hub.Dispatch(database.InsertEvent{Table: "users", Row: json.RawMessage(`{}`)})
	if len(live.Items()) != 0 {
		t.Error("unknown table should be ignored")
	}
}
