package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/ratelimit"
)

const defaultHubBaseURL = "https://huggingface.co"

// HubFetcher discovers models from the hub catalog API. One Fetch merges
// the global download ranking, the per-pipeline rankings and the like
// ranking into one set keyed by hub id.
type HubFetcher struct {
	query   ModelQuery
	limiter ratelimit.RateLimiter
	config  FetcherConfig
	client  *http.Client
}

type hubModel struct {
	ID           string   `json:"id"`
	ModelID      string   `json:"modelId"`
	Author       string   `json:"author"`
	Downloads    int64    `json:"downloads"`
	Likes        int64    `json:"likes"`
	Tags         []string `json:"tags"`
	PipelineTag  string   `json:"pipeline_tag"`
	CreatedAt    string   `json:"createdAt"`
	LastModified string   `json:"lastModified"`
}

func NewHubFetcher(query ModelQuery, limiter ratelimit.RateLimiter, config FetcherConfig) *HubFetcher {
	if query.BaseURL == "" {
		query.BaseURL = defaultHubBaseURL
	}
	return &HubFetcher{
		query:   query,
		limiter: limiter,
		config:  config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func (f *HubFetcher) Name() string {
	return "model hub"
}

func (f *HubFetcher) SourceInfo() models.SourceInfo {
	return models.SourceInfo{
		ID:      "model-hub",
		Name:    f.Name(),
		URL:     f.query.BaseURL,
		Kind:    models.FeedTypeModel,
		Enabled: true,
	}
}

// Fetch runs every configured query. Models from the queries that succeeded
// are returned alongside a joined error for the ones that failed.
func (f *HubFetcher) Fetch(ctx context.Context) ([]models.AIModel, error) {
	merged := make(map[string]models.AIModel)
	var errs []error

	run := func(label string, params url.Values) {
		found, err := f.list(ctx, params)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			return
		}
		for _, m := range found {
			merged[m.HubID] = m
		}
	}

	if f.query.TopLimit > 0 {
		run("top downloads", f.params("downloads", f.query.TopLimit, ""))
	}
	for _, tag := range f.query.PipelineTags {
		if f.query.PerTagLimit > 0 {
			run("pipeline "+tag, f.params("downloads", f.query.PerTagLimit, tag))
		}
	}
	if f.query.LikedLimit > 0 {
		run("top likes", f.params("likes", f.query.LikedLimit, ""))
	}

	out := make([]models.AIModel, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HubID < out[j].HubID })

	return out, errors.Join(errs...)
}

func (f *HubFetcher) params(sortBy string, limit int, pipelineTag string) url.Values {
	params := url.Values{}
	params.Set("sort", sortBy)
	params.Set("direction", "-1")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("full", "true")
	if pipelineTag != "" {
		params.Set("pipeline_tag", pipelineTag)
	}
	return params
}

func (f *HubFetcher) list(ctx context.Context, params url.Values) ([]models.AIModel, error) {
	endpoint := strings.TrimRight(f.query.BaseURL, "/") + "/api/models?" + params.Encode()
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("waiting for %s: %w", endpoint, err)
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("model hub API returned status %d", resp.StatusCode)
	}

	var payload []hubModel
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}

	now := time.Now().UTC()
	out := make([]models.AIModel, 0, len(payload))
	for _, m := range payload {
		if model, ok := f.toModel(m, now); ok {
			out = append(out, model)
		}
	}
	return out, nil
}

func (f *HubFetcher) toModel(m hubModel, now time.Time) (models.AIModel, bool) {
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = strings.TrimSpace(m.ModelID)
	}
	if id == "" {
		return models.AIModel{}, false
	}

	name, provider := id, m.Author
	if i := strings.Index(id, "/"); i >= 0 {
		name = id[i+1:]
		if provider == "" {
			provider = id[:i]
		}
	}
	if provider == "" {
		provider = "community"
	}

	createdAt := parseHubTime(m.CreatedAt, now)
	updatedAt := parseHubTime(m.LastModified, createdAt)

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	return models.AIModel{
		HubID:       id,
		Name:        Truncate(name, MaxTitleLength),
		Provider:    provider,
		Description: Truncate(describeModel(m.PipelineTag, provider, m.Downloads), MaxSummaryLength),
		Category:    models.CategoryForPipelineTag(m.PipelineTag),
		PipelineTag: m.PipelineTag,
		Tags:        tags,
		Downloads:   m.Downloads,
		Likes:       m.Likes,
		DownloadURL: strings.TrimRight(f.query.BaseURL, "/") + "/" + id,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, true
}

func describeModel(pipelineTag, provider string, downloads int64) string {
	task := strings.ReplaceAll(pipelineTag, "-", " ")
	if task == "" {
		task = "general"
	}
	return fmt.Sprintf("%s model by %s with %d downloads", task, provider, downloads)
}

func parseHubTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	return fallback
}
