// Package workers pulls external sources into the content tables.
//
// Each worker walks its sources sequentially. A failing source adds one
// labeled error to the worker's Result and the worker moves on; partial
// failure is data, not an error return.
package workers

import (
	"context"
	"fmt"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/sources"
)

// Worker names accepted by the cron endpoint
const (
	NameNews    = "news"
	NamePapers  = "papers"
	NameModels  = "models"
	NameMetrics = "metrics"
)

// ContentSink receives normalized content. Each method returns the number of
// rows written.
type ContentSink interface {
	UpsertNews(ctx context.Context, articles []models.NewsArticle) (int, error)
	UpsertPapers(ctx context.Context, papers []models.Paper) (int, error)
	UpsertModels(ctx context.Context, items []models.AIModel) (int, error)
}

// MetricsStore computes and persists dashboard snapshots
type MetricsStore interface {
	Compute(ctx context.Context) (*models.MetricsSnapshot, error)
	Save(ctx context.Context, snap *models.MetricsSnapshot) error
}

// Result is what one worker run produced
type Result struct {
	Worker string   `json:"worker"`
	Count  int      `json:"count"`
	Errors []string `json:"errors"`
}

func (r *Result) addError(label string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", label, err))
}

// Worker is one ingestion job
type Worker interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// NewsWorker ingests every configured news feed
type NewsWorker struct {
	fetchers []sources.NewsFetcher
	sink     ContentSink
	logger   *logging.Logger
}

func NewNewsWorker(fetchers []sources.NewsFetcher, sink ContentSink, logger *logging.Logger) *NewsWorker {
	return &NewsWorker{fetchers: fetchers, sink: sink, logger: logger}
}

func (w *NewsWorker) Name() string { return NameNews }

func (w *NewsWorker) Sources() []models.SourceInfo {
	out := make([]models.SourceInfo, 0, len(w.fetchers))
	for _, f := range w.fetchers {
		out = append(out, f.SourceInfo())
	}
	return out
}

func (w *NewsWorker) Run(ctx context.Context) (Result, error) {
	result := Result{Worker: NameNews, Errors: []string{}}

	for _, f := range w.fetchers {
		if err := ctx.Err(); err != nil {
			result.addError(f.Name(), err)
			continue
		}

		articles, err := f.Fetch(ctx)
		if err != nil {
			w.logger.Warn("Failed to fetch news source", logging.WithFields(map[string]interface{}{
				"source": f.Name(),
				"error":  err.Error(),
			}))
			result.addError(f.Name(), err)
			continue
		}

		n, err := w.sink.UpsertNews(ctx, articles)
		if err != nil {
			result.addError(f.Name(), err)
			continue
		}
		result.Count += n

		w.logger.Debug("Ingested news source", logging.WithFields(map[string]interface{}{
			"source":  f.Name(),
			"fetched": len(articles),
			"written": n,
		}))
	}

	return result, nil
}

// PaperWorker ingests every configured arXiv category feed
type PaperWorker struct {
	fetchers []sources.PaperFetcher
	sink     ContentSink
	logger   *logging.Logger
}

func NewPaperWorker(fetchers []sources.PaperFetcher, sink ContentSink, logger *logging.Logger) *PaperWorker {
	return &PaperWorker{fetchers: fetchers, sink: sink, logger: logger}
}

func (w *PaperWorker) Name() string { return NamePapers }

func (w *PaperWorker) Sources() []models.SourceInfo {
	out := make([]models.SourceInfo, 0, len(w.fetchers))
	for _, f := range w.fetchers {
		out = append(out, f.SourceInfo())
	}
	return out
}

func (w *PaperWorker) Run(ctx context.Context) (Result, error) {
	result := Result{Worker: NamePapers, Errors: []string{}}

	for _, f := range w.fetchers {
		if err := ctx.Err(); err != nil {
			result.addError(f.Name(), err)
			continue
		}

		papers, err := f.Fetch(ctx)
		if err != nil {
			w.logger.Warn("Failed to fetch paper feed", logging.WithFields(map[string]interface{}{
				"source": f.Name(),
				"error":  err.Error(),
			}))
			result.addError(f.Name(), err)
			continue
		}

		n, err := w.sink.UpsertPapers(ctx, papers)
		if err != nil {
			result.addError(f.Name(), err)
			continue
		}
		result.Count += n
	}

	return result, nil
}

// ModelWorker runs model hub discovery and writes the merged set once
type ModelWorker struct {
	fetcher sources.ModelFetcher
	sink    ContentSink
	logger  *logging.Logger
}

func NewModelWorker(fetcher sources.ModelFetcher, sink ContentSink, logger *logging.Logger) *ModelWorker {
	return &ModelWorker{fetcher: fetcher, sink: sink, logger: logger}
}

func (w *ModelWorker) Name() string { return NameModels }

func (w *ModelWorker) Sources() []models.SourceInfo {
	return []models.SourceInfo{w.fetcher.SourceInfo()}
}

// Run upserts whatever discovery returned even when some hub queries failed
func (w *ModelWorker) Run(ctx context.Context) (Result, error) {
	result := Result{Worker: NameModels, Errors: []string{}}
	if w.fetcher == nil {
		return result, nil
	}

	found, err := w.fetcher.Fetch(ctx)
	if err != nil {
		w.logger.Warn("Model discovery incomplete", logging.WithFields(map[string]interface{}{
			"error": err.Error(),
			"found": len(found),
		}))
		result.addError(w.fetcher.Name(), err)
	}
	if len(found) == 0 {
		return result, nil
	}

	n, err := w.sink.UpsertModels(ctx, found)
	if err != nil {
		result.addError(w.fetcher.Name(), err)
		return result, nil
	}
	result.Count = n
	return result, nil
}

// MetricsWorker recomputes and stores the dashboard snapshot
type MetricsWorker struct {
	store  MetricsStore
	logger *logging.Logger
}

func NewMetricsWorker(store MetricsStore, logger *logging.Logger) *MetricsWorker {
	return &MetricsWorker{store: store, logger: logger}
}

func (w *MetricsWorker) Name() string { return NameMetrics }

func (w *MetricsWorker) Run(ctx context.Context) (Result, error) {
	result := Result{Worker: NameMetrics, Errors: []string{}}

	snap, err := w.store.Compute(ctx)
	if err != nil {
		result.addError("compute", err)
		return result, nil
	}
	if err := w.store.Save(ctx, snap); err != nil {
		result.addError("save", err)
		return result, nil
	}
	result.Count = 1
	return result, nil
}
