package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/models"
)

// ErrUnknownWorker is returned by Run for a name no worker answers to
var ErrUnknownWorker = errors.New("unknown worker")

// Settlement statuses
const (
	StatusFulfilled = "fulfilled"
	StatusRejected  = "rejected"
)

// Settlement is the outcome of one worker within a batch
type Settlement struct {
	Worker   string  `json:"worker"`
	Status   string  `json:"status"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
	Duration string  `json:"duration"`
}

// Fulfilled reports whether the worker completed
func (s Settlement) Fulfilled() bool {
	return s.Status == StatusFulfilled
}

// Runner executes workers and isolates their failures from each other
type Runner struct {
	workers    []Worker
	logger     *logging.Logger
	mu         sync.Mutex
	onComplete []func([]Settlement)
}

func NewRunner(logger *logging.Logger, workers ...Worker) *Runner {
	return &Runner{workers: workers, logger: logger}
}

// OnComplete registers a hook called after every RunAll or Run
func (r *Runner) OnComplete(fn func([]Settlement)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = append(r.onComplete, fn)
}

// Names lists the workers in registration order
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.workers))
	for _, w := range r.workers {
		names = append(names, w.Name())
	}
	return names
}

// Sources lists the ingestion sources behind each worker, in registration order
func (r *Runner) Sources() []models.SourceInfo {
	out := []models.SourceInfo{}
	for _, w := range r.workers {
		if src, ok := w.(interface{ Sources() []models.SourceInfo }); ok {
			out = append(out, src.Sources()...)
		}
	}
	return out
}

// RunAll runs every worker concurrently and waits for all of them. The
// settlements are returned in registration order.
func (r *Runner) RunAll(ctx context.Context) []Settlement {
	settlements := make([]Settlement, len(r.workers))

	var wg sync.WaitGroup
	for i, w := range r.workers {
		wg.Add(1)
		go func(i int, w Worker) {
			defer wg.Done()
			settlements[i] = r.settle(ctx, w)
		}(i, w)
	}
	wg.Wait()

	r.logger.Info("Worker batch complete", logging.WithFields(map[string]interface{}{
		"workers":  len(settlements),
		"rejected": countRejected(settlements),
	}))

	r.complete(settlements)
	return settlements
}

// Run runs the named worker alone
func (r *Runner) Run(ctx context.Context, name string) (Settlement, error) {
	for _, w := range r.workers {
		if w.Name() == name {
			s := r.settle(ctx, w)
			r.complete([]Settlement{s})
			return s, nil
		}
	}
	return Settlement{}, fmt.Errorf("%w: %s", ErrUnknownWorker, name)
}

func (r *Runner) complete(settlements []Settlement) {
	r.mu.Lock()
	hooks := append([]func([]Settlement){}, r.onComplete...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(settlements)
	}
}

// settle converts a returned error or panic into a rejected settlement
func (r *Runner) settle(ctx context.Context, w Worker) (s Settlement) {
	start := time.Now()
	s = Settlement{Worker: w.Name()}

	defer func() {
		s.Duration = time.Since(start).Round(time.Millisecond).String()
		if p := recover(); p != nil {
			r.logger.Error("Worker panicked", logging.WithFields(map[string]interface{}{
				"worker": w.Name(),
				"panic":  fmt.Sprint(p),
				"stack":  string(debug.Stack()),
			}))
			s.Status = StatusRejected
			s.Result = nil
			s.Error = fmt.Sprintf("panic: %v", p)
		}
	}()

	result, err := w.Run(ctx)
	if err != nil {
		r.logger.Error("Worker failed", logging.WithFields(map[string]interface{}{
			"worker": w.Name(),
			"error":  err.Error(),
		}))
		s.Status = StatusRejected
		s.Error = err.Error()
		return s
	}

	s.Status = StatusFulfilled
	s.Result = &result
	return s
}

func countRejected(settlements []Settlement) int {
	n := 0
	for _, s := range settlements {
		if !s.Fulfilled() {
			n++
		}
	}
	return n
}

// IngestSummary is the /ingest response body
type IngestSummary struct {
	Ingested IngestCounts `json:"ingested"`
	Errors   []string     `json:"errors"`
}

// IngestCounts holds rows written per content kind
type IngestCounts struct {
	News   int `json:"news"`
	Papers int `json:"papers"`
	Models int `json:"models"`
}

// Summarize folds settlements into per-kind counts. A rejected worker counts
// zero and contributes its error.
func Summarize(settlements []Settlement) IngestSummary {
	summary := IngestSummary{Errors: []string{}}
	for _, s := range settlements {
		if !s.Fulfilled() {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", s.Worker, s.Error))
			continue
		}
		switch s.Worker {
		case NameNews:
			summary.Ingested.News = s.Result.Count
		case NamePapers:
			summary.Ingested.Papers = s.Result.Count
		case NameModels:
			summary.Ingested.Models = s.Result.Count
		}
		summary.Errors = append(summary.Errors, s.Result.Errors...)
	}
	return summary
}
