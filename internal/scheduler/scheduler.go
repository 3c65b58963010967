package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

// BatchRunner runs every ingestion worker once
type BatchRunner interface {
	RunAll(ctx context.Context) []workers.Settlement
	Names() []string
}

// Status describes the schedule and the most recent batch
type Status struct {
	Running   bool                 `json:"running"`
	Interval  string               `json:"interval"`
	Workers   []string             `json:"workers"`
	Runs      int64                `json:"runs"`
	LastRunAt *time.Time           `json:"lastRunAt,omitempty"`
	LastRun   []workers.Settlement `json:"lastRun,omitempty"`
}

// Scheduler fires all workers once at start and then on every interval.
// Overlapping runs are allowed; upserts keep them idempotent.
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	logger   *logging.Logger

	mu       sync.RWMutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	runs     int64
	lastRun  []workers.Settlement
	lastTime *time.Time
}

func New(runner BatchRunner, interval time.Duration, logger *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the loop and returns immediately. The first batch runs in
// the background. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.logger.Info("Scheduler started", logging.WithFields(map[string]interface{}{
		"interval": s.interval.String(),
		"workers":  s.runner.Names(),
	}))

	s.wg.Add(1)
	go s.loop(loopCtx)
}

// Stop cancels the loop and waits for an in-flight batch to return. No
// batch starts after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a tick and a cancel can be ready together
			if ctx.Err() != nil {
				return
			}
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	settlements := s.runner.RunAll(ctx)
	s.Record(settlements)
}

// Record stores a batch outcome. Manual triggers report through it too.
func (s *Scheduler) Record(settlements []workers.Settlement) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	s.lastRun = settlements
	s.lastTime = &now
}

// Status returns a snapshot of the schedule
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:  s.running,
		Interval: s.interval.String(),
		Workers:  s.runner.Names(),
		Runs:     s.runs,
		LastRun:  append([]workers.Settlement(nil), s.lastRun...),
	}
	if s.lastTime != nil {
		t := *s.lastTime
		status.LastRunAt = &t
	}
	return status
}
