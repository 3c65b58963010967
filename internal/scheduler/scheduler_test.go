package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/testutil"
	"github.com/sriramsowmithri9807/Griva-sub000/internal/workers"
)

type countingRunner struct {
	calls int32
	block chan struct{}
	mu    sync.Mutex
	ctxs  []context.Context
}

func (r *countingRunner) RunAll(ctx context.Context) []workers.Settlement {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.ctxs = append(r.ctxs, ctx)
	r.mu.Unlock()
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}
	return []workers.Settlement{{Worker: "news", Status: workers.StatusFulfilled, Result: &workers.Result{Worker: "news", Count: 1}}}
}

func (r *countingRunner) Names() []string { return []string{"news"} }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduler_FiresImmediatelyThenOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 30*time.Millisecond, testutil.NullLogger())

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 1 })
	waitFor(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 3 })

	status := s.Status()
	if !status.Running || status.Runs < 3 || status.LastRunAt == nil || len(status.LastRun) != 1 {
		t.Errorf("Status() = %+v", status)
	}
	if status.Interval != "30ms" || status.Workers[0] != "news" {
		t.Errorf("Status() interval/workers = %s %v", status.Interval, status.Workers)
	}
}

func TestScheduler_StartDoesNotBlock(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(runner, time.Hour, testutil.NullLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() blocked on the first batch")
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&runner.calls) == 1 })
	close(runner.block)
	s.Stop()
}

func TestScheduler_StopHaltsTicks(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, 20*time.Millisecond, testutil.NullLogger())

	s.Start(context.Background())
	waitFor(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 2 })
	s.Stop()

	after := atomic.LoadInt32(&runner.calls)
	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&runner.calls); got != after {
		t.Errorf("runs after Stop = %d, want %d", got, after)
	}
	if s.Status().Running {
		t.Error("Status().Running should be false after Stop")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.ctxs[0].Err() == nil {
		t.Error("batch context should be cancelled by Stop")
	}

	s.Stop()
}

func TestScheduler_StopCancelsInFlightBatch(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(runner, time.Hour, testutil.NullLogger())

	s.Start(context.Background())
	waitFor(t, func() bool { return atomic.LoadInt32(&runner.calls) == 1 })

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return while a batch was running")
	}
}

func TestScheduler_RecordManualRun(t *testing.T) {
	s := New(&countingRunner{}, 0, testutil.NullLogger())

	s.Record([]workers.Settlement{{Worker: "papers", Status: workers.StatusRejected, Error: "x"}})

	status := s.Status()
	if status.Running || status.Runs != 1 || status.LastRun[0].Worker != "papers" {
		t.Errorf("Status() = %+v", status)
	}
	if status.Interval != "5m0s" {
		t.Errorf("default interval = %s, want 5m0s", status.Interval)
	}
}
