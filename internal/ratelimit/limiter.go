package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// RateLimiter spaces out requests to the same upstream host. Wait returns
// ctx.Err() if ctx ends before the slot opens.
type RateLimiter interface {
	Wait(ctx context.Context, host string) error
}

// Limiter is an in-process per-host limiter enforcing a minimum interval
// between requests.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter allowing one request per host every minInterval
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request to host may proceed now. A denied call
// does not move the host's slot.
func (l *Limiter) Allow(host string) bool {
	host = HostKey(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.hosts[host]; ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait blocks until a request to host is permitted and reserves the slot.
// A cancelled wait hands its slot back unless a later caller queued behind it.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	host = HostKey(host)

	l.mu.Lock()
	now := time.Now()
	next := now
	last, hadLast := l.hosts[host]
	if hadLast {
		if earliest := last.Add(l.minInterval); earliest.After(now) {
			next = earliest
		}
	}
	l.hosts[host] = next
	l.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		if l.hosts[host].Equal(next) {
			if hadLast {
				l.hosts[host] = last
			} else {
				delete(l.hosts, host)
			}
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Reset forgets the last request time for host
func (l *Limiter) Reset(host string) {
	host = HostKey(host)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// ResetAll forgets every host
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}

// HostKey reduces a feed URL to its host. Bare host names pass through.
func HostKey(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return raw
}

var _ RateLimiter = (*Limiter)(nil)
