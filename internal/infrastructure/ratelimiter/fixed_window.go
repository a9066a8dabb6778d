package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// FixedWindow counts requests per key inside aligned windows of a fixed
// length. Counters for idle keys are swept once per window.
type FixedWindow struct {
	counts      sync.Map // key -> *window
	limit       int64
	length      time.Duration
	now         func() time.Time
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type window struct {
	count   int64        // atomic
	resetAt atomic.Value // time.Time
	mu      sync.Mutex   // held only while rolling over
}

func NewFixedWindow(limit int, length time.Duration) *FixedWindow {
	return newFixedWindow(limit, length, time.Now)
}

func newFixedWindow(limit int, length time.Duration, now func() time.Time) *FixedWindow {
	rl := &FixedWindow{
		limit:       int64(limit),
		length:      length,
		now:         now,
		cleanupTick: time.NewTicker(length),
		done:        make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *FixedWindow) Allow(key string) (bool, time.Duration) {
	now := rl.now()
	nextReset := now.Truncate(rl.length).Add(rl.length)

	val, _ := rl.counts.LoadOrStore(key, &window{})
	w := val.(*window)

	resetAt, ok := w.resetAt.Load().(time.Time)
	if ok && now.Before(resetAt) {
		return rl.take(w, now, resetAt)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// another caller may have rolled the window over while we waited
	if resetAt, ok := w.resetAt.Load().(time.Time); ok && now.Before(resetAt) {
		return rl.take(w, now, resetAt)
	}

	atomic.StoreInt64(&w.count, 1)
	w.resetAt.Store(nextReset)
	return true, 0
}

func (rl *FixedWindow) take(w *window, now, resetAt time.Time) (bool, time.Duration) {
	if atomic.AddInt64(&w.count, 1) > rl.limit {
		atomic.AddInt64(&w.count, -1)
		return false, resetAt.Sub(now)
	}
	return true, 0
}

func (rl *FixedWindow) sweep() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindow) cleanup() {
	now := rl.now()
	rl.counts.Range(func(key, value any) bool {
		if resetAt, ok := value.(*window).resetAt.Load().(time.Time); ok && now.After(resetAt) {
			rl.counts.Delete(key)
		}
		return true
	})
}

func (rl *FixedWindow) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
