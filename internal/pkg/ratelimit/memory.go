package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
)

// MemoryOptions configures the in-process driver.
type MemoryOptions struct {
	Clock clock.Clocker
}

// Memory is a Limiter backed by a map of timestamp slices under one mutex.
type Memory struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	clock  clock.Clocker
	max    int
	window time.Duration
}

// NewMemory returns an empty Memory limiter.
func NewMemory(cfg Config, opts MemoryOptions) *Memory {
	cfg = cfg.withDefaults()

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Memory{
		hits:   make(map[string][]time.Time),
		clock:  clk,
		max:    cfg.MaxRequests,
		window: cfg.Window,
	}
}

// Allow never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	kept := prune(m.hits[key], now.Add(-m.window))

	if len(kept) >= m.max {
		m.hits[key] = kept
		return false, nil
	}

	m.hits[key] = append(kept, now)
	return true, nil
}

// Len returns the number of tracked keys, stale ones not yet swept included.
func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.hits), nil
}

// Sweep drops keys whose whole history fell out of the window.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.window)
	removed := 0
	for key, ts := range m.hits {
		kept := prune(ts, cutoff)
		if len(kept) == 0 {
			delete(m.hits, key)
			removed++
			continue
		}
		m.hits[key] = kept
	}

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.DebugContext(ctx, "stale rate limit entries swept", "count", n)
			}
		}
	}
}

// prune returns the suffix of ts strictly after cutoff. ts is ascending.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}

	if i == 0 {
		return ts
	}

	return append([]time.Time(nil), ts[i:]...)
}
