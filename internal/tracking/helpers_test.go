package tracking_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NextID() (int64, error) {
	return s.n.Add(1) + 1000, nil
}

type memCache struct {
	mu          sync.Mutex
	entries     map[string]int64
	failGet     bool
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]int64)}
}

func (c *memCache) Get(_ context.Context, slug string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return 0, false, errors.New("redis down")
	}
	id, ok := c.entries[slug]
	return id, ok, nil
}

func (c *memCache) Set(_ context.Context, slug string, slugID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[slug] = slugID
	return nil
}

func (c *memCache) Invalidate(_ context.Context, slug string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, slug)
	c.invalidated = append(c.invalidated, slug)
	return nil
}

// blockingLogger holds every LogClick until release is closed.
type blockingLogger struct {
	release chan struct{}
	mu      sync.Mutex
	got     []tracking.ClickInput
}

func (l *blockingLogger) LogClick(ctx context.Context, in tracking.ClickInput) error {
	select {
	case <-l.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	l.mu.Lock()
	l.got = append(l.got, in)
	l.mu.Unlock()
	return nil
}

func (l *blockingLogger) inputs() []tracking.ClickInput {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]tracking.ClickInput(nil), l.got...)
}

type failingLogger struct{ calls atomic.Int32 }

func (l *failingLogger) LogClick(context.Context, tracking.ClickInput) error {
	l.calls.Add(1)
	return errors.New("storage unavailable")
}
