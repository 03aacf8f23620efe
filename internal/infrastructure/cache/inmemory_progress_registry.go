package cache

import (
	"context"
	"sync"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/shared"
)

// DefaultProgressTTL is how long a scan snapshot stays pollable after its last update
const DefaultProgressTTL = 24 * time.Hour

// progressEntry is a stored snapshot with expiration
type progressEntry struct {
	progress  *scan.Progress
	expiresAt time.Time
}

// InMemoryProgressRegistry implements scan.Registry using an in-memory map.
// It lives for the whole process and is emptied only by expiry or Close.
type InMemoryProgressRegistry struct {
	mu        sync.RWMutex
	entries   map[string]progressEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryProgressRegistry creates a registry and starts its cleanup goroutine
func NewInMemoryProgressRegistry(ttl time.Duration) *InMemoryProgressRegistry {
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	r := &InMemoryProgressRegistry{
		entries:  make(map[string]progressEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Save stores a copy of p
func (r *InMemoryProgressRegistry) Save(_ context.Context, p *scan.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[p.TaskID] = progressEntry{
		progress:  p.Clone(),
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

// Get returns a copy of the snapshot
func (r *InMemoryProgressRegistry) Get(_ context.Context, taskID string) (*scan.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[taskID]
	if !ok || r.now().After(e.expiresAt) {
		return nil, shared.ErrNotFound
	}
	return e.progress.Clone(), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (r *InMemoryProgressRegistry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
	})
	return nil
}

func (r *InMemoryProgressRegistry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

// cleanup removes expired snapshots
func (r *InMemoryProgressRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, e := range r.entries {
		if now.After(e.expiresAt) {
			delete(r.entries, id)
		}
	}
}

// Size returns the number of stored snapshots
func (r *InMemoryProgressRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var _ scan.Registry = (*InMemoryProgressRegistry)(nil)
