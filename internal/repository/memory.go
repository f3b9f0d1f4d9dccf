package repository

import (
	"context"
	"sync"
	"time"

	"venueq/internal/models"
)

// MemoryStateRepository is the in-process fallback behind the Redis
// repository. State entries honor the same TTL, so a vendor's stale sort
// preference expires instead of living until the next restart.
type MemoryStateRepository struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[int64]stateEntry
	rates  map[string]rateWindow
}

type stateEntry struct {
	state     *models.OperatorState
	expiresAt time.Time
}

type rateWindow struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl:    ttl,
		states: make(map[int64]stateEntry),
		rates:  make(map[string]rateWindow),
	}
}

func (r *MemoryStateRepository) GetState(_ context.Context, vendorID int64) (*models.OperatorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.states[vendorID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.states, vendorID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemoryStateRepository) SetState(_ context.Context, state *models.OperatorState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.VendorID] = stateEntry{
		state:     state,
		expiresAt: time.Now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryStateRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	w, ok := r.rates[key]
	if !ok || now.After(w.expiresAt) {
		w = rateWindow{expiresAt: now.Add(window)}
	}
	w.count++
	r.rates[key] = w

	return w.count <= limit, nil
}
