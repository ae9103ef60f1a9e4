// Package roster holds the in-memory activity catalogue.
package roster

import (
	"context"
	"sync"

	"example.com/mergington/internal/domain"
)

// InMemoryStore keeps activities in a map guarded by a single lock. Every
// roster mutation holds the write lock for its whole check-then-change step.
type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewInMemoryStore constructs a store holding copies of the given activities.
func NewInMemoryStore(activities map[string]domain.Activity) *InMemoryStore {
	store := &InMemoryStore{activities: make(map[string]domain.Activity, len(activities))}
	for name, activity := range activities {
		store.activities[name] = activity.Clone()
	}
	return store
}

// NewSeededStore constructs a store populated with the school's activity list.
func NewSeededStore() *InMemoryStore {
	return NewInMemoryStore(Seed())
}

// Snapshot implements domain.Store.
func (s *InMemoryStore) Snapshot(ctx context.Context) map[string]domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Activity, len(s.activities))
	for name, activity := range s.activities {
		out[name] = activity.Clone()
	}
	return out
}

// Update implements domain.Store. Names are matched exactly. When fn returns
// an error the record is left untouched.
func (s *InMemoryStore) Update(ctx context.Context, name string, fn func(*domain.Activity) error) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}

	working := activity.Clone()
	if err := fn(&working); err != nil {
		return domain.Activity{}, err
	}
	s.activities[name] = working
	return working.Clone(), nil
}
