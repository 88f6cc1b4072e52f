package imagetask

import (
	"context"
	"sync"
	"time"

	"plutus/pkg/errors"
)

// MemoryStore is the in-process Store used when Redis is not configured.
// Expired tasks are evicted lazily on access.
type MemoryStore struct {
	mu     sync.Mutex
	tasks  map[string]*Task
	claims map[string]bool
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a memory-backed task store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		tasks:  make(map[string]*Task),
		claims: make(map[string]bool),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Save upserts a task snapshot.
func (s *MemoryStore) Save(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// Get returns a copy of the stored task.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownTask, "task %s not found", id)
	}
	if s.now().Sub(task.CreatedAt) > s.ttl {
		delete(s.tasks, id)
		delete(s.claims, id)
		return nil, errors.Wrapf(errors.ErrUnknownTask, "task %s expired", id)
	}

	copied := *task
	return &copied, nil
}

// TryClaim acquires the generation claim for a task.
func (s *MemoryStore) TryClaim(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claims[id] {
		return false, nil
	}
	s.claims[id] = true
	return true, nil
}

// ReleaseClaim drops the claim.
func (s *MemoryStore) ReleaseClaim(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claims, id)
	return nil
}
