package imagetask

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"plutus/internal/adapters/redis"
	"plutus/pkg/errors"
)

const (
	taskKeyPrefix = "imagetask:"
	claimTTL      = 3 * time.Minute
)

// RedisStore persists tasks in Redis so polls survive restarts and multiple
// instances share the generation claim.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed task store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Save upserts a task snapshot under its TTL.
func (s *RedisStore) Save(ctx context.Context, task *Task) error {
	return s.client.Set(ctx, taskKeyPrefix+task.ID, task, s.ttl)
}

// Get returns a task, ErrUnknownTask when the key is gone.
func (s *RedisStore) Get(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.client.Get(ctx, taskKeyPrefix+id, &task); err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, errors.Wrapf(errors.ErrUnknownTask, "task %s not found", id)
		}
		return nil, errors.Wrap(err, "load task")
	}
	return &task, nil
}

// TryClaim acquires the generation claim via SETNX. The claim expires on its
// own so a crashed worker cannot wedge a task forever.
func (s *RedisStore) TryClaim(ctx context.Context, id string) (bool, error) {
	return s.client.AcquireLock(ctx, taskKeyPrefix+id, claimTTL)
}

// ReleaseClaim drops the claim.
func (s *RedisStore) ReleaseClaim(ctx context.Context, id string) error {
	return s.client.ReleaseLock(ctx, taskKeyPrefix+id)
}
