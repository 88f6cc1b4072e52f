package imagetask

import (
	"context"
	"time"
)

// Status is the lifecycle state of an image task.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Task is one asynchronous image generation request. A task is created in
// pending state during a chat turn and resolved later by polling.
type Task struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Status    Status    `json:"status"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists tasks and provides the per-task claim used to keep
// generation exactly-once.
type Store interface {
	// Save upserts a task snapshot.
	Save(ctx context.Context, task *Task) error
	// Get returns a task by id, ErrUnknownTask when absent or expired.
	Get(ctx context.Context, id string) (*Task, error)
	// TryClaim atomically acquires the generation claim for a task.
	TryClaim(ctx context.Context, id string) (bool, error)
	// ReleaseClaim drops a previously acquired claim.
	ReleaseClaim(ctx context.Context, id string) error
}
