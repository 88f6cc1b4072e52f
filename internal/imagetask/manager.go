package imagetask

import (
	"context"
	"time"

	"github.com/google/uuid"

	"plutus/internal/adapters/ai"
	"plutus/internal/metrics"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// Manager owns the image task lifecycle: tasks are created pending during a
// chat turn and generation runs on the first poll that wins the claim.
type Manager struct {
	store  Store
	images ai.ImageProvider
	log    *logger.Logger
}

// NewManager creates a task manager.
func NewManager(store Store, images ai.ImageProvider) (*Manager, error) {
	if store == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "task store is required")
	}
	if images == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "image provider is required")
	}
	return &Manager{
		store:  store,
		images: images,
		log:    logger.Get().With("component", "imagetask"),
	}, nil
}

// Create registers a new pending task for the prompt and returns it.
func (m *Manager) Create(ctx context.Context, prompt string) (*Task, error) {
	if prompt == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prompt is required")
	}

	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, task); err != nil {
		return nil, errors.Wrap(err, "save task")
	}

	m.log.Infow("image task created", "task_id", task.ID)
	return task, nil
}

// Resolve returns the task's current state, running generation on the first
// call that wins the per-task claim. Terminal tasks are returned as-is, so
// repeated polls are idempotent. A poll racing a generation in progress gets
// the pending snapshot back.
func (m *Manager) Resolve(ctx context.Context, id string) (*Task, error) {
	task, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, nil
	}

	claimed, err := m.store.TryClaim(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "claim task")
	}
	if !claimed {
		return task, nil
	}
	defer func() {
		if err := m.store.ReleaseClaim(ctx, id); err != nil {
			m.log.Warnf("release claim for %s: %v", id, err)
		}
	}()

	// Re-read under the claim: a previous holder may have finished between
	// our Get and TryClaim.
	task, err = m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, nil
	}

	return m.generate(ctx, task)
}

func (m *Manager) generate(ctx context.Context, task *Task) (*Task, error) {
	start := time.Now()
	url, err := m.images.GenerateImage(ctx, task.Prompt)
	metrics.ImageGenerationDuration.Observe(time.Since(start).Seconds())
	task.UpdatedAt = time.Now().UTC()
	if err != nil {
		m.log.Errorf("image generation failed for task %s: %v", task.ID, err)
		task.Status = StatusError
		task.Error = "image generation failed"
	} else {
		task.Status = StatusReady
		task.URL = url
		m.log.Infow("image task ready", "task_id", task.ID)
	}

	if saveErr := m.store.Save(ctx, task); saveErr != nil {
		return nil, errors.Wrap(saveErr, "save task result")
	}
	return task, nil
}
