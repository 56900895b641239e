package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/eduvid/internal/domain"
	"go.uber.org/zap"
)

// Registry implements ports.TaskRegistry using an in-memory map.
// Writes are serialized per task; different tasks never contend on the
// same lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *zap.Logger
}

type entry struct {
	mu   sync.Mutex
	task *domain.Task
}

// NewRegistry creates a new in-memory task registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Create stores a new task. Creating the same id twice is a conflict.
func (r *Registry) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[task.ID]; exists {
		r.logger.Warn("duplicate task create",
			zap.String("task_id", task.ID))
		return fmt.Errorf("%w: task %s already exists", domain.ErrRegistryConflict, task.ID)
	}

	r.entries[task.ID] = &entry{task: task.Clone()}
	return nil
}

// Get returns a copy of the task
func (r *Registry) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	e, err := r.lookup(taskID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone(), nil
}

// RequestCancel sets the cancellation flag of a live task. It returns false
// when the task is already terminal.
func (r *Registry) RequestCancel(ctx context.Context, taskID string) (bool, error) {
	e, err := r.lookup(taskID)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.State.IsTerminal() {
		return false, nil
	}
	e.task.CancelRequested = true
	return true, nil
}

// Apply records a status update
func (r *Registry) Apply(ctx context.Context, update domain.StatusUpdate) error {
	e, err := r.lookup(update.TaskID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.task.Clone()
	if err := update.ApplyTo(next); err != nil {
		r.logger.Warn("rejected status update",
			zap.String("task_id", update.TaskID),
			zap.String("current_state", string(e.task.State)),
			zap.String("update_state", string(update.State)),
			zap.Int("update_progress", update.Progress),
			zap.Error(err))
		return err
	}
	e.task = next
	return nil
}

func (r *Registry) lookup(taskID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return e, nil
}
