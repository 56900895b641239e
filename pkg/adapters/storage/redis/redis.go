package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxTxAttempts bounds the optimistic retry loop of a single write
const maxTxAttempts = 16

// Registry implements ports.TaskRegistry using Redis.
//
// Each task is one JSON value. Writes run as WATCH/MULTI transactions on the
// task key so that concurrent writers (including other orchestrator
// instances) never lose a cancellation request or overwrite a newer state.
type Registry struct {
	client    *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

// NewRegistry creates a new Redis task registry. A zero retention keeps
// records until they are removed externally.
func NewRegistry(client *redis.Client, retention time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		client:    client,
		logger:    logger,
		retention: retention,
	}
}

// Create stores a new task. Creating the same id twice is a conflict.
func (r *Registry) Create(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	created, err := r.client.SetNX(ctx, getTaskKey(task.ID), data, r.retention).Result()
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	if !created {
		r.logger.Warn("duplicate task create",
			zap.String("task_id", task.ID))
		return fmt.Errorf("%w: task %s already exists", domain.ErrRegistryConflict, task.ID)
	}

	r.logger.Debug("task created",
		zap.String("task_id", task.ID))
	return nil
}

// Get retrieves a task
func (r *Registry) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := r.client.Get(ctx, getTaskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return decodeTask(data)
}

// RequestCancel sets the cancellation flag of a live task
func (r *Registry) RequestCancel(ctx context.Context, taskID string) (bool, error) {
	accepted := false
	err := r.update(ctx, taskID, func(task *domain.Task) (bool, error) {
		if task.State.IsTerminal() {
			accepted = false
			return false, nil
		}
		accepted = true
		if task.CancelRequested {
			return false, nil
		}
		task.CancelRequested = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// Apply records a status update
func (r *Registry) Apply(ctx context.Context, update domain.StatusUpdate) error {
	return r.update(ctx, update.TaskID, func(task *domain.Task) (bool, error) {
		if err := update.ApplyTo(task); err != nil {
			r.logger.Warn("rejected status update",
				zap.String("task_id", update.TaskID),
				zap.String("current_state", string(task.State)),
				zap.String("update_state", string(update.State)),
				zap.Int("update_progress", update.Progress),
				zap.Error(err))
			return false, err
		}
		return true, nil
	})
}

// update runs mutate inside an optimistic transaction on the task key.
// mutate reports whether the task changed and needs to be written back.
func (r *Registry) update(ctx context.Context, taskID string, mutate func(*domain.Task) (bool, error)) error {
	key := getTaskKey(taskID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to get task: %w", err)
		}

		task, err := decodeTask(data)
		if err != nil {
			return err
		}

		changed, err := mutate(task)
		if err != nil || !changed {
			return err
		}

		next, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("task write contended, retrying",
				zap.String("task_id", taskID),
				zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}

	return fmt.Errorf("failed to update task %s: too much contention", taskID)
}

func decodeTask(data []byte) (*domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// getTaskKey returns the Redis key for a task record
func getTaskKey(taskID string) string {
	return fmt.Sprintf("eduvid:task:%s", taskID)
}
