package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/eduvid/internal/application/workers"
	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler runs jobs in the background
type Scheduler interface {
	Submit(job workers.Job) error
}

// Dependencies are the collaborators the manager is constructed with
type Dependencies struct {
	Registry  ports.TaskRegistry
	Publisher ports.StatusPublisher
	Cache     ports.Cache
	Graph     ports.KnowledgeGraph
	Content   ports.ContentGenerator
	Renderer  ports.Renderer
	Store     ports.ObjectStore
	Videos    ports.VideoRepository
	Metrics   ports.MetricsCollector
}

// Options tune stage behaviour
type Options struct {
	CacheTTL       time.Duration
	KnowledgeDepth int
	StageTimeout   time.Duration
}

// Manager coordinates video generation tasks
type Manager struct {
	deps      Dependencies
	opts      Options
	scheduler Scheduler
	validator *Validator
	logger    *zap.Logger

	// Tasks with a pipeline currently running in this process
	running sync.Map // map[string]struct{}

	mu     sync.RWMutex
	closed bool
}

// NewManager creates a new orchestrator manager
func NewManager(
	deps Dependencies,
	opts Options,
	scheduler Scheduler,
	validator *Validator,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		deps:      deps,
		opts:      opts,
		scheduler: scheduler,
		validator: validator,
		logger:    logger,
	}
}

// Submit validates a request, records a QUEUED task and schedules its
// pipeline. It returns without waiting for the pipeline to run.
func (m *Manager) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return "", fmt.Errorf("orchestrator: %w", domain.ErrShuttingDown)
	}

	req, err := m.validator.Validate(req)
	if err != nil {
		m.metrics().RecordTaskSubmitted("rejected")
		return "", err
	}

	taskID := uuid.New().String()
	task := domain.NewTask(taskID, req, time.Now())

	if err := m.deps.Registry.Create(ctx, task); err != nil {
		m.logger.Error("failed to create task",
			zap.String("task_id", taskID),
			zap.Error(err))
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	job := workers.Job{
		ID: taskID,
		Run: func(ctx context.Context) {
			m.run(ctx, taskID)
		},
	}
	if err := m.scheduler.Submit(job); err != nil {
		m.logger.Error("failed to schedule task",
			zap.String("task_id", taskID),
			zap.Error(err))
		m.publish(context.WithoutCancel(ctx), domain.StatusUpdate{
			TaskID:    taskID,
			State:     domain.TaskStateFailed,
			Progress:  domain.ProgressFailed,
			Message:   "Error: " + domain.SanitizeError(err),
			Timestamp: time.Now(),
		})
		m.metrics().RecordTaskSubmitted("rejected")
		return "", fmt.Errorf("failed to schedule task: %w", err)
	}

	m.metrics().RecordTaskSubmitted(string(domain.TaskStateQueued))
	m.logger.Info("task submitted",
		zap.String("task_id", taskID),
		zap.String("concept", req.ConceptName),
		zap.String("domain", req.Domain),
		zap.String("difficulty", string(req.DifficultyLevel)))

	return taskID, nil
}

// GetStatus retrieves the current state of a task
func (m *Manager) GetStatus(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.deps.Registry.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Cancel requests cooperative cancellation. It returns false when the task
// is already terminal.
func (m *Manager) Cancel(ctx context.Context, taskID string) (bool, error) {
	ok, err := m.deps.Registry.RequestCancel(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel task: %w", err)
	}

	if ok {
		m.logger.Info("task cancellation requested",
			zap.String("task_id", taskID))
	} else {
		m.logger.Info("task cancellation refused, task already terminal",
			zap.String("task_id", taskID))
	}
	return ok, nil
}

// Shutdown stops accepting new submissions. Running pipelines are drained by
// the worker pool.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	active := 0
	m.running.Range(func(key, value interface{}) bool {
		active++
		return true
	})

	m.logger.Info("orchestrator manager shut down complete",
		zap.Int("active_tasks", active))
	return nil
}

// publish sends an update through the status publisher. It reports false
// when the registry rejected the update, meaning the task is no longer ours
// to drive.
func (m *Manager) publish(ctx context.Context, update domain.StatusUpdate) bool {
	if err := m.deps.Publisher.Publish(ctx, update); err != nil {
		if errors.Is(err, domain.ErrRegistryConflict) {
			m.logger.Warn("status update rejected, stopping pipeline",
				zap.String("task_id", update.TaskID),
				zap.String("status", string(update.State)),
				zap.Error(err))
			return false
		}
		m.logger.Error("failed to publish status update",
			zap.String("task_id", update.TaskID),
			zap.String("status", string(update.State)),
			zap.Int("progress", update.Progress),
			zap.Error(err))
	}
	return true
}

func (m *Manager) metrics() ports.MetricsCollector {
	return m.deps.Metrics
}
