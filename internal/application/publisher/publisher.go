package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"go.uber.org/zap"
)

// Publisher persists status updates and fans them out to observers
type Publisher struct {
	registry ports.TaskRegistry
	stream   ports.EventStream
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	mu        sync.Mutex
	observers map[string]ports.Observer
}

// NewPublisher creates a new status publisher. stream may be nil.
func NewPublisher(
	registry ports.TaskRegistry,
	stream ports.EventStream,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Publisher {
	return &Publisher{
		registry:  registry,
		stream:    stream,
		metrics:   metrics,
		logger:    logger,
		observers: make(map[string]ports.Observer),
	}
}

// Publish applies the update to the registry and then forwards it. Only a
// registry failure is returned; an update the registry rejects is not
// forwarded.
func (p *Publisher) Publish(ctx context.Context, update domain.StatusUpdate) error {
	if err := p.registry.Apply(ctx, update); err != nil {
		return fmt.Errorf("failed to persist status update: %w", err)
	}

	p.forward(update)

	if p.stream != nil {
		if err := p.stream.Publish(ctx, update); err != nil {
			p.logger.Error("failed to mirror status update",
				zap.String("task_id", update.TaskID),
				zap.String("status", string(update.State)),
				zap.Error(err))
		}
	}

	return nil
}

// Bind registers obs as the observer of taskID. An observer already bound to
// the task is replaced and closed.
func (p *Publisher) Bind(taskID string, obs ports.Observer) {
	p.mu.Lock()
	prev := p.observers[taskID]
	p.observers[taskID] = obs
	count := len(p.observers)
	p.mu.Unlock()

	p.metrics.SetBoundObservers(count)

	if prev != nil && prev != obs {
		p.logger.Info("observer replaced",
			zap.String("task_id", taskID))
		_ = prev.Close()
	}
}

// Unbind removes obs if it is still the observer bound to taskID. It reports
// whether obs was removed.
func (p *Publisher) Unbind(taskID string, obs ports.Observer) bool {
	p.mu.Lock()
	current, ok := p.observers[taskID]
	removed := ok && current == obs
	if removed {
		delete(p.observers, taskID)
	}
	count := len(p.observers)
	p.mu.Unlock()

	if removed {
		p.metrics.SetBoundObservers(count)
	}
	return removed
}

// Bound reports whether an observer is bound to taskID
func (p *Publisher) Bound(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.observers[taskID]
	return ok
}

// forward delivers update to the bound observer, if any. The observer is
// dropped on send failure and after a terminal update.
func (p *Publisher) forward(update domain.StatusUpdate) {
	p.mu.Lock()
	obs := p.observers[update.TaskID]
	p.mu.Unlock()

	if obs == nil {
		return
	}

	if err := obs.Send(update); err != nil {
		p.logger.Warn("dropping observer after send failure",
			zap.String("task_id", update.TaskID),
			zap.Error(err))
		if p.Unbind(update.TaskID, obs) {
			_ = obs.Close()
		}
		return
	}

	if update.State.IsTerminal() {
		if p.Unbind(update.TaskID, obs) {
			_ = obs.Close()
		}
	}
}
