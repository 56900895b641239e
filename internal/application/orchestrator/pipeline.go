package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"go.uber.org/zap"
)

// run drives one task through the pipeline. It is the only writer of the
// task's status while it runs.
func (m *Manager) run(ctx context.Context, taskID string) {
	if _, loaded := m.running.LoadOrStore(taskID, struct{}{}); loaded {
		m.logger.Warn("pipeline already running for task",
			zap.String("task_id", taskID))
		return
	}
	defer m.running.Delete(taskID)

	m.metrics().AddActiveTasks(1)
	defer m.metrics().AddActiveTasks(-1)

	start := time.Now()
	p := &pipelineRun{m: m, taskID: taskID, pubCtx: context.WithoutCancel(ctx)}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("pipeline panic recovered",
				zap.String("task_id", taskID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			p.fail(fmt.Errorf("internal error: %v", r))
		}
		if p.final != "" {
			m.metrics().RecordTaskFinished(string(p.final), time.Since(start))
		}
	}()

	task, err := m.deps.Registry.Get(p.pubCtx, taskID)
	if err != nil {
		p.fail(fmt.Errorf("failed to load task: %w", err))
		return
	}
	req := task.Request()

	if p.cancelled() {
		return
	}
	// Jobs drained after the pool's shutdown deadline arrive with a
	// cancelled context.
	if err := ctx.Err(); err != nil {
		p.fail(fmt.Errorf("pipeline interrupted before start: %w", err))
		return
	}
	if !p.advance(domain.ProgressStarted, "Starting video generation") {
		return
	}

	knowledge, ok := runStage(ctx, p, "knowledge", domain.ProgressKnowledge, "Retrieved concept knowledge",
		func(ctx context.Context) (*domain.ConceptContext, error) {
			return m.retrieveKnowledge(ctx, req)
		})
	if !ok {
		return
	}

	content, ok := runStage(ctx, p, "content", domain.ProgressContent, "Generated slides and script",
		func(ctx context.Context) (*domain.Content, error) {
			return m.generateContent(ctx, knowledge, req)
		})
	if !ok {
		return
	}

	videoPath, ok := runStage(ctx, p, "render", domain.ProgressRendered, "Created video animation",
		func(ctx context.Context) (string, error) {
			return m.renderVideo(ctx, content, taskID)
		})
	if !ok {
		return
	}

	if p.cancelled() {
		return
	}
	stageStart := time.Now()
	stageCtx, cancel := m.stageContext(ctx)
	url, err := m.storeVideo(stageCtx, taskID, req, content, videoPath)
	cancel()
	if err != nil {
		m.metrics().ObserveStage("storage", "error", time.Since(stageStart))
		p.fail(&domain.StageError{Stage: "storage", Err: err})
		return
	}
	m.metrics().ObserveStage("storage", "success", time.Since(stageStart))

	p.finish(domain.StatusUpdate{
		TaskID:         taskID,
		State:          domain.TaskStateCompleted,
		Progress:       domain.ProgressCompleted,
		Message:        "Video generation completed",
		ResultLocation: url,
		Timestamp:      time.Now(),
	})

	m.logger.Info("video generation completed",
		zap.String("task_id", taskID),
		zap.String("video_url", url),
		zap.Duration("duration", time.Since(start)))
}

// runStage checks for cancellation, runs one stage under the stage deadline
// and reports its milestone. ok is false when the pipeline must stop.
func runStage[T any](
	ctx context.Context,
	p *pipelineRun,
	stage string,
	milestone int,
	message string,
	fn func(ctx context.Context) (T, error),
) (result T, ok bool) {
	if p.cancelled() {
		return result, false
	}

	stageStart := time.Now()
	stageCtx, cancel := p.m.stageContext(ctx)
	defer cancel()

	result, err := fn(stageCtx)
	if err == nil && stageCtx.Err() != nil {
		err = stageCtx.Err()
	}
	if err != nil {
		p.m.metrics().ObserveStage(stage, "error", time.Since(stageStart))
		p.fail(&domain.StageError{Stage: stage, Err: err})
		return result, false
	}
	p.m.metrics().ObserveStage(stage, "success", time.Since(stageStart))

	return result, p.advance(milestone, message)
}

func (m *Manager) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.StageTimeout)
}

// pipelineRun carries the bookkeeping of a single run.
type pipelineRun struct {
	m        *Manager
	taskID   string
	pubCtx   context.Context
	progress int
	final    domain.TaskState
}

// advance publishes a PROCESSING milestone.
func (p *pipelineRun) advance(progress int, message string) bool {
	ok := p.m.publish(p.pubCtx, domain.StatusUpdate{
		TaskID:    p.taskID,
		State:     domain.TaskStateProcessing,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
	if ok {
		p.progress = progress
	}
	return ok
}

// cancelled polls the registry's cancel flag and, if it is set, moves the
// task to CANCELLED. A registry read failure counts as not cancelled.
func (p *pipelineRun) cancelled() bool {
	task, err := p.m.deps.Registry.Get(p.pubCtx, p.taskID)
	if err != nil {
		p.m.logger.Warn("failed to read cancel flag",
			zap.String("task_id", p.taskID),
			zap.Error(err))
		return false
	}
	if task.State.IsTerminal() {
		p.m.logger.Warn("task reached a terminal state outside the pipeline",
			zap.String("task_id", p.taskID),
			zap.String("status", string(task.State)))
		return true
	}
	if !task.CancelRequested {
		return false
	}

	p.m.logger.Info("task cancelled",
		zap.String("task_id", p.taskID),
		zap.Int("progress", task.Progress))
	p.finish(domain.StatusUpdate{
		TaskID:    p.taskID,
		State:     domain.TaskStateCancelled,
		Progress:  task.Progress,
		Message:   "Video generation cancelled",
		Timestamp: time.Now(),
	})
	return true
}

// fail moves the task to FAILED with a sanitized message.
func (p *pipelineRun) fail(err error) {
	p.m.logger.Error("video generation failed",
		zap.String("task_id", p.taskID),
		zap.Int("progress", p.progress),
		zap.Bool("not_found", errors.Is(err, domain.ErrNotFound)),
		zap.Error(err))
	p.finish(domain.StatusUpdate{
		TaskID:    p.taskID,
		State:     domain.TaskStateFailed,
		Progress:  domain.ProgressFailed,
		Message:   "Error: " + domain.SanitizeError(err),
		Timestamp: time.Now(),
	})
}

func (p *pipelineRun) finish(update domain.StatusUpdate) {
	if p.m.publish(p.pubCtx, update) {
		p.final = update.State
	}
}
