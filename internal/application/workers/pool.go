package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/internal/ports"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Submit after Shutdown has begun. It matches
// domain.ErrShuttingDown.
var ErrPoolClosed = fmt.Errorf("worker pool closed: %w", domain.ErrShuttingDown)

// Job is a unit of background work
type Job struct {
	ID  string
	Run func(ctx context.Context)
}

// Pool manages a pool of worker goroutines
type Pool struct {
	size    int
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	jobs    chan Job
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	started bool
	closed  bool
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	current string
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	queueSize int,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		metrics: metrics,
		logger:  logger,
		jobs:    make(chan Job, queueSize),
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	// Create and start workers
	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}

	// Start health monitor
	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit enqueues a job without blocking. It fails with domain.ErrQueueFull
// when the queue is at capacity.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		p.metrics.SetQueueDepth(len(p.jobs))
		return nil
	default:
		return fmt.Errorf("%w: %d jobs pending", domain.ErrQueueFull, cap(p.jobs))
	}
}

// Shutdown stops accepting jobs and waits for queued and in-flight jobs to
// finish. When ctx expires first, in-flight jobs are cancelled and the jobs
// still queued run with a cancelled context. A pool that was never started
// runs its queued jobs with a cancelled context before returning.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.mu.Lock()
	started := p.started
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	// Stop health monitor
	p.health.Stop()

	if !started {
		p.cancel()
		p.drainUnstarted()
		return nil
	}

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return fmt.Errorf("shutdown timeout: in-flight jobs cancelled")
	}
}

// drainUnstarted hands every queued job its cancelled context so the job can
// record why it never ran.
func (p *Pool) drainUnstarted() {
	w := &worker{id: "shutdown", pool: p, status: WorkerStatusIdle}
	var drained int
	for job := range p.jobs {
		w.execute(job)
		drained++
	}
	if drained > 0 {
		p.logger.Warn("worker pool shut down before start, queued jobs cancelled",
			zap.Int("jobs", drained))
	}
}

// QueueDepth returns the number of jobs waiting for a worker
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for job := range w.pool.jobs {
		w.pool.metrics.SetQueueDepth(len(w.pool.jobs))
		w.execute(job)
	}

	w.mu.Lock()
	w.status = WorkerStatusStopped
	w.mu.Unlock()
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

// execute runs a single job, recovering from panics
func (w *worker) execute(job Job) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.current = job.ID
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error("job panicked",
				zap.String("worker_id", w.id),
				zap.String("job_id", job.ID),
				zap.Any("panic", r))
		}

		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.current = ""
		w.mu.Unlock()
	}()

	job.Run(w.pool.ctx)
}
