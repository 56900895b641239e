package workers

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically samples the pool and publishes its state to the
// metrics collector.
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// HealthStatus is a point-in-time view of the worker pool
type HealthStatus struct {
	TotalWorkers   int           `json:"total_workers"`
	IdleWorkers    int           `json:"idle_workers"`
	BusyWorkers    int           `json:"busy_workers"`
	StoppedWorkers int           `json:"stopped_workers"`
	QueueDepth     int           `json:"queue_depth"`
	QueueCapacity  int           `json:"queue_capacity"`
	InFlight       []InFlightJob `json:"in_flight,omitempty"`
	Healthy        bool          `json:"healthy"`
	Timestamp      time.Time     `json:"timestamp"`
}

// InFlightJob describes a job a worker is currently running
type InFlightJob struct {
	JobID    string        `json:"job_id"`
	WorkerID string        `json:"worker_id"`
	Running  time.Duration `json:"running_ns"`
}

// Saturated reports whether the next Submit would be rejected
func (s *HealthStatus) Saturated() bool {
	return s.QueueCapacity > 0 && s.QueueDepth >= s.QueueCapacity
}

// NewHealthMonitor creates a monitor sampling every interval. A non-positive
// interval disables sampling; GetStatus still works.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic sampling
func (h *HealthMonitor) Start() {
	if h.interval <= 0 {
		return
	}
	h.startOnce.Do(func() {
		go h.loop()
	})
}

// Stop ends periodic sampling
func (h *HealthMonitor) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

func (h *HealthMonitor) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.sample()
		}
	}
}

func (h *HealthMonitor) sample() {
	status := h.GetStatus()

	h.pool.metrics.RecordWorkerPoolStatus(status.IdleWorkers, status.BusyWorkers, status.StoppedWorkers)
	h.pool.metrics.SetQueueDepth(status.QueueDepth)

	fields := []zap.Field{
		zap.Int("total", status.TotalWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Int("queue_depth", status.QueueDepth),
		zap.Int("queue_capacity", status.QueueCapacity),
	}
	if len(status.InFlight) > 0 {
		oldest := status.InFlight[0]
		fields = append(fields,
			zap.String("oldest_job", oldest.JobID),
			zap.Duration("oldest_running", oldest.Running))
	}

	switch {
	case !status.Healthy:
		h.logger.Warn("worker pool is unhealthy", fields...)
	case status.Saturated():
		h.logger.Warn("generation queue is full, new requests are being rejected", fields...)
	default:
		h.logger.Debug("worker pool health check", fields...)
	}
}

// GetStatus returns the current health status. In-flight jobs are ordered
// longest running first.
func (h *HealthMonitor) GetStatus() *HealthStatus {
	now := time.Now()
	status := &HealthStatus{
		QueueDepth:    h.pool.QueueDepth(),
		QueueCapacity: cap(h.pool.jobs),
		Timestamp:     now,
	}

	h.pool.mu.RLock()
	for _, w := range h.pool.workers {
		if w == nil {
			continue
		}
		status.TotalWorkers++

		w.mu.RLock()
		switch w.status {
		case WorkerStatusIdle:
			status.IdleWorkers++
		case WorkerStatusBusy:
			status.BusyWorkers++
			status.InFlight = append(status.InFlight, InFlightJob{
				JobID:    w.current,
				WorkerID: w.id,
				Running:  now.Sub(w.lastJob),
			})
		case WorkerStatusStopped:
			status.StoppedWorkers++
		}
		w.mu.RUnlock()
	}
	h.pool.mu.RUnlock()

	sort.Slice(status.InFlight, func(i, j int) bool {
		return status.InFlight[i].Running > status.InFlight[j].Running
	})

	status.Healthy = status.TotalWorkers > 0 && status.StoppedWorkers == 0
	return status
}

// IsHealthy reports whether every worker is alive
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}
