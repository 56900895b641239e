package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	tasksSubmitted    *prometheus.CounterVec
	tasksFinished     *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
	activeTasks       prometheus.Gauge
	queueDepth        prometheus.Gauge
	boundObservers    prometheus.Gauge
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered with
// reg. A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		tasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduvid_tasks_submitted_total",
				Help: "Total number of generation requests submitted",
			},
			[]string{"status"},
		),
		tasksFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduvid_tasks_finished_total",
				Help: "Total number of tasks that reached a terminal state",
			},
			[]string{"state"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eduvid_task_duration_seconds",
				Help:    "Pipeline duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"state"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eduvid_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage", "outcome"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eduvid_cache_lookups_total",
				Help: "Total number of knowledge cache lookups",
			},
			[]string{"result"},
		),
		activeTasks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_active_tasks",
				Help: "Number of pipelines currently running",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_queue_depth",
				Help: "Number of tasks waiting for a worker",
			},
		),
		boundObservers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_bound_observers",
				Help: "Number of live status observers",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eduvid_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordTaskSubmitted counts a submission by its outcome
func (c *Collector) RecordTaskSubmitted(status string) {
	c.tasksSubmitted.WithLabelValues(status).Inc()
}

// RecordTaskFinished records a terminal state and the pipeline duration
func (c *Collector) RecordTaskFinished(state string, duration time.Duration) {
	c.tasksFinished.WithLabelValues(state).Inc()
	c.taskDuration.WithLabelValues(state).Observe(duration.Seconds())
}

// ObserveStage records the duration of one stage call
func (c *Collector) ObserveStage(stage, outcome string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) AddActiveTasks(delta int) {
	c.activeTasks.Add(float64(delta))
}

func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

func (c *Collector) SetBoundObservers(count int) {
	c.boundObservers.Set(float64(count))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
