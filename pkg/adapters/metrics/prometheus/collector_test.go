package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTaskSubmitted("queued")
	c.RecordTaskSubmitted("queued")
	c.RecordTaskFinished("completed", 3*time.Second)
	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.AddActiveTasks(2)
	c.AddActiveTasks(-1)
	c.RecordWorkerPoolStatus(3, 2, 0)
	c.ObserveStage("knowledge", "success", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tasksSubmitted.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeTasks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.workerPoolBusy))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stageDuration))
}
