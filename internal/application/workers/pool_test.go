package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/aescanero/eduvid/pkg/adapters/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(size, queue int) *Pool {
	return NewPool(size, queue, metrics.Nop{}, zap.NewNop(), 0)
}

func TestPool_RunsJobs(t *testing.T) {
	p := newTestPool(3, 10)
	require.NoError(t, p.Start())

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(Job{ID: "job", Run: func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}}))
	}
	wg.Wait()

	assert.Equal(t, int32(10), ran.Load())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_QueueFull(t *testing.T) {
	p := newTestPool(1, 1)
	require.NoError(t, p.Start())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Job{ID: "blocker", Run: func(ctx context.Context) {
		close(started)
		<-release
	}}))
	<-started

	require.NoError(t, p.Submit(Job{ID: "queued", Run: func(ctx context.Context) {}}))
	err := p.Submit(Job{ID: "overflow", Run: func(ctx context.Context) {}})
	assert.ErrorIs(t, err, domain.ErrQueueFull)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_RecoversFromPanics(t *testing.T) {
	p := newTestPool(1, 4)
	require.NoError(t, p.Start())

	done := make(chan struct{})
	require.NoError(t, p.Submit(Job{ID: "panics", Run: func(ctx context.Context) { panic("boom") }}))
	require.NoError(t, p.Submit(Job{ID: "after", Run: func(ctx context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	p := newTestPool(1, 8)
	require.NoError(t, p.Start())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{ID: "job", Run: func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}}))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
	assert.ErrorIs(t, p.Submit(Job{ID: "late", Run: func(ctx context.Context) {}}), ErrPoolClosed)

	status := p.Health().GetStatus()
	assert.Equal(t, 1, status.StoppedWorkers)
	assert.False(t, status.Healthy)
}

func TestPool_ShutdownTimeoutCancelsInFlight(t *testing.T) {
	p := newTestPool(1, 1)
	require.NoError(t, p.Start())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, p.Submit(Job{ID: "slow", Run: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, p.Shutdown(ctx))
	<-cancelled
}

func TestHealthMonitor_Status(t *testing.T) {
	p := newTestPool(2, 4)
	require.NoError(t, p.Start())
	defer func() { _ = p.Shutdown(context.Background()) }()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(Job{ID: "busy", Run: func(ctx context.Context) {
		close(started)
		<-release
	}}))
	<-started

	status := p.Health().GetStatus()
	assert.Equal(t, 2, status.TotalWorkers)
	assert.Equal(t, 1, status.BusyWorkers)
	assert.Equal(t, 1, status.IdleWorkers)
	assert.Equal(t, 4, status.QueueCapacity)
	assert.True(t, status.Healthy)
	assert.False(t, status.Saturated())
	require.Len(t, status.InFlight, 1)
	assert.Equal(t, "busy", status.InFlight[0].JobID)

	close(release)
}

func TestHealthStatus_Saturated(t *testing.T) {
	assert.True(t, (&HealthStatus{QueueDepth: 3, QueueCapacity: 3}).Saturated())
	assert.False(t, (&HealthStatus{QueueDepth: 2, QueueCapacity: 3}).Saturated())
	assert.False(t, (&HealthStatus{}).Saturated())
}

func TestPool_ShutdownBeforeStartCancelsQueuedJobs(t *testing.T) {
	p := newTestPool(1, 2)

	var mu sync.Mutex
	var errs []error
	for i := 0; i < 2; i++ {
		require.NoError(t, p.Submit(Job{ID: "queued", Run: func(ctx context.Context) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, ctx.Err())
		}}))
	}

	require.NoError(t, p.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 0, p.QueueDepth())
	assert.ErrorIs(t, p.Start(), ErrPoolClosed)
	assert.ErrorIs(t, p.Submit(Job{ID: "late", Run: func(ctx context.Context) {}}), domain.ErrShuttingDown)
}
