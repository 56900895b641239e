package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTask(id string) *domain.Task {
	return domain.NewTask(id, domain.GenerationRequest{
		ConceptName:     "Binary Search",
		Domain:          "Algorithms",
		DifficultyLevel: domain.DifficultyBeginner,
	}, time.Now())
}

func update(id string, state domain.TaskState, progress int) domain.StatusUpdate {
	return domain.StatusUpdate{TaskID: id, State: state, Progress: progress, Message: string(state), Timestamp: time.Now()}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Create(ctx, newTask("t1")))
	assert.ErrorIs(t, r.Create(ctx, newTask("t1")), domain.ErrRegistryConflict)

	task, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateQueued, task.State)
	assert.Equal(t, 0, task.Progress)

	// Returned tasks are copies.
	task.State = domain.TaskStateFailed
	again, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateQueued, again.State)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_ApplyLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Create(ctx, newTask("t1")))

	for _, p := range []int{0, 20, 40, 80} {
		require.NoError(t, r.Apply(ctx, update("t1", domain.TaskStateProcessing, p)))
	}
	done := update("t1", domain.TaskStateCompleted, 100)
	done.ResultLocation = "https://bucket/videos/t1/output.mp4"
	require.NoError(t, r.Apply(ctx, done))

	// Terminal tasks are immutable.
	err := r.Apply(ctx, update("t1", domain.TaskStateFailed, domain.ProgressFailed))
	assert.ErrorIs(t, err, domain.ErrRegistryConflict)

	task, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateCompleted, task.State)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, done.ResultLocation, task.ResultLocation)
}

func TestRegistry_RequestCancel(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Create(ctx, newTask("live")))
	require.NoError(t, r.Create(ctx, newTask("done")))

	ok, err := r.RequestCancel(ctx, "live")
	require.NoError(t, err)
	assert.True(t, ok)

	task, err := r.Get(ctx, "live")
	require.NoError(t, err)
	assert.True(t, task.CancelRequested)

	require.NoError(t, r.Apply(ctx, update("done", domain.TaskStateProcessing, 0)))
	require.NoError(t, r.Apply(ctx, update("done", domain.TaskStateFailed, domain.ProgressFailed)))

	ok, err = r.RequestCancel(ctx, "done")
	require.NoError(t, err)
	assert.False(t, ok)

	task, err = r.Get(ctx, "done")
	require.NoError(t, err)
	assert.False(t, task.CancelRequested)
	assert.Equal(t, domain.TaskStateFailed, task.State)

	ok, err = r.RequestCancel(ctx, "missing")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_ConcurrentWritesAcrossTasks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(zap.NewNop())

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		require.NoError(t, r.Create(ctx, newTask(id)))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			for _, p := range []int{0, 20, 40, 80} {
				assert.NoError(t, r.Apply(ctx, update(id, domain.TaskStateProcessing, p)))
			}
		}(id)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := r.Get(ctx, id)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		task, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 80, task.Progress)
	}
}
