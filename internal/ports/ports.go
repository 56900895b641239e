// Package ports declares the interfaces between the pipeline core and its
// infrastructure: the task registry, cache, status stream, observers,
// metrics, and the four external stage collaborators.
package ports

import (
	"context"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
)

// TaskRegistry records the lifecycle of every generation task.
//
// Create fails with domain.ErrRegistryConflict when the id already exists.
// Get and RequestCancel report unknown ids with domain.ErrNotFound.
// Apply is the single authoritative write path and is only called by the
// status publisher; an inadmissible update leaves the task untouched and
// returns an error wrapping domain.ErrRegistryConflict.
type TaskRegistry interface {
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	RequestCancel(ctx context.Context, taskID string) (bool, error)
	Apply(ctx context.Context, update domain.StatusUpdate) error
}

// Cache memoizes opaque payloads by key. A miss is reported as ok == false
// with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// StatusPublisher persists a status update and forwards it to observers.
type StatusPublisher interface {
	Publish(ctx context.Context, update domain.StatusUpdate) error
}

// EventStream mirrors status updates to out-of-process consumers
type EventStream interface {
	Publish(ctx context.Context, update domain.StatusUpdate) error
	Close() error
}

// Observer receives live status updates for one task
type Observer interface {
	Send(update domain.StatusUpdate) error
	Close() error
}

// KnowledgeGraph retrieves concept context. It wraps domain.ErrNotFound when
// the concept/domain pair does not exist.
type KnowledgeGraph interface {
	Fetch(ctx context.Context, conceptName, domainName string, depth int) (*domain.ConceptContext, error)
}

// ContentGenerator turns concept context into slides and narration
type ContentGenerator interface {
	Generate(ctx context.Context, concept *domain.ConceptContext, req domain.GenerationRequest) (*domain.Content, error)
}

// Renderer produces one playable video file and returns its local path
type Renderer interface {
	Render(ctx context.Context, content *domain.Content, taskID string) (string, error)
}

// ObjectStore uploads a local file and returns its public URL. Delete is
// used to roll back an upload whose catalogue record could not be written.
type ObjectStore interface {
	Upload(ctx context.Context, filePath, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// VideoFilter narrows a catalogue listing
type VideoFilter struct {
	Domain string
	Limit  int
	Offset int
}

// VideoRepository is the relational catalogue of finished videos
type VideoRepository interface {
	Insert(ctx context.Context, record *domain.VideoRecord) error
	Get(ctx context.Context, id string) (*domain.VideoRecord, error)
	List(ctx context.Context, filter VideoFilter) ([]*domain.VideoRecord, error)
	Delete(ctx context.Context, id string) error
}

// MetricsCollector records pipeline metrics
type MetricsCollector interface {
	RecordTaskSubmitted(status string)
	RecordTaskFinished(state string, duration time.Duration)
	ObserveStage(stage, outcome string, duration time.Duration)
	RecordCacheLookup(hit bool)
	AddActiveTasks(delta int)
	SetQueueDepth(depth int)
	SetBoundObservers(count int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}

// ConceptSearcher looks up concepts by free text
type ConceptSearcher interface {
	Search(ctx context.Context, query, domainName string, limit int) ([]domain.Concept, error)
}
