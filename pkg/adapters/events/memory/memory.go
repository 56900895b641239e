package memory

import (
	"context"
	"sync"

	"github.com/aescanero/eduvid/internal/domain"
)

// StatusStream implements ports.EventStream by recording updates in memory.
// This is for testing purposes only
type StatusStream struct {
	mu      sync.Mutex
	updates []domain.StatusUpdate
	err     error
}

// NewStatusStream creates a new in-memory status stream
func NewStatusStream() *StatusStream {
	return &StatusStream{}
}

// FailWith makes every following Publish return err
func (s *StatusStream) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Publish records the update
func (s *StatusStream) Publish(ctx context.Context, update domain.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, update)
	return nil
}

// Updates returns the recorded updates for a task, in publish order
func (s *StatusStream) Updates(taskID string) []domain.StatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.StatusUpdate
	for _, u := range s.updates {
		if u.TaskID == taskID {
			out = append(out, u)
		}
	}
	return out
}

// Close clears the recorded updates
func (s *StatusStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = nil
	return nil
}
