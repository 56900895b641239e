package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when a concept, domain, task or video does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollaborator wraps any failure of an external stage call.
	ErrCollaborator = errors.New("collaborator failure")

	// ErrRegistryConflict marks double creates and transitions out of a
	// terminal state.
	ErrRegistryConflict = errors.New("registry conflict")

	ErrInvalidRequest = errors.New("invalid request")
	ErrQueueFull      = errors.New("worker queue full")

	// ErrShuttingDown is returned by submissions made after shutdown began.
	ErrShuttingDown = errors.New("shutting down")
)

const maxFailureMessageLen = 200

// SanitizeError reduces an error to a short single-line description that is
// safe to show to API clients.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = strings.TrimSpace(msg[:i])
	}
	if len(msg) > maxFailureMessageLen {
		cut := maxFailureMessageLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

// StageError is a collaborator failure at a named pipeline stage. It matches
// both ErrCollaborator and the underlying error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}
