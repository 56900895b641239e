package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskState is the lifecycle state of a generation task
type TaskState string

const (
	TaskStateQueued     TaskState = "queued"
	TaskStateProcessing TaskState = "processing"
	TaskStateCompleted  TaskState = "completed"
	TaskStateFailed     TaskState = "failed"
	TaskStateCancelled  TaskState = "cancelled"
)

// Progress milestones reported after each stage.
const (
	ProgressStarted   = 0
	ProgressKnowledge = 20
	ProgressContent   = 40
	ProgressRendered  = 80
	ProgressCompleted = 100

	// ProgressFailed is the sentinel carried by a FAILED update.
	ProgressFailed = -1
)

// Difficulty is the audience level requested for a video
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty parses a difficulty level. Empty input yields the default
// (intermediate).
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DifficultyIntermediate, nil
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty level %q", ErrInvalidRequest, s)
	}
}

// GenerationRequest holds the immutable parameters of a video request
type GenerationRequest struct {
	ConceptName        string     `json:"concept_name"`
	Domain             string     `json:"domain"`
	DifficultyLevel    Difficulty `json:"difficulty_level"`
	CustomRequirements string     `json:"custom_requirements,omitempty"`
}

// Normalize trims the request fields and fills in the default difficulty.
func (r GenerationRequest) Normalize() (GenerationRequest, error) {
	r.ConceptName = strings.TrimSpace(r.ConceptName)
	r.Domain = strings.TrimSpace(r.Domain)
	r.CustomRequirements = strings.TrimSpace(r.CustomRequirements)

	if r.ConceptName == "" {
		return r, fmt.Errorf("%w: concept name cannot be empty", ErrInvalidRequest)
	}
	if r.Domain == "" {
		return r, fmt.Errorf("%w: domain cannot be empty", ErrInvalidRequest)
	}

	d, err := ParseDifficulty(string(r.DifficultyLevel))
	if err != nil {
		return r, err
	}
	r.DifficultyLevel = d
	return r, nil
}

// Task is one unit of pipeline work as recorded in the task registry
type Task struct {
	ID                 string     `json:"task_id"`
	ConceptName        string     `json:"concept_name"`
	Domain             string     `json:"domain"`
	DifficultyLevel    Difficulty `json:"difficulty_level"`
	CustomRequirements string     `json:"custom_requirements,omitempty"`

	State           TaskState  `json:"status"`
	Progress        int        `json:"progress"`
	Message         string     `json:"message"`
	ResultLocation  string     `json:"video_url,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a QUEUED task for a normalized request
func NewTask(id string, req GenerationRequest, now time.Time) *Task {
	return &Task{
		ID:                 id,
		ConceptName:        req.ConceptName,
		Domain:             req.Domain,
		DifficultyLevel:    req.DifficultyLevel,
		CustomRequirements: req.CustomRequirements,
		State:              TaskStateQueued,
		Progress:           ProgressStarted,
		Message:            "Video generation queued",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Request returns the request parameters the task was created from.
func (t *Task) Request() GenerationRequest {
	return GenerationRequest{
		ConceptName:        t.ConceptName,
		Domain:             t.Domain,
		DifficultyLevel:    t.DifficultyLevel,
		CustomRequirements: t.CustomRequirements,
	}
}

// Clone returns a copy safe to hand out of a registry.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// StatusUpdate is a single task transition. It is persisted through the
// registry and forwarded to observers.
type StatusUpdate struct {
	TaskID         string    `json:"task_id"`
	State          TaskState `json:"status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	ResultLocation string    `json:"video_url,omitempty"`
	Timestamp      time.Time `json:"updated_at"`
}

// ApplyTo validates the update against the task's current state and, if it
// is admissible, mutates the task in place.
func (u StatusUpdate) ApplyTo(t *Task) error {
	if u.TaskID != t.ID {
		return fmt.Errorf("%w: update for %s applied to %s", ErrRegistryConflict, u.TaskID, t.ID)
	}
	if t.State.IsTerminal() {
		return fmt.Errorf("%w: task %s already %s", ErrRegistryConflict, t.ID, t.State)
	}
	if u.State != t.State {
		if err := ValidateTransition(t.State, u.State); err != nil {
			return fmt.Errorf("%w: %v", ErrRegistryConflict, err)
		}
	}
	if u.State == TaskStateProcessing && u.Progress < t.Progress {
		return fmt.Errorf("%w: progress regression %d -> %d for task %s",
			ErrRegistryConflict, t.Progress, u.Progress, t.ID)
	}
	if u.ResultLocation != "" && u.State != TaskStateCompleted {
		return fmt.Errorf("%w: result location set on %s update", ErrRegistryConflict, u.State)
	}

	t.State = u.State
	t.Progress = u.Progress
	t.Message = u.Message
	t.ResultLocation = u.ResultLocation
	t.UpdatedAt = u.Timestamp
	if u.State.IsTerminal() {
		at := u.Timestamp
		t.CompletedAt = &at
	}
	return nil
}

// Snapshot expresses the task's current state as a status update.
func (t *Task) Snapshot() StatusUpdate {
	return StatusUpdate{
		TaskID:         t.ID,
		State:          t.State,
		Progress:       t.Progress,
		Message:        t.Message,
		ResultLocation: t.ResultLocation,
		Timestamp:      t.UpdatedAt,
	}
}
