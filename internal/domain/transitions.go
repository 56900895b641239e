package domain

import "fmt"

var allowedTransitions = map[TaskState]map[TaskState]struct{}{
	TaskStateQueued: {
		TaskStateProcessing: {},
		TaskStateFailed:     {},
		TaskStateCancelled:  {},
	},
	TaskStateProcessing: {
		TaskStateCompleted: {},
		TaskStateFailed:    {},
		TaskStateCancelled: {},
	},
	TaskStateCompleted: {},
	TaskStateFailed:    {},
	TaskStateCancelled: {},
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCancelled
}

func ValidateTaskState(s TaskState) error {
	if _, ok := allowedTransitions[s]; !ok {
		return fmt.Errorf("invalid task state: %q", s)
	}
	return nil
}

func ValidateTransition(from, to TaskState) error {
	if err := ValidateTaskState(from); err != nil {
		return err
	}
	if err := ValidateTaskState(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid task transition: %s -> %s", from, to)
	}
	return nil
}
