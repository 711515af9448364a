package schedule

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid field on one task.
type FieldError struct {
	TaskID string `json:"task_id"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("task %q: %s %s", e.TaskID, e.Field, e.Reason)
}

// ValidationError aggregates every problem found in a snapshot. The engine
// assumes valid input; callers run ValidateTasks at the boundary before
// handing a snapshot to Schedule.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "invalid task snapshot: " + strings.Join(parts, "; ")
}

// ValidateTasks checks field-level preconditions: unique ids, nonnegative
// durations, progress within 0-100, recognized statuses, and no
// self-dependencies. Returns nil when the snapshot is clean.
func ValidateTasks(tasks []TaskInput) error {
	var errs []FieldError
	seen := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		if t.ID == "" {
			errs = append(errs, FieldError{TaskID: t.ID, Field: "id", Reason: "must not be empty"})
			continue
		}
		if seen[t.ID] {
			errs = append(errs, FieldError{TaskID: t.ID, Field: "id", Reason: "duplicated in snapshot"})
		}
		seen[t.ID] = true

		if t.Duration < 0 {
			errs = append(errs, FieldError{TaskID: t.ID, Field: "duration", Reason: "must be nonnegative"})
		}
		if t.Progress < 0 || t.Progress > 100 {
			errs = append(errs, FieldError{TaskID: t.ID, Field: "progress", Reason: "must be within 0-100"})
		}
		if !KnownStatus(t.Status) {
			errs = append(errs, FieldError{TaskID: t.ID, Field: "status", Reason: fmt.Sprintf("unknown value %q", t.Status)})
		}
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				errs = append(errs, FieldError{TaskID: t.ID, Field: "dependencies", Reason: "task depends on itself"})
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
