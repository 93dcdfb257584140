package taskgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateTask is returned by AddTask for an already registered name.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrInvalidTask is returned by AddTask for malformed input.
	ErrInvalidTask = errors.New("invalid task")
	// ErrUnresolvedDependency is returned by Init when a dependency names a
	// task that was never added.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrCycleDetected is returned by Init when the dependencies form a cycle.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrUnknownTask is returned for names absent from the registry.
	ErrUnknownTask = errors.New("unknown task")
	// ErrTaskStillBlocked is returned by MarkDone for a task with unmet
	// dependencies.
	ErrTaskStillBlocked = errors.New("task still blocked")
	// ErrAlreadyDone is returned by MarkDone for a completed task.
	ErrAlreadyDone = errors.New("task already done")

	// ErrFinalized is returned by AddTask once Init has been called.
	ErrFinalized = errors.New("graph is finalized")
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("graph already initialized")
	// ErrNotInitialized is returned by scheduling calls made before a
	// successful Init.
	ErrNotInitialized = errors.New("graph not initialized")
)

// GraphError carries the details of a failed graph operation. It unwraps to
// one of the package sentinels, so callers match it with errors.Is.
type GraphError struct {
	Kind error
	// Task is the task the operation was about, if any.
	Task string
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Task != "" {
		fmt.Fprintf(&sb, ": task %q", e.Task)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

func (e *GraphError) Unwrap() error { return e.Kind }

func newError(kind error, task string, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &GraphError{Kind: kind, Task: task, Msg: msg}
}

func cycleError(path []string) error {
	return &GraphError{Kind: ErrCycleDetected, Msg: strings.Join(path, " -> ")}
}
