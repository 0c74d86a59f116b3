package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownComponent is wrapped when a template invokes a component
	// the registry does not know.
	ErrUnknownComponent = errors.New("cascade: unknown component")

	// ErrUnknownTemplate is wrapped when a component has no template.
	ErrUnknownTemplate = errors.New("cascade: unknown template")

	// ErrRerenderOutOfScope is returned by Rerender when called from a hook
	// on a node that is neither the hook's node nor one of its descendants.
	ErrRerenderOutOfScope = errors.New("cascade: rerender target outside the notifying subtree")

	// ErrReentrancyLimit is returned when re-entrant passes do not settle.
	ErrReentrancyLimit = errors.New("cascade: re-entrant render limit exceeded")

	// ErrDestroyed is returned when mutating a node that was torn down.
	ErrDestroyed = errors.New("cascade: node destroyed")

	// ErrNotRoot is returned when unmounting a node that is not a root.
	ErrNotRoot = errors.New("cascade: node is not a root")

	// ErrInPass is returned when mounting or unmounting from inside a pass.
	ErrInPass = errors.New("cascade: operation not allowed during a render pass")
)

// StructuralError reports a template that cannot be resolved or evaluated.
// It is fatal for the current run.
type StructuralError struct {
	Component string
	Label     string
	Err       error
}

func (e *StructuralError) Error() string {
	if e.Label != "" && e.Label != e.Component {
		return fmt.Sprintf("cascade: structural error in %s (%s): %v", e.Label, e.Component, e.Err)
	}
	return fmt.Sprintf("cascade: structural error in %s: %v", e.Component, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// NotificationError reports a lifecycle hook that returned an error or
// panicked.
type NotificationError struct {
	NodeID uint64
	Label  string
	Hook   Hook
	Err    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("cascade: %s:%s failed: %v", e.Label, e.Hook, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking hook.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// DeprecatedMutationWarning is raised when a node changes its own
// rendering-affecting state inside didInsertElement or didRender. The
// change is applied by a second pass that overwrites the first paint.
type DeprecatedMutationWarning struct {
	NodeID uint64
	Label  string
	Hook   Hook
	Keys   []string
}

func (w *DeprecatedMutationWarning) Error() string {
	return fmt.Sprintf("cascade: %s modified %s inside the %s hook; this schedules a second render and is deprecated",
		w.Label, strings.Join(w.Keys, ", "), w.Hook)
}

// ErrorKind classifies an error for metrics and logs.
func ErrorKind(err error) string {
	var (
		structural   *StructuralError
		notification *NotificationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &structural):
		return "structural"
	case errors.As(err, &notification):
		return "notification"
	case errors.Is(err, ErrReentrancyLimit):
		return "reentrancy"
	case errors.Is(err, ErrRerenderOutOfScope):
		return "scope"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
