package view

import (
	"errors"
	"fmt"

	"github.com/ziyixi/tasksync/todo"
	"github.com/ziyixi/tasksync/transport"
)

// ErrInFlight is returned when the same action is already pending for the
// entity. No request is sent.
var ErrInFlight = errors.New("action already in flight for this entity")

// RefetchError reports that a mutation succeeded but the list could not be
// refreshed afterwards. The mutation result is returned alongside it.
type RefetchError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *RefetchError) Error() string {
	return fmt.Sprintf("%s succeeded but the task list could not be refreshed: %v", e.Operation, e.Err)
}

func (e *RefetchError) Unwrap() error {
	return e.Err
}

// Message renders err as the inline message shown next to the control that
// issued the action. Skipped and in-flight actions render as "".
func Message(err error) string {
	if err == nil || errors.Is(err, todo.ErrSkipped) || errors.Is(err, ErrInFlight) {
		return ""
	}
	var refetchErr *RefetchError
	if errors.As(err, &refetchErr) {
		return refetchErr.Error()
	}
	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		return fmt.Sprintf("%s failed: %v", transportErr.Operation, transportErr.Err)
	}
	return err.Error()
}
