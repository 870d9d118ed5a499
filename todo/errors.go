package todo

import (
	"errors"
	"fmt"
)

// ErrSkipped is returned when local validation rejects an input. No request
// was sent; callers treat it as a disabled control, not as a failure.
var ErrSkipped = errors.New("input rejected before sending")

// OperationFailedError reports that the endpoint answered an operation with
// an explicit error or without data.
type OperationFailedError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

// IsOperationFailed reports whether err carries an OperationFailedError and
// returns the name of the failed operation.
func IsOperationFailed(err error) (string, bool) {
	var opErr *OperationFailedError
	if errors.As(err, &opErr) {
		return opErr.Operation, true
	}
	return "", false
}
