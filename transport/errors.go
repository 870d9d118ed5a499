package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoData is returned when a response carries neither errors nor the
// expected result field.
var ErrNoData = errors.New("response contained no data")

// Error is a failure to reach the endpoint or to read its response.
type Error struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("transport error in %s: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ResponseError represents errors reported by the GraphQL endpoint.
type ResponseError struct {
	Operation string
	Messages  []string
	HTTPCode  int
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("graphql error in %s: %s (http: %d)", e.Operation, strings.Join(e.Messages, "; "), e.HTTPCode)
}
