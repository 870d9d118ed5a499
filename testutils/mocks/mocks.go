// Package mocks provides mock implementations for testing
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/transport"
)

// MockTransport is a mock implementation of todo.Transport
type MockTransport struct {
	mock.Mock
}

// Execute records the request and returns the configured result
func (m *MockTransport) Execute(ctx context.Context, req transport.Request) (gjson.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return gjson.Result{}, args.Error(1)
	}
	return args.Get(0).(gjson.Result), args.Error(1)
}

// ResetSession records the call
func (m *MockTransport) ResetSession() {
	m.Called()
}

// Data builds the result the transport would hand back for raw JSON
func Data(raw string) gjson.Result {
	return gjson.Parse(raw)
}

// OperationIs matches a request by operation name
func OperationIs(name string) interface{} {
	return mock.MatchedBy(func(req transport.Request) bool {
		return req.Operation.Name == name
	})
}
