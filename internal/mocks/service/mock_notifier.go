// Package service holds testify mocks of the domain service interfaces.
package service

import (
	"context"

	"acmauth/internal/domain/service"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock type for the service.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

var _ service.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a MockNotifier whose expectations are asserted on test cleanup.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockNotifier_Expecter wraps the mock with typed expectation helpers.
type MockNotifier_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation helpers.
func (_m *MockNotifier) EXPECT() *MockNotifier_Expecter {
	return &MockNotifier_Expecter{mock: &_m.Mock}
}

// Send provides a mock function with given fields: ctx, msg
func (_m *MockNotifier) Send(ctx context.Context, msg service.Message) error {
	ret := _m.Called(ctx, msg)

	if fn, ok := ret.Get(0).(func(context.Context, service.Message) error); ok {
		return fn(ctx, msg)
	}

	return ret.Error(0)
}

// MockNotifier_Send_Call is the typed call returned by the Send expectation.
type MockNotifier_Send_Call struct {
	*mock.Call
}

// Send is a helper method to define mock.On call
//   - ctx context.Context
//   - msg service.Message
func (_e *MockNotifier_Expecter) Send(ctx any, msg any) *MockNotifier_Send_Call {
	return &MockNotifier_Send_Call{Call: _e.mock.On("Send", ctx, msg)}
}

// Run registers fn to be called with the typed arguments.
func (_c *MockNotifier_Send_Call) Run(run func(ctx context.Context, msg service.Message)) *MockNotifier_Send_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(service.Message))
	})

	return _c
}

// Return sets the value returned by the call.
func (_c *MockNotifier_Send_Call) Return(err error) *MockNotifier_Send_Call {
	_c.Call.Return(err)

	return _c
}

// Maybe marks the call as optional.
func (_c *MockNotifier_Send_Call) Maybe() *MockNotifier_Send_Call {
	_c.Call.Maybe()

	return _c
}

// Times sets how many times the call is expected.
func (_c *MockNotifier_Send_Call) Times(n int) *MockNotifier_Send_Call {
	_c.Call.Times(n)

	return _c
}
