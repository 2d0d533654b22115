// Package mockbus is the boundary between intercepted calls and the
// expectation engine.
//
// A Mock owns one Director per method and routes every invocation through a
// middleware chain to them. A Scope owns the mocks created in it, shares a
// global ordering domain between them and verifies them on Close.
//
// Usage:
//
//	scope := mockbus.NewScope()
//	dog := scope.Mock("dog")
//	dog.ShouldReceive("bark").With(2).AndReturn("woof woof").Once()
//
//	result, err := dog.Call("bark", 2)
//	...
//	if err := scope.Close(); err != nil {
//		t.Fatal(err)
//	}
package mockbus

import (
	"context"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/expectation"
)

// =============================================================================
// PROTOCOLS
// =============================================================================

// Invoker dispatches an intercepted call and returns its answer.
type Invoker interface {
	Invoke(ctx context.Context, inv calls.Invocation) (any, error)
}

// InvokerFunc is a function type that implements Invoker.
type InvokerFunc func(ctx context.Context, inv calls.Invocation) (any, error)

// Invoke implements the Invoker interface.
func (f InvokerFunc) Invoke(ctx context.Context, inv calls.Invocation) (any, error) {
	return f(ctx, inv)
}

// Middleware intercepts calls around dispatch.
type Middleware interface {
	// Before is called before the call is dispatched. The returned context
	// is handed to the following middleware and to After. An error aborts
	// the call.
	Before(ctx context.Context, inv calls.Invocation) (context.Context, error)

	// After is called after dispatch, in reverse registration order. A
	// non-nil result replaces the call result; a non-nil error replaces the
	// call error.
	After(ctx context.Context, inv calls.Invocation, result any, err error) (any, error)
}

// Logger is the structured logging surface of mocks and scopes.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type mockNameKey struct{}

// MockName returns the name of the mock dispatching the call carried by ctx.
func MockName(ctx context.Context) string {
	name, _ := ctx.Value(mockNameKey{}).(string)
	return name
}

func withMockName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, mockNameKey{}, name)
}

var (
	_ Invoker              = (*Mock)(nil)
	_ Invoker              = InvokerFunc(nil)
	_ expectation.Recorder = (*Mock)(nil)
)
