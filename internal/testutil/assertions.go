package testutil

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/scopedi"
)

// AssertServiceResolvable checks if a service can be resolved
func AssertServiceResolvable[T any](t *testing.T, r scopedi.Resolver) T {
	t.Helper()
	service, err := scopedi.Resolve[T](r)
	require.NoError(t, err, "failed to resolve service of type %T", *new(T))
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertServiceNotFound checks if a service resolution fails with not found error
func AssertServiceNotFound[T any](t *testing.T, r scopedi.Resolver) {
	t.Helper()
	_, err := scopedi.Resolve[T](r)
	require.Error(t, err)
	assert.True(t, scopedi.IsNotFound(err), "expected service not found error, got: %v", err)
}

// AssertCircular checks that resolving T fails with a circular dependency
// whose endpoints are requested and innermost.
func AssertCircular[T any](t *testing.T, r scopedi.Resolver, requested, innermost reflect.Type) scopedi.CircularDependencyError {
	t.Helper()
	_, err := scopedi.Resolve[T](r)
	require.Error(t, err)

	var circErr scopedi.CircularDependencyError
	require.True(t, errors.As(err, &circErr), "expected circular dependency error, got: %v", err)
	assert.Equal(t, requested, circErr.Requested)
	assert.Equal(t, innermost, circErr.Innermost)
	return circErr
}

// AssertPanicsWithError checks if a function panics with specific error
func AssertPanicsWithError(t *testing.T, expectedError error, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			assert.Fail(t, "function did not panic", msgAndArgs...)
			return
		}

		err, ok := r.(error)
		if !ok {
			assert.Fail(t, "panic value is not an error: %v", r)
			return
		}

		assert.ErrorIs(t, err, expectedError, msgAndArgs...)
	}()
	f()
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t *testing.T, first, second interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}
