package scopedi_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/internal/testutil"
)

func TestScope_Creation(t *testing.T) {
	t.Run("creates scope with context", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		type testKeyType struct{}
		var testKey = testKeyType{}
		ctx := context.WithValue(context.Background(), testKey, "test-value")

		scope := provider.CreateScope(ctx)
		assert.NotNil(t, scope)
		assert.False(t, scope.IsDisposed())
		assert.NotEmpty(t, scope.ID())
		assert.Equal(t, scope.ID(), scope.Provider().ID())
		assert.True(t, scope.Provider().IsScoped())
		assert.Same(t, scope, scope.Provider().Scope())
		assert.False(t, provider.IsScoped())
		assert.Nil(t, provider.Scope())

		assert.Equal(t, "test-value", scope.Context().Value(testKey))

		t.Cleanup(func() {
			require.NoError(t, scope.Close())
		})
	})

	t.Run("creates scope with nil context", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)

		//nolint:staticcheck // nil context is documented as Background
		scope := provider.CreateScope(nil)
		assert.NotNil(t, scope.Context())
		require.NoError(t, scope.Close())
	})

	t.Run("scope from a closed provider is disposed", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		require.NoError(t, provider.Close())

		scope := provider.CreateScope(context.Background())
		assert.True(t, scope.IsDisposed())
		assert.Error(t, scope.Context().Err())

		_, err := scope.Get(reflect.TypeOf(&testutil.Config{}))
		assert.ErrorIs(t, err, scopedi.ErrProviderDisposed)
		require.NoError(t, scope.Close())
	})

	t.Run("scopes created from a scope are siblings", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		outer := provider.CreateScope(context.Background())
		defer outer.Close()

		inner := outer.Provider().CreateScope(context.Background())
		defer inner.Close()

		w1 := testutil.AssertServiceResolvable[*testutil.Worker](t, outer.Provider())
		w2 := testutil.AssertServiceResolvable[*testutil.Worker](t, inner.Provider())
		testutil.AssertDifferentInstances(t, w1, w2)

		require.NoError(t, outer.Close())
		testutil.AssertServiceResolvable[*testutil.Worker](t, inner.Provider())
	})

	t.Run("scope resolves like its provider", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		scope := provider.CreateScope(context.Background())
		defer scope.Close()

		w := testutil.AssertServiceResolvable[*testutil.Worker](t, scope)
		assert.Same(t, w, testutil.AssertServiceResolvable[*testutil.Worker](t, scope.Provider()))
		assert.True(t, scope.Contains(reflect.TypeOf(&testutil.Worker{})))
	})
}

func TestScope_Context(t *testing.T) {
	t.Run("scope is recoverable from its context", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		scope := provider.CreateScope(context.Background())
		defer scope.Close()

		got, err := scopedi.ScopeFromContext(scope.Context())
		require.NoError(t, err)
		assert.Same(t, scope, got)
	})

	t.Run("missing scope", func(t *testing.T) {
		t.Parallel()

		_, err := scopedi.ScopeFromContext(context.Background())
		assert.ErrorIs(t, err, scopedi.ErrScopeNotInContext)
	})

	t.Run("closed scope", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		scope := provider.CreateScope(context.Background())
		ctx := scope.Context()
		require.NoError(t, scope.Close())

		_, err := scopedi.ScopeFromContext(ctx)
		assert.ErrorIs(t, err, scopedi.ErrScopeDisposed)
		assert.Error(t, ctx.Err())
	})

	t.Run("cancelling the parent context closes the scope", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		ctx, cancel := context.WithCancel(context.Background())
		scope := provider.CreateScope(ctx)

		cancel()

		assert.Eventually(t, scope.IsDisposed, time.Second, 5*time.Millisecond)
	})
}

func TestScope_Close(t *testing.T) {
	t.Run("closes scoped and transient instances in reverse order", func(t *testing.T) {
		t.Parallel()

		log := &testutil.DisposalLog{}
		type Session struct{ *testutil.TestDisposable }
		type Request struct {
			*testutil.TestDisposable
			Session *Session
		}

		c := testutil.NewCollection(t).
			AddScoped(func() *Session { return &Session{testutil.NewTestDisposable("session", log)} }).
			AddTransient(func(s *Session) *Request {
				return &Request{TestDisposable: testutil.NewTestDisposable("request", log), Session: s}
			})
		provider := testutil.BuildProvider(t, c)

		scope := provider.CreateScope(context.Background())
		testutil.AssertServiceResolvable[*Request](t, scope.Provider())
		testutil.AssertServiceResolvable[*Request](t, scope.Provider())

		require.NoError(t, scope.Close())
		assert.Equal(t, []string{"request", "request", "session"}, log.Names())
	})

	t.Run("does not close singletons", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddSingleton(func() *testutil.TestDisposable {
			return testutil.NewTestDisposable("singleton", nil)
		})
		provider := testutil.BuildProvider(t, c)

		scope := provider.CreateScope(context.Background())
		d := testutil.AssertServiceResolvable[*testutil.TestDisposable](t, scope.Provider())
		require.NoError(t, scope.Close())
		assert.False(t, d.IsDisposed())

		require.NoError(t, provider.Close())
		assert.True(t, d.IsDisposed())
	})

	t.Run("does not close registered transient instances", func(t *testing.T) {
		t.Parallel()

		log := &testutil.DisposalLog{}
		conn := testutil.NewTestDisposable("conn", log)
		c := testutil.NewCollection(t).AddTransient(conn)
		provider := testutil.BuildProvider(t, c)

		for range 3 {
			scope := provider.CreateScope(context.Background())
			got := testutil.AssertServiceResolvable[*testutil.TestDisposable](t, scope.Provider())
			assert.Same(t, conn, got)
			require.NoError(t, scope.Close())
		}

		require.NoError(t, provider.Close())
		assert.False(t, conn.IsDisposed())
		assert.Empty(t, log.Names())
	})

	t.Run("root transients are not tracked", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddTransient(func() *testutil.TestDisposable {
			return testutil.NewTestDisposable("transient", nil)
		})
		provider := testutil.BuildProvider(t, c)

		d := testutil.AssertServiceResolvable[*testutil.TestDisposable](t, provider)
		require.NoError(t, provider.Close())
		assert.False(t, d.IsDisposed())
	})

	t.Run("context disposables receive the scope context", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddScoped(testutil.NewTestContextDisposable)
		provider := testutil.BuildProvider(t, c)

		scope := provider.CreateScope(context.Background())
		d := testutil.AssertServiceResolvable[*testutil.TestContextDisposable](t, scope.Provider())
		require.NoError(t, scope.Close())

		assert.True(t, d.IsDisposed())
		require.NotNil(t, d.Context())
		got, err := scopedi.ScopeFromContext(d.Context())
		assert.Nil(t, got)
		assert.ErrorIs(t, err, scopedi.ErrScopeDisposed)
	})

	t.Run("context cancellation leaves the close context live", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddScoped(testutil.NewTestContextDisposable)
		provider := testutil.BuildProvider(t, c)

		ctx, cancel := context.WithCancel(context.Background())
		scope := provider.CreateScope(ctx)
		d := testutil.AssertServiceResolvable[*testutil.TestContextDisposable](t, scope.Provider())

		cancel()

		assert.Eventually(t, d.IsDisposed, time.Second, 5*time.Millisecond)
		require.NotNil(t, d.Context())
		assert.NoError(t, d.Context().Err())
		assert.Error(t, scope.Context().Err())
	})

	t.Run("close is idempotent and disables resolution", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		scope := provider.CreateScope(context.Background())

		require.NoError(t, scope.Close())
		require.NoError(t, scope.Close())
		assert.True(t, scope.IsDisposed())

		_, err := scopedi.Resolve[*testutil.Worker](scope.Provider())
		assert.ErrorIs(t, err, scopedi.ErrScopeDisposed)

		// The root is unaffected.
		testutil.AssertServiceResolvable[*testutil.Config](t, provider)
	})

	t.Run("closing the scoped provider closes the scope", func(t *testing.T) {
		t.Parallel()

		provider := testutil.CreateProviderWithBasicServices(t)
		scope := provider.CreateScope(context.Background())

		require.NoError(t, scope.Provider().Close())
		assert.True(t, scope.IsDisposed())
	})

	t.Run("close errors are reported", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddScoped(func() *testutil.TestDisposable {
			return testutil.NewTestDisposableWithError("bad", assert.AnError)
		})
		provider := testutil.BuildProvider(t, c)

		scope := provider.CreateScope(context.Background())
		testutil.AssertServiceResolvable[*testutil.TestDisposable](t, scope.Provider())

		err := scope.Close()
		var disposalErr scopedi.DisposalError
		require.True(t, errors.As(err, &disposalErr))
		assert.Equal(t, "scope", disposalErr.Context)
	})
}
