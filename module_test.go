package scopedi_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/internal/testutil"
)

func TestNewModule(t *testing.T) {
	t.Run("creates module with services", func(t *testing.T) {
		t.Parallel()

		module := scopedi.NewModule("test-module",
			scopedi.AddSingleton(testutil.NewLogger),
			scopedi.AddScoped(testutil.NewWorker),
		)

		c := testutil.NewCollection(t).AddModules(module)

		require.NoError(t, c.Err())
		assert.Equal(t, 2, c.Count())
	})

	t.Run("empty module", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddModules(scopedi.NewModule("empty-module"))

		require.NoError(t, c.Err())
		assert.Equal(t, 0, c.Count())
	})

	t.Run("module with nil builders", func(t *testing.T) {
		t.Parallel()

		module := scopedi.NewModule("module-with-nils",
			scopedi.AddSingleton(testutil.NewLogger),
			nil, // Should be skipped
			scopedi.AddScoped(testutil.NewWorker),
		)

		c := testutil.NewCollection(t).AddModules(module, nil)

		require.NoError(t, c.Err())
		assert.Equal(t, 2, c.Count())
	})
}

func TestModule_Composition(t *testing.T) {
	t.Run("nested modules", func(t *testing.T) {
		t.Parallel()

		data := scopedi.NewModule("data",
			scopedi.AddSingleton(testutil.NewConfig),
			scopedi.AddTransient(testutil.NewRepo),
		)
		app := scopedi.NewModule("app",
			data,
			scopedi.AddTransient(testutil.NewService),
			scopedi.AddTransient(testutil.NewRoot),
		)

		provider := testutil.BuildProvider(t, testutil.NewCollection(t).AddModules(app))

		root := testutil.AssertServiceResolvable[*testutil.Root](t, provider)
		assert.NotNil(t, root.Service.Repo.Config)
	})

	t.Run("module errors name the module", func(t *testing.T) {
		t.Parallel()

		module := scopedi.NewModule("broken",
			scopedi.AddSingleton(testutil.NewConfig),
			scopedi.AddSingleton(testutil.NewConfig),
			scopedi.AddSingleton(testutil.NewLogger),
		)

		c := testutil.NewCollection(t).AddModules(module)

		var modErr scopedi.ModuleError
		require.True(t, errors.As(c.Err(), &modErr))
		assert.Equal(t, "broken", modErr.Module)
		assert.ErrorIs(t, c.Err(), scopedi.ErrAlreadyRegistered)

		// The module stops at the first failure.
		assert.False(t, scopedi.IsRegistered[testutil.Logger](c))

		_, err := c.Build()
		assert.Error(t, err)
	})

	t.Run("nested module errors keep both names", func(t *testing.T) {
		t.Parallel()

		inner := scopedi.NewModule("inner", scopedi.AddTransient(nil))
		outer := scopedi.NewModule("outer", inner)

		c := testutil.NewCollection(t).AddModules(outer)
		assert.Contains(t, c.Err().Error(), `module "outer": module "inner"`)
		assert.ErrorIs(t, c.Err(), scopedi.ErrConstructorNil)
	})

	t.Run("module options accept As", func(t *testing.T) {
		t.Parallel()

		type memoryLogger = testutil.MemoryLogger
		c := testutil.NewCollection(t).AddModules(
			scopedi.AddSingleton(func() *memoryLogger { return &memoryLogger{} }, scopedi.As[testutil.Logger]()),
		)

		require.NoError(t, c.Err())
		assert.True(t, scopedi.IsRegistered[testutil.Logger](c))
	})
}
