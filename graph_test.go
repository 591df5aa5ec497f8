package scopedi_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/internal/testutil"
)

func TestCollection_Validate(t *testing.T) {
	t.Run("valid graph", func(t *testing.T) {
		t.Parallel()

		c := testutil.BasicServices(testutil.NewCollection(t))
		assert.NoError(t, c.Validate())
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).
			AddTransient(testutil.NewRepo).
			AddTransient(testutil.NewService)

		err := c.Validate()
		require.Error(t, err)
		assert.True(t, scopedi.IsNotFound(err))

		var resErr scopedi.ResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, reflect.TypeOf(&testutil.Config{}), resErr.ServiceType)
	})

	t.Run("constructor cycle", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).
			AddTransient(testutil.NewCircularServiceA).
			AddTransient(testutil.NewCircularServiceB).
			AddTransient(testutil.NewCircularServiceC)

		err := c.Validate()
		require.Error(t, err)
		assert.True(t, scopedi.IsCircular(err))

		var cycle scopedi.CircularDependencyError
		require.True(t, errors.As(err, &cycle))
		assert.Len(t, cycle.Path, 3)
		assert.Contains(t, err.Error(), "*CircularServiceA (cycle)")
	})

	t.Run("registration errors come first", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddTransient(nil)
		assert.ErrorIs(t, c.Validate(), scopedi.ErrConstructorNil)
	})

	t.Run("build with validation", func(t *testing.T) {
		t.Parallel()

		c := testutil.NewCollection(t).AddTransient(testutil.NewRepo)

		_, err := c.Build(scopedi.WithValidation())
		require.Error(t, err)
		assert.True(t, scopedi.IsNotFound(err))

		// Without validation the missing dependency surfaces on resolution.
		provider := testutil.BuildProvider(t, c)
		_, err = scopedi.Resolve[*testutil.Repo](provider)
		assert.True(t, scopedi.IsNotFound(err))
	})
}

func TestProvider_WriteGraph(t *testing.T) {
	t.Parallel()

	provider := testutil.BuildProvider(t, testutil.NewCollection(t).
		AddSingleton(testutil.NewConfig).
		AddTransient(testutil.NewRepo).
		AddScoped(testutil.NewService))

	var text bytes.Buffer
	require.NoError(t, provider.WriteGraph(&text, scopedi.GraphText))
	assert.Contains(t, text.String(), "level 0:\n")
	assert.Contains(t, text.String(), "  *Config [Singleton]\n")
	assert.Contains(t, text.String(), "level 2:\n  *Service [Scoped] -> *Repo\n")

	var dot bytes.Buffer
	require.NoError(t, provider.WriteGraph(&dot, scopedi.GraphDOT))
	assert.Contains(t, dot.String(), "digraph services {")
	assert.Contains(t, dot.String(), `fillcolor="lightgreen"`)

	assert.Error(t, provider.WriteGraph(&dot, scopedi.GraphFormat(9)))
}
