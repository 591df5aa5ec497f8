package scopedi

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/scopedi/internal/reflection"
)

// stubResolver answers Get from a fixed map.
type stubResolver map[reflect.Type]any

func (s stubResolver) Get(t reflect.Type) (any, error) {
	v, ok := s[t]
	if !ok {
		return nil, ResolutionError{ServiceType: t}
	}
	return v, nil
}

func (s stubResolver) Contains(t reflect.Type) bool {
	_, ok := s[t]
	return ok
}

func TestNewDefinition(t *testing.T) {
	analyzer := reflection.New()

	t.Run("constructor", func(t *testing.T) {
		def, err := newDefinition(analyzer, func(dep *TDependency) *TService {
			return &TService{ID: dep.Name}
		}, Singleton, &addOptions{})
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf(&TService{}), def.ServiceType)
		assert.Equal(t, def.ServiceType, def.ImplementationType)
		assert.Equal(t, []reflect.Type{reflect.TypeOf(&TDependency{})}, def.Dependencies)
		assert.False(t, def.Instance)
		assert.Equal(t, "Singleton *TService", def.String())

		instance, err := def.factory(stubResolver{
			reflect.TypeOf(&TDependency{}): &TDependency{Name: "dep"},
		})
		require.NoError(t, err)
		assert.Equal(t, "dep", instance.(*TService).ID)
	})

	t.Run("instance", func(t *testing.T) {
		svc := &TService{ID: "fixed"}
		def, err := newDefinition(analyzer, svc, Singleton, &addOptions{})
		require.NoError(t, err)

		assert.True(t, def.Instance)
		instance, err := def.factory(stubResolver{})
		require.NoError(t, err)
		assert.Same(t, svc, instance)
	})

	t.Run("contract override", func(t *testing.T) {
		def, err := newDefinition(analyzer, func() *TService { return &TService{} }, Transient, &addOptions{
			contract: reflect.TypeOf((*TInterface)(nil)).Elem(),
		})
		require.NoError(t, err)

		assert.Equal(t, reflect.TypeOf((*TInterface)(nil)).Elem(), def.ServiceType)
		assert.Equal(t, reflect.TypeOf(&TService{}), def.ImplementationType)
		assert.Equal(t, "Transient TInterface (*TService)", def.String())
	})

	t.Run("contract not implemented", func(t *testing.T) {
		_, err := newDefinition(analyzer, func() *TDependency { return &TDependency{} }, Transient, &addOptions{
			contract: reflect.TypeOf((*TInterface)(nil)).Elem(),
		})

		var mismatch TypeMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, reflect.TypeOf(&TDependency{}), mismatch.Actual)
	})

	t.Run("nil service", func(t *testing.T) {
		_, err := newDefinition(analyzer, nil, Transient, &addOptions{})
		assert.ErrorIs(t, err, ErrConstructorNil)
	})

	t.Run("bad constructor shape", func(t *testing.T) {
		_, err := newDefinition(analyzer, func() {}, Transient, &addOptions{})

		var analysisErr ReflectionAnalysisError
		require.True(t, errors.As(err, &analysisErr))
		assert.ErrorIs(t, err, reflection.ErrNoReturn)
	})

	t.Run("constructor error is wrapped", func(t *testing.T) {
		def, err := newDefinition(analyzer, func() (*TService, error) {
			return nil, assert.AnError
		}, Scoped, &addOptions{})
		require.NoError(t, err)

		_, err = def.factory(stubResolver{})
		var ctorErr ConstructorError
		require.True(t, errors.As(err, &ctorErr))
		assert.Equal(t, Scoped, ctorErr.Lifetime)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("dependency error is returned as is", func(t *testing.T) {
		def, err := newDefinition(analyzer, func(dep *TDependency) *TService {
			return &TService{}
		}, Transient, &addOptions{})
		require.NoError(t, err)

		_, err = def.factory(stubResolver{})
		var resErr ResolutionError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, reflect.TypeOf(&TDependency{}), resErr.ServiceType)

		var ctorErr ConstructorError
		assert.False(t, errors.As(err, &ctorErr))
	})

	t.Run("nil dependency becomes zero value", func(t *testing.T) {
		def, err := newDefinition(analyzer, func(i TInterface) *TService {
			return &TService{Value: map[bool]int{true: 1}[i == nil]}
		}, Transient, &addOptions{})
		require.NoError(t, err)

		instance, err := def.factory(stubResolver{reflect.TypeOf((*TInterface)(nil)).Elem(): nil})
		require.NoError(t, err)
		assert.Equal(t, 1, instance.(*TService).Value)
	})
}
