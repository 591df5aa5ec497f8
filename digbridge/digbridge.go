// Package digbridge exposes the services of a scopedi provider to a
// go.uber.org/dig container, so code built around dig can consume them.
//
//	container := dig.New()
//	if err := digbridge.Populate(provider, container); err != nil {
//		return err
//	}
//	err := container.Invoke(func(db *Database) { ... })
//
// Every bridged constructor resolves from the provider, so a Singleton is the
// same instance on both sides.
package digbridge

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"

	"github.com/junioryono/scopedi"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type options struct {
	transients bool
	skip       map[reflect.Type]struct{}
}

// Option configures Populate.
type Option func(*options)

// IncludeTransients also bridges Transient services. dig calls a constructor
// at most once per container, so a bridged Transient behaves like a Singleton
// on the dig side.
func IncludeTransients() Option {
	return func(o *options) {
		o.transients = true
	}
}

// Skip leaves serviceType out of the bridge, typically because the dig
// container already provides it.
func Skip(serviceType reflect.Type) Option {
	return func(o *options) {
		o.skip[serviceType] = struct{}{}
	}
}

// Populate provides every Singleton of provider to container. Scoped services
// are never bridged since dig has no notion of a scope.
func Populate(provider *scopedi.Provider, container *dig.Container, opts ...Option) error {
	if provider == nil {
		return scopedi.ErrProviderNil
	}

	o := &options{skip: make(map[reflect.Type]struct{})}
	for _, opt := range opts {
		opt(o)
	}

	for _, def := range provider.Definitions() {
		switch def.Lifetime {
		case scopedi.Singleton:
		case scopedi.Transient:
			if !o.transients {
				continue
			}
		default:
			continue
		}

		if _, ok := o.skip[def.ServiceType]; ok {
			continue
		}

		if err := container.Provide(bridge(provider, def.ServiceType)); err != nil {
			return fmt.Errorf("bridge %s: %w", def.ServiceType, err)
		}
	}

	return nil
}

// bridge builds a func() (T, error) that resolves T from provider.
func bridge(provider *scopedi.Provider, serviceType reflect.Type) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{serviceType, errorType}, false)

	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := provider.Get(serviceType)
		if err != nil {
			return []reflect.Value{reflect.Zero(serviceType), reflect.ValueOf(&err).Elem()}
		}

		value := reflect.Zero(serviceType)
		if instance != nil {
			value = reflect.ValueOf(instance)
		}
		return []reflect.Value{value, reflect.Zero(errorType)}
	})

	return fn.Interface()
}
