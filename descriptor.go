package scopedi

import (
	"fmt"
	"reflect"

	"github.com/junioryono/scopedi/internal/reflection"
)

// ServiceDefinition is the recipe registered for one contract type.
// Definitions are immutable once added to a Collection.
type ServiceDefinition struct {
	// ID is the identity of ServiceType.
	ID ServiceID

	// ServiceType is the contract type callers resolve.
	ServiceType reflect.Type

	// ImplementationType is the type the factory produces.
	ImplementationType reflect.Type

	// Lifetime determines instance caching behavior
	Lifetime Lifetime

	// Instance is true when a pre-built value was registered.
	Instance bool

	// Dependencies are the types resolved before the constructor is called,
	// in parameter order.
	Dependencies []reflect.Type

	factory func(Resolver) (any, error)
}

// String returns a short description such as "Singleton *Config".
func (d *ServiceDefinition) String() string {
	if d.ImplementationType != nil && d.ImplementationType != d.ServiceType {
		return fmt.Sprintf("%s %s (%s)", d.Lifetime, formatType(d.ServiceType), formatType(d.ImplementationType))
	}
	return fmt.Sprintf("%s %s", d.Lifetime, formatType(d.ServiceType))
}

// newDefinition analyzes service and builds the definition for it.
func newDefinition(analyzer *reflection.Analyzer, service any, lifetime Lifetime, options *addOptions) (*ServiceDefinition, error) {
	if service == nil {
		return nil, ErrConstructorNil
	}

	info, err := analyzer.Analyze(service)
	if err != nil {
		return nil, ReflectionAnalysisError{Constructor: service, Cause: err}
	}

	def := &ServiceDefinition{
		ServiceType:        info.Result,
		ImplementationType: info.Result,
		Lifetime:           lifetime,
	}

	if options.contract != nil {
		if !info.Result.AssignableTo(options.contract) {
			return nil, TypeMismatchError{
				Expected: options.contract,
				Actual:   info.Result,
				Context:  "registered implementation does not satisfy contract",
			}
		}
		def.ServiceType = options.contract
	}

	if !info.IsFunc {
		def.Instance = true
		def.factory = func(Resolver) (any, error) {
			return service, nil
		}
		return def, nil
	}

	def.Dependencies = info.Parameters
	def.factory = constructorFactory(def, info, reflect.ValueOf(service))
	return def, nil
}

// constructorFactory resolves every parameter of fn from the Resolver it is
// given and calls fn. Errors returned by fn itself are wrapped in a
// ConstructorError; dependency errors are returned as they are.
func constructorFactory(def *ServiceDefinition, info *reflection.ConstructorInfo, fn reflect.Value) func(Resolver) (any, error) {
	return func(r Resolver) (any, error) {
		args := make([]reflect.Value, len(info.Parameters))
		for i, paramType := range info.Parameters {
			dep, err := r.Get(paramType)
			if err != nil {
				return nil, err
			}

			arg, err := argumentValue(dep, paramType)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}

		instance, err := info.Call(fn, args)
		if err != nil {
			return nil, ConstructorError{
				ServiceType: def.ServiceType,
				Lifetime:    def.Lifetime,
				Cause:       err,
			}
		}

		return instance, nil
	}
}

// argumentValue converts a resolved dependency into a call argument of type t.
func argumentValue(dep any, t reflect.Type) (reflect.Value, error) {
	if dep == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(dep)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, TypeMismatchError{
			Expected: t,
			Actual:   v.Type(),
			Context:  "constructor argument",
		}
	}

	return v, nil
}
