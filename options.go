package scopedi

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// An AddOption modifies the default behavior of Add, AddSingleton, AddScoped,
// and AddTransient.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	contract reflect.Type
}

// As registers the service under the contract type C instead of the type the
// constructor returns. The implementation must be assignable to C.
//
//	services.AddSingleton(NewFileStore, scopedi.As[Store]())
func As[C any]() AddOption {
	return addAsOption{t: typeOf[C]()}
}

type addAsOption struct {
	t reflect.Type
}

func (o addAsOption) String() string {
	return fmt.Sprintf("As[%s]", formatType(o.t))
}

func (o addAsOption) applyAddOption(opts *addOptions) {
	opts.contract = o.t
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithLogger sets the logger used by the collection and every provider built
// from it. The logger is also registered as a Singleton *zap.Logger unless the
// collection already has one.
func WithLogger(logger *zap.Logger) CollectionOption {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdentities makes the collection allocate ServiceIDs from r instead of
// DefaultIdentities.
func WithIdentities(r *IdentityRegistry) CollectionOption {
	return func(c *Collection) {
		if r != nil {
			c.identities = r
		}
	}
}

// ProviderOption configures a Provider at Build time.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	observers      []Observer
	eagerSingleton bool
	validate       bool
}

// WithObserver adds an observer that is told about every resolution of a
// registered service.
func WithObserver(o Observer) ProviderOption {
	return func(opts *providerOptions) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

// WithEagerSingletons constructs every Singleton during Build so that wiring
// errors surface before the first resolution.
func WithEagerSingletons() ProviderOption {
	return func(opts *providerOptions) {
		opts.eagerSingleton = true
	}
}

// WithValidation makes Build fail when a constructor depends on an
// unregistered service or when constructors form a cycle. See
// Collection.Validate.
func WithValidation() ProviderOption {
	return func(opts *providerOptions) {
		opts.validate = true
	}
}

// Outcome classifies a resolution.
type Outcome int

const (
	// OutcomeCacheHit means a cached Singleton or Scoped instance was returned.
	OutcomeCacheHit Outcome = iota

	// OutcomeConstructed means the factory ran.
	OutcomeConstructed

	// OutcomeFailed means the resolution returned an error.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCacheHit:
		return "cache_hit"
	case OutcomeConstructed:
		return "constructed"
	case OutcomeFailed:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ResolutionEvent describes one resolution of a registered service.
type ResolutionEvent struct {
	ID          ServiceID
	ServiceType reflect.Type
	Lifetime    Lifetime
	Outcome     Outcome

	// Duration is the time spent in the factory. Zero for cache hits.
	Duration time.Duration

	// Depth is the length of the resolution path when the event fired. A
	// service requested directly through Provider.Get has depth 1.
	Depth int

	// ScopeID is empty when resolving from the root provider.
	ScopeID string

	Err error
}

// Observer receives resolution events. Implementations must be safe for
// concurrent use and should return quickly.
type Observer interface {
	ObserveResolution(ResolutionEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ResolutionEvent)

// ObserveResolution calls f(e).
func (f ObserverFunc) ObserveResolution(e ResolutionEvent) {
	f(e)
}
