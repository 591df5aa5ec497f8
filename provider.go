package scopedi

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider resolves services registered in a Collection.
//
// The root provider is returned by Collection.Build. It caches Singleton
// instances and refuses Scoped services. Scoped services are resolved through
// the provider of a Scope created with CreateScope; a scoped provider shares
// the root's definitions and Singleton cache but has its own Scoped cache.
//
// A Provider is safe for concurrent use. When several goroutines resolve the
// same Singleton or Scoped service for the first time, its factory may run
// more than once; the first instance stored is kept and the others are
// closed.
type Provider struct {
	id string

	// Immutable after build, shared by the root and every scope.
	definitions map[ServiceID]*ServiceDefinition
	identities  *IdentityRegistry
	observers   []Observer
	logger      *zap.Logger

	// root is the provider itself for the root provider.
	root  *Provider
	scope *Scope

	singletons *instanceCache
	scoped     *instanceCache

	// lifecycle holds the disposable instances this provider owns: Singletons
	// for the root, Scoped and Transient instances for a scope.
	lifecycle *lifecycleManager

	// Root only.
	disposed atomic.Bool
	scopes   map[*Scope]struct{}
	scopesMu sync.Mutex
}

func newRootProvider(definitions map[ServiceID]*ServiceDefinition, identities *IdentityRegistry, logger *zap.Logger, options *providerOptions) *Provider {
	p := &Provider{
		id:          uuid.NewString(),
		definitions: definitions,
		identities:  identities,
		observers:   options.observers,
		logger:      logger,
		singletons:  newInstanceCache(),
		lifecycle:   newLifecycleManager("provider"),
		scopes:      make(map[*Scope]struct{}),
	}
	p.root = p
	return p
}

// ID returns the unique identifier of the provider. A scoped provider has the
// ID of its Scope.
func (p *Provider) ID() string {
	return p.id
}

// IsScoped reports whether the provider belongs to a Scope.
func (p *Provider) IsScoped() bool {
	return p.scope != nil
}

// Scope returns the scope the provider belongs to, or nil for the root.
func (p *Provider) Scope() *Scope {
	return p.scope
}

// IsDisposed reports whether p, or the root it was created from, has been
// closed.
func (p *Provider) IsDisposed() bool {
	return p.checkOpen() != nil
}

// Get resolves an instance of serviceType. Every call starts a new resolution
// path.
//
// Requesting *Provider returns p itself.
func (p *Provider) Get(serviceType reflect.Type) (any, error) {
	instance, err := p.resolve(newResolution(p), serviceType)
	if err != nil {
		p.logger.Error("service resolution failed",
			zap.String("service", formatType(serviceType)),
			zap.String("provider", p.id),
			zap.Error(err),
		)
		return nil, err
	}
	return instance, nil
}

// Contains reports whether serviceType can be resolved by p.
func (p *Provider) Contains(serviceType reflect.Type) bool {
	if serviceType == nil {
		return false
	}

	if serviceType == providerType || serviceType == resolverType {
		return true
	}

	id, ok := p.identities.Lookup(serviceType)
	if !ok {
		return false
	}

	_, ok = p.definitions[id]
	return ok
}

// Definitions returns copies of the definitions p resolves from, ordered by ID.
func (p *Provider) Definitions() []ServiceDefinition {
	return sortedDefinitions(p.definitions)
}

// Close closes a scoped provider's Scope. On the root provider it closes every
// open scope, then closes constructed Singletons in reverse creation order.
// Close is idempotent. Resolving from a closed provider returns
// ErrProviderDisposed.
func (p *Provider) Close() error {
	if p.scope != nil {
		return p.scope.Close()
	}

	if !p.disposed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	p.scopesMu.Lock()
	scopes := make([]*Scope, 0, len(p.scopes))
	for s := range p.scopes {
		scopes = append(scopes, s)
	}
	p.scopes = nil
	p.scopesMu.Unlock()

	for _, s := range scopes {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scope %s: %w", s.ID(), err))
		}
	}

	if err := p.lifecycle.dispose(context.Background()); err != nil {
		errs = append(errs, err)
	}

	p.singletons.clear()

	p.logger.Debug("service provider closed", zap.String("provider", p.id))

	if len(errs) > 0 {
		return DisposalError{Context: "provider", Errors: errs}
	}

	return nil
}

// checkOpen fails once the root provider or the provider's scope is closed.
func (p *Provider) checkOpen() error {
	if p.root.disposed.Load() {
		return ErrProviderDisposed
	}

	if p.scope != nil && p.scope.closed.Load() {
		return ErrScopeDisposed
	}

	return nil
}

func (p *Provider) trackScope(s *Scope) {
	p.scopesMu.Lock()
	defer p.scopesMu.Unlock()

	if p.scopes != nil {
		p.scopes[s] = struct{}{}
	}
}

func (p *Provider) untrackScope(s *Scope) {
	p.scopesMu.Lock()
	defer p.scopesMu.Unlock()
	delete(p.scopes, s)
}

// serviceTypes lists every registered contract type.
func (p *Provider) serviceTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(p.definitions))
	for _, def := range p.definitions {
		types = append(types, def.ServiceType)
	}
	return types
}

// createAllSingletons constructs every Singleton in registration order.
func (p *Provider) createAllSingletons() error {
	for _, def := range sortedDefinitions(p.definitions) {
		if def.Lifetime != Singleton {
			continue
		}

		if _, err := p.Get(def.ServiceType); err != nil {
			return err
		}
	}
	return nil
}

// Resolve resolves a service of type T from r.
// This is a generic convenience function that handles type assertions.
//
// Example:
//
//	logger, err := scopedi.Resolve[*zap.Logger](provider)
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrProviderNil
	}

	if p, ok := r.(*Provider); ok && p == nil {
		return zero, ErrProviderNil
	}

	serviceType := typeOf[T]()
	service, err := r.Get(serviceType)
	if err != nil {
		return zero, err
	}

	if service == nil {
		return zero, nil
	}

	result, ok := service.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: serviceType,
			Actual:   reflect.TypeOf(service),
			Context:  "type assertion",
		}
	}

	return result, nil
}

// MustResolve resolves a service of type T from r.
// It panics if the service cannot be resolved. This is useful for
// application initialization where missing services are fatal.
func MustResolve[T any](r Resolver) T {
	service, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve service: %v", err))
	}

	return service
}
