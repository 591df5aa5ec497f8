package scopedi

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/junioryono/scopedi/internal/reflection"
)

// Collection accumulates service registrations before any resolution happens.
//
// Registration methods return the collection so calls can be chained.
// Registration errors do not interrupt the chain; they are collected and
// returned by Build (and Err):
//
//	provider, err := scopedi.NewCollection().
//	    AddSingleton(NewConfig).
//	    AddTransient(NewRepository).
//	    AddScoped(NewUnitOfWork).
//	    Build()
//
// A contract type can be registered once. Registering it again fails with an
// AlreadyRegisteredError and leaves the first registration in place.
//
// Registration is meant to happen on one goroutine during startup. The
// collection is frozen by Build; later registrations fail with
// ErrCollectionBuilt.
type Collection struct {
	mu sync.Mutex

	identities *IdentityRegistry
	analyzer   *reflection.Analyzer
	logger     *zap.Logger

	definitions map[ServiceID]*ServiceDefinition
	errs        []error
	built       bool
}

// NewCollection creates an empty collection.
func NewCollection(opts ...CollectionOption) *Collection {
	c := &Collection{
		identities:  DefaultIdentities(),
		analyzer:    reflection.New(),
		logger:      zap.NewNop(),
		definitions: make(map[ServiceID]*ServiceDefinition),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Add registers service with the given lifetime. service is one of:
//
//   - a factory func(Resolver) T or func(Resolver) (T, error)
//   - a constructor func(A, B, ...) T or func(A, B, ...) (T, error); every
//     parameter is resolved from the provider when the service is constructed
//   - New[T]() or Struct[T]()
//   - a pre-built instance (any non-func value)
//
// The contract type is the constructor's first result, or the instance type,
// unless As is given.
func (c *Collection) Add(lifetime Lifetime, service any, opts ...AddOption) *Collection {
	if err := c.add(lifetime, service, opts...); err != nil {
		c.record(err)
	}
	return c
}

// AddSingleton registers a service constructed once per root provider.
func (c *Collection) AddSingleton(service any, opts ...AddOption) *Collection {
	return c.Add(Singleton, service, opts...)
}

// AddScoped registers a service constructed once per Scope.
func (c *Collection) AddScoped(service any, opts ...AddOption) *Collection {
	return c.Add(Scoped, service, opts...)
}

// AddTransient registers a service constructed on every resolution.
func (c *Collection) AddTransient(service any, opts ...AddOption) *Collection {
	return c.Add(Transient, service, opts...)
}

// AddModules applies each module to the collection.
func (c *Collection) AddModules(modules ...ModuleOption) *Collection {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(c); err != nil {
			c.record(err)
		}
	}
	return c
}

func (c *Collection) add(lifetime Lifetime, service any, opts ...AddOption) error {
	if !lifetime.IsValid() {
		return LifetimeError{Value: lifetime}
	}

	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}

	def, err := newDefinition(c.analyzer, service, lifetime, options)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrCollectionBuilt
	}

	return c.insertLocked(def)
}

func (c *Collection) insertLocked(def *ServiceDefinition) error {
	def.ID = c.identities.ID(def.ServiceType)

	if existing, ok := c.definitions[def.ID]; ok {
		return AlreadyRegisteredError{
			ServiceType: def.ServiceType,
			Existing:    existing.Lifetime,
			Attempted:   def.Lifetime,
		}
	}

	c.definitions[def.ID] = def
	c.logger.Debug("service registered",
		zap.String("service", formatType(def.ServiceType)),
		zap.Stringer("id", def.ID),
		zap.Stringer("lifetime", def.Lifetime),
	)
	return nil
}

func (c *Collection) record(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()

	c.logger.Error("service registration failed", zap.Error(err))
}

// Contains reports whether a definition exists for serviceType.
func (c *Collection) Contains(serviceType reflect.Type) bool {
	if serviceType == nil {
		return false
	}

	id, ok := c.identities.Lookup(serviceType)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok = c.definitions[id]
	return ok
}

// Count returns the number of registered services.
func (c *Collection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.definitions)
}

// Definitions returns copies of the registered definitions ordered by ID.
func (c *Collection) Definitions() []ServiceDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedDefinitions(c.definitions)
}

// Err returns the registration errors recorded so far, joined.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.errs...)
}

// Build freezes the collection and returns a root provider over its
// definitions with fresh caches. It fails with the recorded registration
// errors, if any. Build may be called more than once; every provider shares
// the same definitions but has its own Singleton cache.
func (c *Collection) Build(opts ...ProviderOption) (*Provider, error) {
	c.mu.Lock()

	if len(c.errs) > 0 {
		err := errors.Join(c.errs...)
		c.mu.Unlock()
		return nil, fmt.Errorf("build service provider: %w", err)
	}

	if !c.built {
		if err := c.registerLoggerLocked(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.built = true
	}

	options := &providerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if options.validate {
		if err := validateDefinitions(sortedDefinitions(c.definitions)); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("validate services: %w", err)
		}
	}

	p := newRootProvider(c.definitions, c.identities, c.logger, options)
	c.mu.Unlock()

	c.logger.Debug("service provider built",
		zap.String("provider", p.ID()),
		zap.Int("services", len(c.definitions)),
	)

	if options.eagerSingleton {
		if err := p.createAllSingletons(); err != nil {
			_ = p.Close()
			return nil, err
		}
	}

	return p, nil
}

// MustBuild is like Build but panics on error.
func (c *Collection) MustBuild(opts ...ProviderOption) *Provider {
	p, err := c.Build(opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// registerLoggerLocked offers the collection's logger to services unless the
// caller registered a *zap.Logger already.
func (c *Collection) registerLoggerLocked() error {
	loggerType := typeOf[*zap.Logger]()
	if id, ok := c.identities.Lookup(loggerType); ok {
		if _, ok := c.definitions[id]; ok {
			return nil
		}
	}

	logger := c.logger
	return c.insertLocked(&ServiceDefinition{
		ServiceType:        loggerType,
		ImplementationType: loggerType,
		Lifetime:           Singleton,
		Instance:           true,
		factory: func(Resolver) (any, error) {
			return logger, nil
		},
	})
}

func sortedDefinitions(defs map[ServiceID]*ServiceDefinition) []ServiceDefinition {
	out := make([]ServiceDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// IsRegistered reports whether c has a definition for T.
func IsRegistered[T any](c *Collection) bool {
	if c == nil {
		return false
	}
	return c.Contains(typeOf[T]())
}
