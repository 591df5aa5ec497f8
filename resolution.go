package scopedi

import (
	"reflect"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// resolve is the resolution algorithm shared by Provider.Get and the
// Resolver handed to factories.
//
//  1. An unregistered type fails with a ResolutionError.
//  2. A type already on the path fails with a CircularDependencyError unless
//     it is a Singleton that is already cached.
//  3. The type is pushed onto the path and popped when this call returns,
//     whatever the outcome.
//  4. Transient definitions are always constructed. Singleton definitions are
//     cached in the root's cache and constructed against the root, so they
//     never capture scoped instances. Scoped definitions need a scoped
//     provider and are cached in its scope.
func (p *Provider) resolve(res *resolution, serviceType reflect.Type) (any, error) {
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}

	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	switch serviceType {
	case providerType:
		return p, nil
	case resolverType:
		return res, nil
	}

	id, ok := p.identities.Lookup(serviceType)
	var def *ServiceDefinition
	if ok {
		def, ok = p.definitions[id]
	}
	if !ok {
		return nil, ResolutionError{
			ServiceType: serviceType,
			Available:   p.serviceTypes(),
		}
	}

	if res.path.contains(id) {
		if def.Lifetime == Singleton {
			if instance, ok := p.root.singletons.get(id); ok {
				return instance, nil
			}
		}

		err := CircularDependencyError{
			Requested: serviceType,
			Innermost: res.path.innermost(),
			Path:      res.path.types(),
		}
		p.observe(res, def, OutcomeFailed, 0, err)
		return nil, err
	}

	res.path.push(id, serviceType)
	defer res.path.pop()

	switch def.Lifetime {
	case Singleton:
		root := p.root
		return root.resolveCached(res.with(root), def, root.singletons)

	case Scoped:
		if p.scope == nil {
			err := ScopeRequiredError{ServiceType: serviceType}
			p.observe(res, def, OutcomeFailed, 0, err)
			return nil, err
		}
		return p.resolveCached(res, def, p.scoped)

	default:
		instance, err := p.construct(res, def)
		if err != nil {
			return nil, err
		}

		// The root does not own transients; a scope closes the ones it made.
		// Registered instances belong to the caller.
		if p.scope != nil && !def.Instance {
			p.lifecycle.track(instance)
		}
		return instance, nil
	}
}

// resolveCached returns the cached instance for def or constructs and caches
// one. When two goroutines construct the same service concurrently the first
// stored instance wins and the loser's instance is closed.
func (p *Provider) resolveCached(res *resolution, def *ServiceDefinition, cache *instanceCache) (any, error) {
	if instance, ok := cache.get(def.ID); ok {
		p.observe(res, def, OutcomeCacheHit, 0, nil)
		return instance, nil
	}

	instance, err := p.construct(res, def)
	if err != nil {
		return nil, err
	}

	stored, added := cache.getOrAdd(def.ID, instance)
	if def.Instance {
		return stored, nil
	}

	if !added {
		p.logger.Debug("discarding concurrently constructed duplicate",
			zap.String("service", formatType(def.ServiceType)),
		)
		if err := closeInstance(p.closeContext(), instance); err != nil {
			p.logger.Warn("failed to close duplicate instance",
				zap.String("service", formatType(def.ServiceType)),
				zap.Error(err),
			)
		}
		return stored, nil
	}

	p.lifecycle.track(stored)
	return stored, nil
}

// construct runs the factory of def with res as its Resolver.
func (p *Provider) construct(res *resolution, def *ServiceDefinition) (any, error) {
	start := time.Now()
	instance, err := invoke(res, def)
	elapsed := time.Since(start)

	if err != nil {
		p.observe(res, def, OutcomeFailed, elapsed, err)
		return nil, err
	}

	if !def.Instance {
		p.logger.Debug("service constructed",
			zap.String("service", formatType(def.ServiceType)),
			zap.Stringer("lifetime", def.Lifetime),
			zap.Duration("duration", elapsed),
		)
	}

	p.observe(res, def, OutcomeConstructed, elapsed, nil)
	return instance, nil
}

// invoke calls the factory and turns a panic into a ConstructorPanicError.
func invoke(res *resolution, def *ServiceDefinition) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = ConstructorPanicError{
				ServiceType: def.ServiceType,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	return def.factory(res)
}

func (p *Provider) observe(res *resolution, def *ServiceDefinition, outcome Outcome, d time.Duration, err error) {
	if len(p.observers) == 0 {
		return
	}

	event := ResolutionEvent{
		ID:          def.ID,
		ServiceType: def.ServiceType,
		Lifetime:    def.Lifetime,
		Outcome:     outcome,
		Duration:    d,
		Depth:       res.path.depth(),
		Err:         err,
	}
	if p.scope != nil {
		event.ScopeID = p.scope.id
	}

	for _, o := range p.observers {
		o.ObserveResolution(event)
	}
}
