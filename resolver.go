package scopedi

import (
	"reflect"
)

// Resolver resolves services. *Provider implements it, and factories receive
// a Resolver bound to the resolution in progress so that their own
// dependencies are checked for cycles against the same path.
//
// The Resolver handed to a factory is only valid while that factory runs and
// must not be shared with other goroutines.
type Resolver interface {
	// Get resolves an instance of serviceType.
	Get(serviceType reflect.Type) (any, error)

	// Contains reports whether serviceType can be resolved.
	Contains(serviceType reflect.Type) bool
}

var (
	_ Resolver = (*Provider)(nil)
	_ Resolver = (*resolution)(nil)

	providerType = typeOf[*Provider]()
	resolverType = typeOf[Resolver]()
)

// pathEntry is one service under construction.
type pathEntry struct {
	id          ServiceID
	serviceType reflect.Type
}

// resolutionPath lists the services under construction for one top-level
// resolution, outermost first.
type resolutionPath struct {
	entries []pathEntry
}

func (p *resolutionPath) contains(id ServiceID) bool {
	for _, e := range p.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

func (p *resolutionPath) push(id ServiceID, serviceType reflect.Type) {
	p.entries = append(p.entries, pathEntry{id: id, serviceType: serviceType})
}

func (p *resolutionPath) pop() {
	p.entries = p.entries[:len(p.entries)-1]
}

func (p *resolutionPath) depth() int {
	return len(p.entries)
}

func (p *resolutionPath) innermost() reflect.Type {
	if len(p.entries) == 0 {
		return nil
	}
	return p.entries[len(p.entries)-1].serviceType
}

func (p *resolutionPath) types() []reflect.Type {
	types := make([]reflect.Type, len(p.entries))
	for i, e := range p.entries {
		types[i] = e.serviceType
	}
	return types
}

// resolution is the Resolver handed to factories. It resolves from provider
// and carries the path of the top-level call.
type resolution struct {
	provider *Provider
	path     *resolutionPath
}

func newResolution(p *Provider) *resolution {
	return &resolution{provider: p, path: &resolutionPath{}}
}

// with returns a resolution against p that shares r's path.
func (r *resolution) with(p *Provider) *resolution {
	if r.provider == p {
		return r
	}
	return &resolution{provider: p, path: r.path}
}

func (r *resolution) Get(serviceType reflect.Type) (any, error) {
	return r.provider.resolve(r, serviceType)
}

func (r *resolution) Contains(serviceType reflect.Type) bool {
	return r.provider.Contains(serviceType)
}
