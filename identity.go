package scopedi

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
)

// ServiceID is the key under which a service type is registered and cached.
// IDs are unique within one IdentityRegistry and are never reused. The zero
// value is never assigned.
type ServiceID uint64

// String returns the decimal form of the id.
func (id ServiceID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IdentityRegistry assigns a stable ServiceID to every distinct reflect.Type
// the first time the type is requested. It is safe for concurrent use.
//
// Collections use DefaultIdentities unless WithIdentities is passed, so ids
// line up across every collection in the process. Tests that want isolated
// numbering can create their own registry.
type IdentityRegistry struct {
	mu    sync.RWMutex
	ids   map[reflect.Type]ServiceID
	types map[ServiceID]reflect.Type
	next  atomic.Uint64
}

var (
	defaultIdentities     *IdentityRegistry
	defaultIdentitiesOnce sync.Once
)

// DefaultIdentities returns the process-wide identity registry. It is created
// on first use and lives until the process exits.
func DefaultIdentities() *IdentityRegistry {
	defaultIdentitiesOnce.Do(func() {
		defaultIdentities = NewIdentityRegistry()
	})
	return defaultIdentities
}

// NewIdentityRegistry creates an empty registry.
func NewIdentityRegistry() *IdentityRegistry {
	return &IdentityRegistry{
		ids:   make(map[reflect.Type]ServiceID),
		types: make(map[ServiceID]reflect.Type),
	}
}

// ID returns the id for t, allocating one if t has not been seen before.
func (r *IdentityRegistry) ID(t reflect.Type) ServiceID {
	if id, ok := r.Lookup(t); ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won the race between the read and write lock.
	if id, ok := r.ids[t]; ok {
		return id
	}

	id := ServiceID(r.next.Add(1))
	r.ids[t] = id
	r.types[id] = t
	return id
}

// Lookup returns the id for t without allocating one.
func (r *IdentityRegistry) Lookup(t reflect.Type) (ServiceID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[t]
	return id, ok
}

// Type returns the type registered under id.
func (r *IdentityRegistry) Type(id ServiceID) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	return t, ok
}

// Name returns a short display name for the type registered under id.
func (r *IdentityRegistry) Name(id ServiceID) string {
	t, ok := r.Type(id)
	if !ok {
		return "#" + id.String()
	}
	return formatType(t)
}

// Len returns the number of ids assigned so far.
func (r *IdentityRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// IdentityOf returns the id of T in r.
func IdentityOf[T any](r *IdentityRegistry) ServiceID {
	return r.ID(typeOf[T]())
}

// typeOf returns the reflect.Type of T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
