package scopedi

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope is a short-lived resolution context with its own cache for Scoped
// services. It shares Singletons and definitions with the root provider.
//
// In web applications, a scope is typically created for each HTTP request,
// ensuring that services like database connections are properly managed
// and disposed at the end of the request.
//
// Example:
//
//	scope := provider.CreateScope(ctx)
//	defer scope.Close()
//
//	svc, err := scopedi.Resolve[*RequestHandler](scope.Provider())
type Scope struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	root     *Provider
	provider *Provider
	closed   atomic.Bool

	mu   sync.Mutex
	stop func() bool
}

// CreateScope creates a new scope. Scopes created from a scoped provider are
// siblings of the root's other scopes; they never share Scoped instances.
//
// The scope is closed automatically when ctx is cancelled. A nil ctx is
// treated as context.Background. A scope created from a closed provider is
// returned already closed.
func (p *Provider) CreateScope(ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}

	root := p.root
	s := &Scope{
		id:   uuid.NewString(),
		root: root,
	}

	s.ctx, s.cancel = context.WithCancel(contextWithScope(ctx, s))
	s.provider = &Provider{
		id:          s.id,
		definitions: root.definitions,
		identities:  root.identities,
		observers:   root.observers,
		logger:      root.logger.With(zap.String("scope", s.id)),
		root:        root,
		scope:       s,
		singletons:  root.singletons,
		scoped:      newInstanceCache(),
		lifecycle:   newLifecycleManager("scope"),
	}

	if root.disposed.Load() {
		s.closed.Store(true)
		s.cancel()
		return s
	}

	root.trackScope(s)

	// Auto-close on context cancellation
	s.mu.Lock()
	s.stop = context.AfterFunc(ctx, func() {
		if err := s.Close(); err != nil {
			root.logger.Warn("scope close on context cancellation failed",
				zap.String("scope", s.id),
				zap.Error(err),
			)
		}
	})
	s.mu.Unlock()

	root.logger.Debug("scope created", zap.String("scope", s.id))
	return s
}

// ID returns the unique ID of this scope.
func (s *Scope) ID() string {
	return s.id
}

// Context returns the context associated with this scope. The scope can be
// recovered from it with ScopeFromContext. It is cancelled when the scope is
// closed.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Provider returns the scoped provider services are resolved from.
func (s *Scope) Provider() *Provider {
	return s.provider
}

// Get resolves serviceType from the scope's provider.
func (s *Scope) Get(serviceType reflect.Type) (any, error) {
	return s.provider.Get(serviceType)
}

// Contains reports whether serviceType can be resolved from the scope.
func (s *Scope) Contains(serviceType reflect.Type) bool {
	return s.provider.Contains(serviceType)
}

// IsDisposed reports whether the scope has been closed.
func (s *Scope) IsDisposed() bool {
	return s.closed.Load()
}

// Close closes the Scoped and Transient instances the scope constructed, in
// reverse creation order, and drops its cache. Close is idempotent.
func (s *Scope) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}

	s.root.untrackScope(s)

	err := s.provider.lifecycle.dispose(s.provider.closeContext())
	s.provider.scoped.clear()
	s.cancel()

	s.root.logger.Debug("scope closed", zap.String("scope", s.id))
	return err
}

// closeContext is passed to DisposableWithContext instances the provider
// closes outside of its normal disposal.
func (p *Provider) closeContext() context.Context {
	if p.scope != nil {
		// Keep the scope's values but not its cancellation, which has already
		// fired when the parent context closed the scope.
		return context.WithoutCancel(p.scope.ctx)
	}
	return context.Background()
}

// scopeContextKey is the key for storing the current scope in context.
type scopeContextKey struct{}

// contextWithScope returns a context with the current scope.
func contextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext gets the current scope from context.
func ScopeFromContext(ctx context.Context) (*Scope, error) {
	if ctx == nil {
		return nil, ErrScopeNotInContext
	}

	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	if !ok || s == nil {
		return nil, ErrScopeNotInContext
	}

	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	return s, nil
}
