package scopedi

import (
	"context"
	"fmt"
	"sync"
)

// lifecycleManager remembers the disposable instances an owner created and
// closes them in reverse creation order.
type lifecycleManager struct {
	owner       string // "provider" or "scope"
	disposables []any
	mu          sync.Mutex
}

// newLifecycleManager creates a new lifecycle manager
func newLifecycleManager(owner string) *lifecycleManager {
	return &lifecycleManager{
		owner:       owner,
		disposables: make([]any, 0),
	}
}

// track records instance if it can be closed. It reports whether it did.
func (m *lifecycleManager) track(instance any) bool {
	if !isDisposable(instance) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposables = append(m.disposables, instance)
	return true
}

// len returns the number of tracked instances
func (m *lifecycleManager) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.disposables)
}

// dispose closes all tracked instances in reverse order and forgets them.
func (m *lifecycleManager) dispose(ctx context.Context) error {
	m.mu.Lock()
	disposables := m.disposables
	m.disposables = nil
	m.mu.Unlock()

	var errs []error

	// Dispose in reverse order (LIFO)
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := closeInstance(ctx, disposables[i]); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", disposables[i], err))
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: m.owner, Errors: errs}
	}

	return nil
}

func isDisposable(instance any) bool {
	switch instance.(type) {
	case Disposable, DisposableWithContext:
		return true
	default:
		return false
	}
}

// closeInstance closes instance if it is disposable. Panics from Close are
// returned as errors so one bad instance does not stop the rest.
func closeInstance(ctx context.Context, instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("close panicked: %v", r)
		}
	}()

	switch d := instance.(type) {
	case DisposableWithContext:
		return d.Close(ctx)
	case Disposable:
		return d.Close()
	default:
		return nil
	}
}
