package scopedi

import "context"

// Disposable is implemented by services that hold resources. Instances the
// container constructs are closed when their owner goes away: Singletons when
// the root Provider is closed, Scoped and Transient instances when the Scope
// that created them is closed. Pre-built instances are never closed by the
// container.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is like Disposable but receives the context of the
// owner being closed. For a Scope this is the scope's context; for the root
// Provider it is context.Background.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}
