package scopedi

import "sync/atomic"

// defaultProvider holds the default Provider.
var defaultProvider atomic.Pointer[Provider]

// SetDefaultProvider sets the default Provider returned by DefaultProvider.
// This is similar to slog.SetDefault. Pass nil to remove it.
func SetDefaultProvider(p *Provider) {
	defaultProvider.Store(p)
}

// DefaultProvider returns the current default Provider, or nil if none has
// been set.
func DefaultProvider() *Provider {
	return defaultProvider.Load()
}
