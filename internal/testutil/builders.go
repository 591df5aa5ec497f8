package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/junioryono/scopedi"
)

// NewCollection returns a collection with its own identity registry and a
// logger that writes to t.
func NewCollection(t *testing.T) *scopedi.Collection {
	t.Helper()
	return scopedi.NewCollection(
		scopedi.WithIdentities(scopedi.NewIdentityRegistry()),
		scopedi.WithLogger(zaptest.NewLogger(t)),
	)
}

// BasicServices registers the Config → Repo → Service → Root chain and the
// Logger → Worker pair.
func BasicServices(c *scopedi.Collection) *scopedi.Collection {
	return c.
		AddSingleton(NewConfig).
		AddTransient(NewRepo).
		AddTransient(NewService).
		AddTransient(NewRoot).
		AddSingleton(NewLogger).
		AddScoped(NewWorker)
}

// BuildProvider builds c and closes the provider when the test ends.
func BuildProvider(t *testing.T, c *scopedi.Collection, opts ...scopedi.ProviderOption) *scopedi.Provider {
	t.Helper()

	provider, err := c.Build(opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, provider.Close())
	})

	return provider
}

// CreateProviderWithBasicServices builds a provider over BasicServices.
func CreateProviderWithBasicServices(t *testing.T, opts ...scopedi.ProviderOption) *scopedi.Provider {
	t.Helper()
	return BuildProvider(t, BasicServices(NewCollection(t)), opts...)
}

// EventRecorder is an Observer that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []scopedi.ResolutionEvent
}

func (r *EventRecorder) ObserveResolution(e scopedi.ResolutionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *EventRecorder) Events() []scopedi.ResolutionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scopedi.ResolutionEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns the number of recorded events with the given outcome.
func (r *EventRecorder) Count(outcome scopedi.Outcome) int {
	n := 0
	for _, e := range r.Events() {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}
