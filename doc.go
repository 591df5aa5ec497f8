// Package scopedi provides a dependency injection container with lifetime
// scoped caching and circular dependency detection.
//
// # Overview
//
// A Collection records how to build each service. Build turns it into a root
// Provider that constructs services on demand, resolving each constructor's
// parameters from the same provider:
//   - Three service lifetimes: Singleton, Scoped, and Transient
//   - Automatic constructor injection, or explicit factories taking a Resolver
//   - Circular dependencies reported with the full resolution path
//   - Scopes with their own cache and disposal
//   - Modules for grouping registrations
//   - Observers for resolution metrics
//
// # Basic Usage
//
//	provider, err := scopedi.NewCollection().
//	    AddSingleton(NewConfig).
//	    AddTransient(NewRepository).
//	    AddScoped(NewUserService).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	scope := provider.CreateScope(ctx)
//	defer scope.Close()
//
//	users, err := scopedi.Resolve[*UserService](scope.Provider())
//
// # Service Lifetimes
//
//   - Singleton: constructed on first use and shared by the root provider and
//     every scope created from it
//   - Scoped: one instance per Scope; resolving it from the root provider fails
//     with a ScopeRequiredError
//   - Transient: a new instance on every resolution
//
// Singletons are always constructed against the root provider, so a
// Singleton that depends on a Scoped service fails to resolve instead of
// capturing one scope's instance.
//
// # Registration
//
// Add accepts a constructor function, a factory taking a Resolver, or a
// pre-built instance:
//
//	services.AddSingleton(&Config{Port: 8080})
//	services.AddTransient(func(cfg *Config) *Server { return &Server{cfg: cfg} })
//	services.AddScoped(func(r scopedi.Resolver) (*Session, error) {
//	    cfg, err := scopedi.Resolve[*Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewSession(cfg), nil
//	})
//
// Register under an interface with As:
//
//	services.AddSingleton(NewFileStore, scopedi.As[Store]())
//
// Registering the same type twice is an error; the first registration is
// kept. Registration errors are collected and returned by Build.
//
// # Circular Dependencies
//
// Each top-level Get starts a resolution path listing the services under
// construction. Factories receive a Resolver that carries the path, so a
// service requested while it is still being built is reported as a
// CircularDependencyError naming both ends of the cycle.
//
// Constructor parameters can also be checked up front. Collection.Validate
// (or Build with WithValidation) reports missing dependencies and
// constructor cycles without constructing anything, and Provider.WriteGraph
// prints the dependency graph as text or Graphviz DOT.
//
// # Disposal
//
// Instances implementing Disposable or DisposableWithContext are closed in
// reverse creation order: Singletons by Provider.Close, Scoped and Transient
// instances by Scope.Close.
package scopedi
