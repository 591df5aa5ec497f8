// Package benchmarks compares scopedi with other DI libraries.
//
// Run with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/digbridge"
)

type Logger struct {
	Name string
}

func NewLogger() *Logger {
	return &Logger{Name: "logger"}
}

type Config struct {
	Value string
}

func NewConfig() *Config {
	return &Config{Value: "config"}
}

type Database struct {
	Logger *Logger
	Config *Config
}

func NewDatabase(logger *Logger, config *Config) *Database {
	return &Database{Logger: logger, Config: config}
}

type Cache struct {
	Logger   *Logger
	Database *Database
}

func NewCache(logger *Logger, db *Database) *Cache {
	return &Cache{Logger: logger, Database: db}
}

type UserService struct {
	Logger   *Logger
	Config   *Config
	Database *Database
	Cache    *Cache
}

func NewUserService(logger *Logger, config *Config, db *Database, cache *Cache) *UserService {
	return &UserService{Logger: logger, Config: config, Database: db, Cache: cache}
}

func newCollection() *scopedi.Collection {
	return scopedi.NewCollection(scopedi.WithIdentities(scopedi.NewIdentityRegistry()))
}

func buildScopedi(b *testing.B, lifetime scopedi.Lifetime) *scopedi.Provider {
	b.Helper()

	p, err := newCollection().
		Add(lifetime, NewLogger).
		Add(lifetime, NewConfig).
		Add(lifetime, NewDatabase).
		Add(lifetime, NewCache).
		Add(lifetime, NewUserService).
		Build()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { p.Close() })
	return p
}

func buildDig(b *testing.B) *dig.Container {
	b.Helper()

	c := dig.New()
	for _, ctor := range []any{NewLogger, NewConfig, NewDatabase, NewCache, NewUserService} {
		if err := c.Provide(ctor); err != nil {
			b.Fatal(err)
		}
	}
	return c
}

func provideDo(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })
	do.Provide(injector, func(i do.Injector) (*Config, error) { return NewConfig(), nil })
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		return NewDatabase(do.MustInvoke[*Logger](i), do.MustInvoke[*Config](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		return NewCache(do.MustInvoke[*Logger](i), do.MustInvoke[*Database](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*UserService, error) {
		return NewUserService(
			do.MustInvoke[*Logger](i),
			do.MustInvoke[*Config](i),
			do.MustInvoke[*Database](i),
			do.MustInvoke[*Cache](i),
		), nil
	})
}

func BenchmarkBuild_Scopedi(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p, _ := newCollection().
			AddSingleton(NewLogger).
			AddSingleton(NewConfig).
			AddSingleton(NewDatabase).
			AddSingleton(NewCache).
			AddSingleton(NewUserService).
			Build()
		p.Close()
	}
}

func BenchmarkBuild_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := dig.New()
		c.Provide(NewLogger)
		c.Provide(NewConfig)
		c.Provide(NewDatabase)
		c.Provide(NewCache)
		c.Provide(NewUserService)
	}
}

func BenchmarkBuild_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := do.New()
		provideDo(injector)
		injector.Shutdown()
	}
}

func BenchmarkResolve_Singleton_Scopedi(b *testing.B) {
	p := buildScopedi(b, scopedi.Singleton)
	scopedi.MustResolve[*UserService](p)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = scopedi.MustResolve[*UserService](p)
	}
}

func BenchmarkResolve_Singleton_Dig(b *testing.B) {
	c := buildDig(b)
	c.Invoke(func(*UserService) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(*UserService) {})
	}
}

func BenchmarkResolve_Singleton_Do(b *testing.B) {
	injector := do.New()
	provideDo(injector)
	defer injector.Shutdown()
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*UserService](injector)
	}
}

func BenchmarkResolve_Singleton_DigBridge(b *testing.B) {
	p := buildScopedi(b, scopedi.Singleton)
	c := dig.New()
	if err := digbridge.Populate(p, c); err != nil {
		b.Fatal(err)
	}
	c.Invoke(func(*UserService) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(*UserService) {})
	}
}

func BenchmarkResolve_Transient_Scopedi(b *testing.B) {
	p := buildScopedi(b, scopedi.Transient)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = scopedi.MustResolve[*UserService](p)
	}
}

func BenchmarkResolve_Transient_Do(b *testing.B) {
	injector := do.New()
	do.ProvideTransient(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })
	defer injector.Shutdown()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Logger](injector)
	}
}

func BenchmarkResolve_Concurrent_Scopedi(b *testing.B) {
	p := buildScopedi(b, scopedi.Singleton)
	scopedi.MustResolve[*UserService](p)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = scopedi.MustResolve[*UserService](p)
		}
	})
}

func BenchmarkResolve_Concurrent_Dig(b *testing.B) {
	c := buildDig(b)
	c.Invoke(func(*UserService) {})

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Invoke(func(*UserService) {})
		}
	})
}

func BenchmarkScope_CreateAndResolve_Scopedi(b *testing.B) {
	p, err := newCollection().
		AddSingleton(NewLogger).
		AddSingleton(NewConfig).
		AddScoped(NewDatabase).
		AddScoped(NewCache).
		Build()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		scope := p.CreateScope(context.Background())
		_ = scopedi.MustResolve[*Cache](scope)
		scope.Close()
	}
}

func BenchmarkScope_CreateAndResolve_Do(b *testing.B) {
	injector := do.New()
	do.Provide(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })
	do.Provide(injector, func(i do.Injector) (*Config, error) { return NewConfig(), nil })
	defer injector.Shutdown()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		scope := injector.Scope(fmt.Sprintf("request-%d", i))
		do.Provide(scope, func(i do.Injector) (*Database, error) {
			return NewDatabase(do.MustInvoke[*Logger](i), do.MustInvoke[*Config](i)), nil
		})
		do.Provide(scope, func(i do.Injector) (*Cache, error) {
			return NewCache(do.MustInvoke[*Logger](i), do.MustInvoke[*Database](i)), nil
		})
		_ = do.MustInvoke[*Cache](scope)
		scope.Shutdown()
	}
}

func BenchmarkResolve_FirstTime_Scopedi(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p, _ := newCollection().
			AddSingleton(NewLogger).
			AddSingleton(NewConfig).
			AddSingleton(NewDatabase).
			AddSingleton(NewCache).
			AddSingleton(NewUserService).
			Build()
		_ = scopedi.MustResolve[*UserService](p)
		p.Close()
	}
}

func BenchmarkResolve_FirstTime_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := buildDig(b)
		c.Invoke(func(*UserService) {})
	}
}
