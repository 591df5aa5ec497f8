package main

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/logging"
)

// Options are the command line settings the demo runs with.
type Options struct {
	Scenario   string
	Iterations int
	DOT        bool
	Out        io.Writer
}

type Repository interface {
	Add() string
}

type repository struct {
	id     string
	logger *zap.Logger
}

func newRepository(logger *zap.Logger) *repository {
	return &repository{id: uuid.NewString()[:8], logger: logging.For[repository](logger)}
}

func (r *repository) Add() string {
	r.logger.Debug("add", zap.String("repository", r.id))
	return r.id
}

// Registry is a singleton built from a transient repository.
type Registry struct {
	Repository Repository
}

func newRegistry(repo Repository) *Registry {
	repo.Add()
	return &Registry{Repository: repo}
}

// UnitOfWork is scoped: one per scope.
type UnitOfWork struct {
	ID         string
	Repository Repository
}

func newUnitOfWork(repo Repository) *UnitOfWork {
	return &UnitOfWork{ID: uuid.NewString()[:8], Repository: repo}
}

type pingService struct{ pong *pongService }
type pongService struct{ ping *pingService }

// repositoryExtension registers the demo's services.
type repositoryExtension struct{}

func (repositoryExtension) Name() string { return "repositories" }

func (repositoryExtension) ConfigureServices(services *scopedi.Collection) error {
	services.
		AddTransient(newRepository, scopedi.As[Repository]()).
		AddSingleton(newRegistry).
		AddScoped(newUnitOfWork).
		AddTransient(func(p *pongService) *pingService { return &pingService{pong: p} }).
		AddTransient(func(p *pingService) *pongService { return &pongService{ping: p} })
	return services.Err()
}

func (repositoryExtension) UseServices(provider *scopedi.Provider) error {
	if !provider.Contains(reflect.TypeOf((*Repository)(nil)).Elem()) {
		return fmt.Errorf("repository not registered")
	}
	return nil
}

// Demo is the application resolved by the builder.
type Demo struct {
	Options  *Options
	Provider *scopedi.Provider
	Logger   *zap.Logger
}

var (
	title    = color.New(color.FgCyan, color.Bold)
	ok       = color.New(color.FgGreen)
	bad      = color.New(color.FgRed)
	lifetime = map[scopedi.Lifetime]*color.Color{
		scopedi.Singleton: color.New(color.FgMagenta),
		scopedi.Scoped:    color.New(color.FgYellow),
		scopedi.Transient: color.New(color.FgBlue),
	}
)

func (d *Demo) Run(ctx context.Context) error {
	switch d.Options.Scenario {
	case "graph":
		return d.graph()
	case "scopes":
		return d.scopes(ctx)
	case "cycle":
		return d.cycle()
	case "bench":
		return d.bench(ctx)
	default:
		return fmt.Errorf("unknown scenario %q", d.Options.Scenario)
	}
}

func (d *Demo) graph() error {
	out := d.Options.Out
	if d.Options.DOT {
		return d.Provider.WriteGraph(out, scopedi.GraphDOT)
	}

	title.Fprintln(out, "registered services")

	for _, def := range d.Provider.Definitions() {
		lifetime[def.Lifetime].Fprintf(out, "  %-10s", def.Lifetime)
		fmt.Fprintf(out, " #%-3d %s", def.ID, def.ServiceType)
		if def.ImplementationType != nil && def.ImplementationType != def.ServiceType {
			fmt.Fprintf(out, " (%s)", def.ImplementationType)
		}
		fmt.Fprintln(out)
	}

	registry, err := scopedi.Resolve[*Registry](d.Provider)
	if err != nil {
		return err
	}
	ok.Fprintf(out, "registry built with repository %s\n", registry.Repository.Add())
	return nil
}

func (d *Demo) scopes(ctx context.Context) error {
	out := d.Options.Out
	title.Fprintln(out, "scope isolation")

	registry, err := scopedi.Resolve[*Registry](d.Provider)
	if err != nil {
		return err
	}

	for i := 1; i <= 2; i++ {
		scope := d.Provider.CreateScope(ctx)

		first, err := scopedi.Resolve[*UnitOfWork](scope)
		if err != nil {
			scope.Close()
			return err
		}
		second, err := scopedi.Resolve[*UnitOfWork](scope)
		if err != nil {
			scope.Close()
			return err
		}
		again, err := scopedi.Resolve[*Registry](scope)
		if err != nil {
			scope.Close()
			return err
		}

		fmt.Fprintf(out, "  scope %d: unit of work %s, cached=%t, shared registry=%t\n",
			i, first.ID, first == second, again == registry)

		if err := scope.Close(); err != nil {
			return err
		}
	}

	_, err = scopedi.Resolve[*UnitOfWork](d.Provider)
	if scopedi.IsScopeRequired(err) {
		ok.Fprintln(out, "  root provider refuses scoped services")
		return nil
	}
	return fmt.Errorf("expected a scope required error, got %v", err)
}

func (d *Demo) cycle() error {
	out := d.Options.Out
	title.Fprintln(out, "circular dependency")

	_, err := scopedi.Resolve[*pingService](d.Provider)
	if !scopedi.IsCircular(err) {
		return fmt.Errorf("expected a circular dependency error, got %v", err)
	}

	bad.Fprintln(out, err.Error())

	title.Fprintln(out, "constructor graph")
	return d.Provider.WriteGraph(out, scopedi.GraphText)
}

func (d *Demo) bench(ctx context.Context) error {
	out := d.Options.Out
	n := d.Options.Iterations
	title.Fprintf(out, "resolving %d times\n", n)

	scope := d.Provider.CreateScope(ctx)
	defer scope.Close()

	measure := func(name string, resolve func() error) error {
		start := time.Now()
		for i := 0; i < n; i++ {
			if err := resolve(); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		fmt.Fprintf(out, "  %-28s %12s  %8.1f ns/op\n", name, elapsed.Round(time.Microsecond),
			float64(elapsed.Nanoseconds())/float64(n))
		return nil
	}

	if err := measure("transient Repository (scope)", func() error {
		_, err := scopedi.Resolve[Repository](scope)
		return err
	}); err != nil {
		return err
	}

	if err := measure("singleton Registry (root)", func() error {
		_, err := scopedi.Resolve[*Registry](d.Provider)
		return err
	}); err != nil {
		return err
	}

	return measure("scoped UnitOfWork (scope)", func() error {
		_, err := scopedi.Resolve[*UnitOfWork](scope)
		return err
	})
}
