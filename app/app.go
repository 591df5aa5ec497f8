// Package app assembles an application around a scopedi container.
//
// A Builder owns the service collection. Extensions add services to it and
// get a chance to use the built provider before the application is resolved.
//
//	b := app.NewBuilder(app.WithConfig(cfg))
//	b.AddExtension(&HTTPExtension{})
//	b.Services().AddSingleton(NewRepository)
//
//	server, provider, err := app.Build[*Server](b)
//	if err != nil {
//		return err
//	}
//	return app.Run(ctx, server, provider)
package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/junioryono/scopedi"
	"github.com/junioryono/scopedi/config"
	"github.com/junioryono/scopedi/internal/reflection"
	"github.com/junioryono/scopedi/logging"
	"github.com/junioryono/scopedi/promscope"
)

// Application is the entry point resolved by Build.
type Application interface {
	Run(ctx context.Context) error
}

// Extension contributes services to a Builder.
type Extension interface {
	// Name identifies the extension. Adding a second extension with the same
	// name replaces the first.
	Name() string

	// ConfigureServices registers the extension's services.
	ConfigureServices(services *scopedi.Collection) error

	// UseServices is called with the built root provider, in the order the
	// extensions were added.
	UseServices(provider *scopedi.Provider) error
}

// Builder collects services and extensions for an application.
type Builder struct {
	cfg        *config.Config
	logger     *zap.Logger
	registerer prometheus.Registerer
	setDefault bool
	err        error

	services     *scopedi.Collection
	providerOpts []scopedi.ProviderOption
	extensions   []Extension
}

// Option configures a Builder.
type Option func(*Builder)

// WithConfig configures logging and container options from cfg. A logger set
// with WithLogger takes precedence over the configured one.
func WithConfig(cfg *config.Config) Option {
	return func(b *Builder) {
		b.cfg = cfg
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithRegisterer sets where resolution metrics are registered when the
// configuration names a metrics namespace. Defaults to
// prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(b *Builder) {
		b.registerer = reg
	}
}

// WithProviderOptions passes opts to Collection.Build.
func WithProviderOptions(opts ...scopedi.ProviderOption) Option {
	return func(b *Builder) {
		b.providerOpts = append(b.providerOpts, opts...)
	}
}

// AsDefault makes the built provider the package default provider.
func AsDefault() Option {
	return func(b *Builder) {
		b.setDefault = true
	}
}

// NewBuilder creates a Builder. Configuration errors are reported by Build.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(b)
	}

	if b.cfg == nil {
		b.cfg = config.Default()
	}

	if b.logger == nil {
		logger, err := logging.New(b.cfg.Logging)
		if err != nil {
			b.err = fmt.Errorf("configure logging: %w", err)
			logger = zap.NewNop()
		}
		b.logger = logger
	}

	b.services = scopedi.NewCollection(scopedi.WithLogger(b.logger))

	if b.cfg.Container.EagerSingletons {
		b.providerOpts = append(b.providerOpts, scopedi.WithEagerSingletons())
	}

	return b
}

// Services returns the collection services are registered in.
func (b *Builder) Services() *scopedi.Collection {
	return b.services
}

// Logger returns the logger the container logs through.
func (b *Builder) Logger() *zap.Logger {
	return b.logger
}

// AddExtension adds ext. Its ConfigureServices runs when the application is
// built.
func (b *Builder) AddExtension(ext Extension) *Builder {
	if ext == nil {
		return b
	}

	for i, existing := range b.extensions {
		if existing.Name() == ext.Name() {
			b.extensions[i] = ext
			return b
		}
	}

	b.extensions = append(b.extensions, ext)
	return b
}

// Extensions returns the extensions in the order they were added.
func (b *Builder) Extensions() []Extension {
	out := make([]Extension, len(b.extensions))
	copy(out, b.extensions)
	return out
}

// Build configures every extension, builds the provider, lets extensions use
// it and resolves T. T is registered as a Singleton unless already present;
// a pointer-to-struct T without a registration gets its exported fields
// injected.
func Build[T Application](b *Builder) (T, *scopedi.Provider, error) {
	var zero T

	if b.err != nil {
		return zero, nil, b.err
	}

	for _, ext := range b.extensions {
		if err := ext.ConfigureServices(b.services); err != nil {
			return zero, nil, fmt.Errorf("extension %q: configure services: %w", ext.Name(), err)
		}
	}

	if !scopedi.IsRegistered[T](b.services) {
		if err := registerApplication[T](b.services); err != nil {
			return zero, nil, err
		}
	}

	opts := b.providerOpts
	if ns := b.cfg.Container.MetricsNamespace; ns != "" {
		observer, err := promscope.NewObserver(b.registerer, ns)
		if err != nil {
			return zero, nil, err
		}
		opts = append(opts, scopedi.WithObserver(observer))
	}

	provider, err := b.services.Build(opts...)
	if err != nil {
		return zero, nil, err
	}

	for _, ext := range b.extensions {
		if err := ext.UseServices(provider); err != nil {
			return zero, nil, errors.Join(
				fmt.Errorf("extension %q: use services: %w", ext.Name(), err),
				provider.Close(),
			)
		}
	}

	application, err := scopedi.Resolve[T](provider)
	if err != nil {
		return zero, nil, errors.Join(err, provider.Close())
	}

	if b.setDefault {
		scopedi.SetDefaultProvider(provider)
	}

	b.logger.Info("application built",
		zap.String("application", reflect.TypeOf((*T)(nil)).Elem().String()),
		zap.Int("services", len(provider.Definitions())),
		zap.Int("extensions", len(b.extensions)),
	)

	return application, provider, nil
}

func registerApplication[T Application](services *scopedi.Collection) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("application %s is not registered and is not a pointer to a struct", t)
	}

	ctor, err := reflection.StructConstructor(t.Elem())
	if err != nil {
		return fmt.Errorf("application %s: %w", t, err)
	}

	services.AddSingleton(ctor.Interface())
	return services.Err()
}

// Run runs application and closes provider once it returns.
func Run(ctx context.Context, application Application, provider *scopedi.Provider) error {
	logger := zap.NewNop()
	if provider != nil {
		if l, err := scopedi.Resolve[*zap.Logger](provider); err == nil {
			logger = l
		}
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))

	start := time.Now()
	logger.Info("application starting")

	runErr := application.Run(ctx)

	var closeErr error
	if provider != nil {
		closeErr = provider.Close()
	}

	if runErr != nil {
		logger.Error("application failed", zap.Duration("uptime", time.Since(start)), zap.Error(runErr))
	} else {
		logger.Info("application stopped", zap.Duration("uptime", time.Since(start)))
	}

	return errors.Join(runErr, closeErr)
}
