// Package fiberscope gives every Fiber request its own scopedi Scope. The
// scope is kept in the request locals and in the user context.
//
//	app := fiber.New()
//	app.Use(fiberscope.ScopeMiddleware(provider))
//	app.Get("/users/:id", fiberscope.Handle((*UserController).GetByID))
package fiberscope

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/junioryono/scopedi"
)

const scopeKey = "scopedi_scope"

// Config holds the configuration for the scope middleware.
type Config struct {
	ErrorHandler      func(*fiber.Ctx, error) error
	CloseErrorHandler func(error)
	Middlewares       []func(*scopedi.Scope, *fiber.Ctx) error
	Logger            *zap.Logger
}

// Option configures the scope middleware.
type Option func(*Config)

func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after scope creation. Functions
// run in the order they are added.
func WithMiddleware(mw func(*scopedi.Scope, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("request scope failed", zap.String("path", c.Path()), zap.Error(err))
			return internalError(c)
		}
	}
	if cfg.CloseErrorHandler == nil {
		cfg.CloseErrorHandler = func(err error) {
			logger.Error("failed to close scope", zap.Error(err))
		}
	}
	return cfg
}

// ScopeMiddleware creates a scope per request and closes it once the rest of
// the handler chain returns.
func ScopeMiddleware(provider *scopedi.Provider, opts ...Option) fiber.Handler {
	cfg := newConfig(opts)

	return func(c *fiber.Ctx) error {
		if provider == nil {
			return cfg.ErrorHandler(c, scopedi.ErrProviderNil)
		}
		if provider.IsDisposed() {
			return cfg.ErrorHandler(c, scopedi.ErrProviderDisposed)
		}

		scope := provider.CreateScope(c.UserContext())
		defer func() {
			if err := scope.Close(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		c.SetUserContext(scope.Context())
		c.Locals(scopeKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	PanicRecovery          bool
	PanicHandler           func(*fiber.Ctx, any) error
	ScopeErrorHandler      func(*fiber.Ctx, error) error
	ResolutionErrorHandler func(*fiber.Ctx, error) error
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithScopeErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler:           func(c *fiber.Ctx, _ any) error { return internalError(c) },
		ScopeErrorHandler:      func(c *fiber.Ctx, _ error) error { return internalError(c) },
		ResolutionErrorHandler: func(c *fiber.Ctx, _ error) error { return internalError(c) },
	}
}

// Handle resolves the controller T from the request scope and calls method.
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		scope := FromContext(c)
		if scope == nil {
			return cfg.ScopeErrorHandler(c, scopedi.ErrScopeNotInContext)
		}

		controller, resolveErr := scopedi.Resolve[T](scope)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}

// FromContext returns the request scope, or nil outside ScopeMiddleware.
func FromContext(c *fiber.Ctx) *scopedi.Scope {
	scope, _ := c.Locals(scopeKey).(*scopedi.Scope)
	return scope
}
