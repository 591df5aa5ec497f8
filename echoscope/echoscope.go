// Package echoscope gives every Echo request its own scopedi Scope.
//
//	e := echo.New()
//	e.Use(echoscope.ScopeMiddleware(provider))
//	e.GET("/users/:id", echoscope.Handle((*UserController).GetByID))
package echoscope

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/junioryono/scopedi"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler turns a scope failure into the handler's error.
	ErrorHandler      func(echo.Context, error) error
	CloseErrorHandler func(error)
	Middlewares       []func(*scopedi.Scope, echo.Context) error
	Logger            *zap.Logger
}

type Option func(*Config)

func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

func WithMiddleware(mw func(*scopedi.Scope, echo.Context) error) Option {
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

func internalError(echo.Context, error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c echo.Context, err error) error {
			logger.Error("request scope failed", zap.String("path", c.Path()), zap.Error(err))
			return internalError(c, err)
		}
	}
	if cfg.CloseErrorHandler == nil {
		cfg.CloseErrorHandler = func(err error) {
			logger.Error("failed to close scope", zap.Error(err))
		}
	}
	return cfg
}

// ScopeMiddleware creates a scope per request, attaches it to the request
// context and closes it once the handler chain returns.
func ScopeMiddleware(provider *scopedi.Provider, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if provider == nil {
				return cfg.ErrorHandler(c, scopedi.ErrProviderNil)
			}
			if provider.IsDisposed() {
				return cfg.ErrorHandler(c, scopedi.ErrProviderDisposed)
			}

			scope := provider.CreateScope(c.Request().Context())
			defer func() {
				if err := scope.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(scope.Context()))

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	PanicRecovery          bool
	PanicHandler           func(echo.Context, any) error
	ScopeErrorHandler      func(echo.Context, error) error
	ResolutionErrorHandler func(echo.Context, error) error
}

type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithScopeErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler:           func(c echo.Context, _ any) error { return internalError(c, nil) },
		ScopeErrorHandler:      internalError,
		ResolutionErrorHandler: internalError,
	}
}

// Handle resolves the controller T from the request scope and calls method.
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, scopeErr := scopedi.ScopeFromContext(c.Request().Context())
		if scopeErr != nil {
			return cfg.ScopeErrorHandler(c, scopeErr)
		}

		controller, resolveErr := scopedi.Resolve[T](scope)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
