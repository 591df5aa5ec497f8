// Package ginscope gives every Gin request its own scopedi Scope.
//
//	g := gin.New()
//	g.Use(ginscope.ScopeMiddleware(provider))
//	g.GET("/users/:id", ginscope.Handle((*UserController).GetByID))
package ginscope

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junioryono/scopedi"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler aborts the request when the scope cannot serve it.
	ErrorHandler      func(*gin.Context, error)
	CloseErrorHandler func(error)
	Middlewares       []func(*scopedi.Scope, *gin.Context) error
	Logger            *zap.Logger
}

type Option func(*Config)

func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after scope creation, e.g. to
// copy request data into a Scoped service.
func WithMiddleware(mw func(*scopedi.Scope, *gin.Context) error) Option {
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

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": http.StatusText(http.StatusInternalServerError),
	})
}

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			logger.Error("request scope failed", zap.String("path", c.FullPath()), zap.Error(err))
			abortInternal(c)
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
// context and closes it after the remaining handlers ran.
func ScopeMiddleware(provider *scopedi.Provider, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		if provider == nil {
			cfg.ErrorHandler(c, scopedi.ErrProviderNil)
			return
		}
		if provider.IsDisposed() {
			cfg.ErrorHandler(c, scopedi.ErrProviderDisposed)
			return
		}

		scope := provider.CreateScope(c.Request.Context())
		defer func() {
			if err := scope.Close(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		c.Request = c.Request.WithContext(scope.Context())

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	PanicRecovery          bool
	PanicHandler           func(*gin.Context, any)
	ScopeErrorHandler      func(*gin.Context, error)
	ResolutionErrorHandler func(*gin.Context, error)
}

type HandlerOption func(*HandlerConfig)

func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics. It only takes effect with
// WithPanicRecovery(true).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

func WithScopeErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicHandler:           func(c *gin.Context, _ any) { abortInternal(c) },
		ScopeErrorHandler:      func(c *gin.Context, _ error) { abortInternal(c) },
		ResolutionErrorHandler: func(c *gin.Context, _ error) { abortInternal(c) },
	}
}

// Handle resolves the controller T from the request scope and calls method.
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(c, v)
				}
			}()
		}

		scope, err := scopedi.ScopeFromContext(c.Request.Context())
		if err != nil {
			cfg.ScopeErrorHandler(c, err)
			return
		}

		controller, err := scopedi.Resolve[T](scope)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
