// Package logging builds the zap logger a container logs through.
package logging

import (
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/junioryono/scopedi/config"
)

var levelColors = map[zapcore.Level]*color.Color{
	zapcore.DebugLevel:  color.New(color.FgCyan),
	zapcore.InfoLevel:   color.New(color.FgGreen),
	zapcore.WarnLevel:   color.New(color.FgYellow),
	zapcore.ErrorLevel:  color.New(color.FgRed),
	zapcore.DPanicLevel: color.New(color.FgMagenta),
	zapcore.PanicLevel:  color.New(color.FgMagenta),
	zapcore.FatalLevel:  color.New(color.FgMagenta),
}

type options struct {
	out io.Writer
}

type Option func(*options)

// WithOutput writes log entries to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// New creates a logger for cfg. Console output uses a human readable encoder,
// json output the production encoder.
func New(cfg config.Logging, opts ...Option) (*zap.Logger, error) {
	o := &options{out: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	level, err := cfg.ZapLevel()
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, config.FormatJSON) {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		}
		if cfg.Color {
			encoderConfig.EncodeLevel = colorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(o.out), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	c, ok := levelColors[level]
	if !ok {
		enc.AppendString(level.CapitalString())
		return
	}
	enc.AppendString(c.Sprint(level.CapitalString()))
}

// Named returns a child logger named after serviceType, e.g. "UserService"
// for *app.UserService.
func Named(logger *zap.Logger, serviceType reflect.Type) *zap.Logger {
	if serviceType == nil {
		return logger
	}

	for serviceType.Kind() == reflect.Pointer {
		serviceType = serviceType.Elem()
	}

	name := serviceType.Name()
	if name == "" {
		name = serviceType.String()
	}
	return logger.Named(name).With(zap.String("service", serviceType.String()))
}

// For is Named for a type parameter.
func For[T any](logger *zap.Logger) *zap.Logger {
	return Named(logger, reflect.TypeOf((*T)(nil)).Elem())
}
