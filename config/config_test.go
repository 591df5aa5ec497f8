package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets the variables Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvLogLevel, EnvLogFormat, EnvEagerSingletons, EnvMetricsNamespace} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "scopedi.yaml", `
logging:
  level: debug
  format: json
container:
  eager_singletons: true
  metrics_namespace: app
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, FormatJSON, cfg.Logging.Format)
	assert.True(t, cfg.Container.EagerSingletons)
	assert.Equal(t, "app", cfg.Container.MetricsNamespace)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "scopedi.yaml", "logging:\n  level: debug\n  format: json\n")
	envFile := writeFile(t, ".env", "SCOPEDI_LOG_LEVEL=warn\nSCOPEDI_METRICS_NAMESPACE=fromfile\n")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(path, envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level, "process environment wins")
	assert.Equal(t, "fromfile", cfg.Container.MetricsNamespace, ".env beats defaults")
	assert.Equal(t, FormatJSON, cfg.Logging.Format, "YAML beats defaults")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeFile(t, "bad.yaml", "logging: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("bad bool", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvEagerSingletons, "sometimes")
		_, err := Load("")
		assert.ErrorContains(t, err, EnvEagerSingletons)
	})

	t.Run("bad format", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvLogFormat, "xml")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("bad level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvLogLevel, "loud")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestLogging_ZapLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		got, err := Logging{Level: tt.level}.ZapLevel()
		require.NoError(t, err, tt.level)
		assert.Equal(t, tt.want, got, tt.level)
	}
}
