package utils

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziyixi/tasksync/testutils"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvInternalEndpoint, EnvPublicEndpoint, EnvTimeout, EnvRetryCount, EnvCacheSize, EnvDebug} {
		testutils.SetEnv(t, key, "")
	}
}

func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyEndpoint, DefaultEndpoint, "")
	flags.Duration(KeyTimeout, 10*time.Second, "")
	flags.Int(KeyRetryCount, DefaultRetryCount, "")
	flags.Int(KeyCacheSize, DefaultCacheSize, "")
	flags.Bool(KeyDebug, false, "")
	return flags
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearConfigEnv(t)

		cfg, err := LoadConfig(nil)

		require.NoError(t, err)
		assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, 0, cfg.RetryCount)
		assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
		assert.False(t, cfg.Debug)
	})

	t.Run("internal endpoint wins over public", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvInternalEndpoint, "http://bff:8080/query")
		testutils.SetEnv(t, EnvPublicEndpoint, "http://localhost:9000/query")

		cfg, err := LoadConfig(nil)

		require.NoError(t, err)
		assert.Equal(t, "http://bff:8080/query", cfg.Endpoint)
	})

	t.Run("public endpoint when internal is unset", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvPublicEndpoint, "http://localhost:9000/query")

		cfg, err := LoadConfig(nil)

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000/query", cfg.Endpoint)
	})

	t.Run("explicit flag wins over environment", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvInternalEndpoint, "http://bff:8080/query")
		flags := newFlags(t)
		require.NoError(t, flags.Parse([]string{"--endpoint", "https://tasks.example.com/query"}))

		cfg, err := LoadConfig(flags)

		require.NoError(t, err)
		assert.Equal(t, "https://tasks.example.com/query", cfg.Endpoint)
	})

	t.Run("unset flags fall through to environment", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvInternalEndpoint, "http://bff:8080/query")
		testutils.SetEnv(t, EnvRetryCount, "2")
		flags := newFlags(t)
		require.NoError(t, flags.Parse(nil))

		cfg, err := LoadConfig(flags)

		require.NoError(t, err)
		assert.Equal(t, "http://bff:8080/query", cfg.Endpoint)
		assert.Equal(t, 2, cfg.RetryCount)
	})

	t.Run("transport settings from environment", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvTimeout, "3s")
		testutils.SetEnv(t, EnvCacheSize, "16")
		testutils.SetEnv(t, EnvDebug, "true")

		cfg, err := LoadConfig(nil)

		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
		assert.Equal(t, 16, cfg.CacheSize)
		assert.True(t, cfg.Debug)
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		clearConfigEnv(t)
		testutils.SetEnv(t, EnvInternalEndpoint, "bff:8080")

		_, err := LoadConfig(nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid endpoint")
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Endpoint: DefaultEndpoint, Timeout: time.Second, CacheSize: 1}
	assert.NoError(t, valid.Validate())

	noCache := valid
	noCache.CacheSize = 0
	assert.Error(t, noCache.Validate())

	negativeRetry := valid
	negativeRetry.RetryCount = -1
	assert.Error(t, negativeRetry.Validate())

	noTimeout := valid
	noTimeout.Timeout = 0
	assert.Error(t, noTimeout.Validate())
}
