package utils

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration parameters of the client.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	RetryCount int
	CacheSize  int
	Debug      bool
}

// LoadConfig resolves the configuration. Precedence, highest first: a flag
// that was set explicitly, the environment, the defaults. The endpoint
// prefers the internal address over the public one.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyEndpoint, DefaultEndpoint)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyRetryCount, DefaultRetryCount)
	v.SetDefault(KeyCacheSize, DefaultCacheSize)
	v.SetDefault(KeyDebug, false)

	envs := map[string][]string{
		KeyEndpoint:   {EnvInternalEndpoint, EnvPublicEndpoint},
		KeyTimeout:    {EnvTimeout},
		KeyRetryCount: {EnvRetryCount},
		KeyCacheSize:  {EnvCacheSize},
		KeyDebug:      {EnvDebug},
	}
	for key, names := range envs {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", key, err)
			}
		}
	}

	cfg := &Config{
		Endpoint:   v.GetString(KeyEndpoint),
		Timeout:    v.GetDuration(KeyTimeout),
		RetryCount: v.GetInt(KeyRetryCount),
		CacheSize:  v.GetInt(KeyCacheSize),
		Debug:      v.GetBool(KeyDebug),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: expected an absolute http(s) URL", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("invalid retry count %d: must not be negative", c.RetryCount)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("invalid cache size %d: must be at least 1", c.CacheSize)
	}
	return nil
}
