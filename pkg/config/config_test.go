package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Verify())
	require.NotPanics(t, func() { MustDefaultConfig() })
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{
			name:   "log_format",
			modify: func(c *Config) { c.Log.Format = "xml" },
			err:    "config 'log.format' must be one of",
		},
		{
			name:   "log_level",
			modify: func(c *Config) { c.Log.Level = "verbose" },
			err:    "config 'log.level' must be one of",
		},
		{
			name:   "engine",
			modify: func(c *Config) { c.Datastore.Engine = "mysql" },
			err:    "config 'datastore.engine' must be one of",
		},
		{
			name:   "uri_required",
			modify: func(c *Config) { c.Datastore.Engine = "sqlite" },
			err:    "config 'datastore.uri' is required for the 'sqlite' engine",
		},
		{
			name:   "negative_conns",
			modify: func(c *Config) { c.Datastore.MaxOpenConns = -1 },
			err:    "cannot be negative",
		},
		{
			name:   "negative_retry",
			modify: func(c *Config) { c.Commands.MaxRetryElapsedTime = -time.Second },
			err:    "config 'commands.maxRetryElapsedTime' cannot be negative",
		},
		{
			name:   "cascade_depth",
			modify: func(c *Config) { c.Commands.CascadeMaxDepth = 0 },
			err:    "config 'commands.cascadeMaxDepth' must be at least 1",
		},
		{
			name:   "cache_size",
			modify: func(c *Config) { c.LoadOrder.CacheSize = 0 },
			err:    "config 'loadOrder.cacheSize' must be at least 1",
		},
		{
			name:   "sample_ratio",
			modify: func(c *Config) { c.Trace.SampleRatio = 1.5 },
			err:    "config 'trace.sampleRatio' must be between 0 and 1",
		},
		{
			name: "sqlite_with_uri",
			modify: func(c *Config) {
				c.Datastore.Engine = "sqlite"
				c.Datastore.URI = "file:meadowlark.db"
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(cfg)
			err := cfg.Verify()
			if test.err == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, test.err)
		})
	}
}
