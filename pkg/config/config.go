// Package config contains all knobs and defaults used to configure Meadowlark.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
)

const (
	DefaultMaxRetryElapsedTime = 5 * time.Second
	DefaultCascadeMaxDepth     = 16
	DefaultLoadOrderCacheSize  = 64
)

var (
	logFormats       = []string{"text", "json"}
	logLevels        = []string{"none", "debug", "info", "warn", "error"}
	datastoreEngines = []string{"memory", "sqlite", "postgres"}
)

type DatastoreMetricsConfig struct {
	// Enabled enables export of the Datastore metrics.
	Enabled bool
}

// DatastoreConfig defines the datastore documents are written to.
type DatastoreConfig struct {
	// Engine is one of 'memory', 'sqlite' or 'postgres'.
	Engine   string
	URI      string
	Username string
	Password string

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections to the datastore in the idle connection
	// pool.
	MaxIdleConns int

	// ConnMaxIdleTime is the maximum amount of time a connection to the datastore may be idle.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime is the maximum amount of time a connection to the datastore may be reused.
	ConnMaxLifetime time.Duration

	Metrics DatastoreMetricsConfig
}

// SchemaConfig locates the schema document.
type SchemaConfig struct {
	// Path is a JSON or YAML file.
	Path string
}

// CommandsConfig tunes the write pipeline.
type CommandsConfig struct {
	// MaxRetryElapsedTime bounds the retries of transactions that lost against a concurrent
	// write. Zero disables retries.
	MaxRetryElapsedTime time.Duration

	// CascadeMaxDepth bounds the levels an identity update may cascade through.
	CascadeMaxDepth int

	// CoerceTypes converts string values at boolean and numeric paths before processing.
	CoerceTypes bool
}

type LoadOrderConfig struct {
	// CacheSize is the number of computed load orders kept.
	CacheSize int64
}

type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

type OTLPTraceConfig struct {
	Endpoint string
}

// TraceConfig defines the OpenTelemetry tracing of the binary.
type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string
}

type Config struct {
	Schema    SchemaConfig
	Datastore DatastoreConfig
	Commands  CommandsConfig
	LoadOrder LoadOrderConfig
	Log       LogConfig
	Trace     TraceConfig
}

// Verify reports the first invalid setting.
func (cfg *Config) Verify() error {
	if !slices.Contains(logFormats, cfg.Log.Format) {
		return fmt.Errorf("config 'log.format' must be one of %q", logFormats)
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("config 'log.level' must be one of %q", logLevels)
	}

	if !slices.Contains(datastoreEngines, cfg.Datastore.Engine) {
		return fmt.Errorf("config 'datastore.engine' must be one of %q", datastoreEngines)
	}

	if cfg.Datastore.Engine != "memory" && cfg.Datastore.URI == "" {
		return fmt.Errorf("config 'datastore.uri' is required for the '%s' engine", cfg.Datastore.Engine)
	}

	if cfg.Datastore.MaxOpenConns < 0 || cfg.Datastore.MaxIdleConns < 0 {
		return errors.New("config 'datastore.maxOpenConns' and 'datastore.maxIdleConns' cannot be negative")
	}

	if cfg.Commands.MaxRetryElapsedTime < 0 {
		return errors.New("config 'commands.maxRetryElapsedTime' cannot be negative")
	}

	if cfg.Commands.CascadeMaxDepth < 1 {
		return errors.New("config 'commands.cascadeMaxDepth' must be at least 1")
	}

	if cfg.LoadOrder.CacheSize < 1 {
		return errors.New("config 'loadOrder.cacheSize' must be at least 1")
	}

	if cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1 {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig is the configuration used when nothing else is set.
func DefaultConfig() *Config {
	return &Config{
		Datastore: DatastoreConfig{
			Engine:       "memory",
			MaxIdleConns: 10,
			MaxOpenConns: 30,
		},
		Commands: CommandsConfig{
			MaxRetryElapsedTime: DefaultMaxRetryElapsedTime,
			CascadeMaxDepth:     DefaultCascadeMaxDepth,
		},
		LoadOrder: LoadOrderConfig{
			CacheSize: DefaultLoadOrderCacheSize,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
			},
			SampleRatio: 0.2,
			ServiceName: build.ProjectName,
		},
	}
}

// MustDefaultConfig returns a verified DefaultConfig.
func MustDefaultConfig() *Config {
	config := DefaultConfig()
	if err := config.Verify(); err != nil {
		panic(err)
	}
	return config
}
