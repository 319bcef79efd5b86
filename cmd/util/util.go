// Package util provides common utilities for spf13/cobra CLI utilities
// that can be used for various commands within this project.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/config"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/logger"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/memory"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/postgres"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlite"
)

// MustBindPFlag attempts to bind a specific key to a pflag (as used by cobra) and panics
// if the binding fails with a non-nil error.
func MustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func MustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// ReadConfig merges the config file, the environment and the bound flags over the
// defaults.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	setDefaults(cfg)

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every config key, so that environment variables are seen by
// viper.Unmarshal.
func setDefaults(cfg *config.Config) {
	viper.SetDefault("schema.path", cfg.Schema.Path)

	viper.SetDefault("datastore.engine", cfg.Datastore.Engine)
	viper.SetDefault("datastore.uri", cfg.Datastore.URI)
	viper.SetDefault("datastore.username", cfg.Datastore.Username)
	viper.SetDefault("datastore.password", cfg.Datastore.Password)
	viper.SetDefault("datastore.maxOpenConns", cfg.Datastore.MaxOpenConns)
	viper.SetDefault("datastore.maxIdleConns", cfg.Datastore.MaxIdleConns)
	viper.SetDefault("datastore.connMaxIdleTime", cfg.Datastore.ConnMaxIdleTime)
	viper.SetDefault("datastore.connMaxLifetime", cfg.Datastore.ConnMaxLifetime)
	viper.SetDefault("datastore.metrics.enabled", cfg.Datastore.Metrics.Enabled)

	viper.SetDefault("commands.maxRetryElapsedTime", cfg.Commands.MaxRetryElapsedTime)
	viper.SetDefault("commands.cascadeMaxDepth", cfg.Commands.CascadeMaxDepth)
	viper.SetDefault("commands.coerceTypes", cfg.Commands.CoerceTypes)

	viper.SetDefault("loadOrder.cacheSize", cfg.LoadOrder.CacheSize)

	viper.SetDefault("log.format", cfg.Log.Format)
	viper.SetDefault("log.level", cfg.Log.Level)

	viper.SetDefault("trace.enabled", cfg.Trace.Enabled)
	viper.SetDefault("trace.otlp.endpoint", cfg.Trace.OTLP.Endpoint)
	viper.SetDefault("trace.sampleRatio", cfg.Trace.SampleRatio)
	viper.SetDefault("trace.serviceName", cfg.Trace.ServiceName)
}

// ReadVerifiedConfig reads and verifies the config and builds the logger it describes.
func ReadVerifiedConfig() (*config.Config, logger.Logger, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, nil, err
	}
	l, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

// NewDatastore opens the datastore the config names. SQL datastores must have been migrated.
func NewDatastore(cfg config.DatastoreConfig, l logger.Logger) (storage.Datastore, error) {
	dsCfg := sqlcommon.NewConfig(
		sqlcommon.WithUsername(cfg.Username),
		sqlcommon.WithPassword(cfg.Password),
		sqlcommon.WithLogger(l),
		sqlcommon.WithMaxOpenConns(cfg.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(cfg.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(cfg.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(cfg.ConnMaxLifetime),
	)
	if cfg.Metrics.Enabled {
		dsCfg.ExportMetrics = true
	}

	switch cfg.Engine {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.New(cfg.URI, dsCfg)
	case "postgres":
		return postgres.New(cfg.URI, dsCfg)
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", cfg.Engine)
	}
}

func PrepareTempConfigDir(t *testing.T) string {
	_, err := os.Stat("/etc/meadowlark/config.yaml")
	require.ErrorIs(t, err, os.ErrNotExist, "Config file at /etc/meadowlark/config.yaml would disturb test result.")

	homedir := t.TempDir()
	t.Setenv("HOME", homedir)

	confdir := filepath.Join(homedir, ".meadowlark")
	require.NoError(t, os.Mkdir(confdir, 0750))

	return confdir
}

func PrepareTempConfigFile(t *testing.T, config string) {
	confdir := PrepareTempConfigDir(t)
	confFile, err := os.Create(filepath.Join(confdir, "config.yaml"))
	require.NoError(t, err)
	_, err = confFile.WriteString(config)
	require.NoError(t, err)
	require.NoError(t, confFile.Close())
}
