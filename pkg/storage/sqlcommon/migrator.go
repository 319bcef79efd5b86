package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/pressly/goose/v3"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

// MigratorConfig describes how to migrate the document schema of one SQL engine.
type MigratorConfig struct {
	Engine  string
	Driver  string
	Dialect goose.Dialect
	// Migrations holds the goose sql files of the engine.
	Migrations fs.FS
	// Tables selects the names of the tables visible to the connection.
	Tables sq.SelectBuilder
	// PrepareURI turns the configured uri into a driver dsn.
	PrepareURI func(storage.MigrationConfig) (string, error)
}

// Migrator runs the embedded goose migrations of a SQL engine.
type Migrator struct {
	cfg MigratorConfig
}

var _ storage.MigrationProvider = (*Migrator)(nil)

func NewMigrator(cfg MigratorConfig) *Migrator {
	return &Migrator{cfg: cfg}
}

func (m *Migrator) Engine() string {
	return m.cfg.Engine
}

// Migrate see [storage.MigrationProvider].Migrate.
func (m *Migrator) Migrate(ctx context.Context, config storage.MigrationConfig) (*storage.MigrationStatus, error) {
	db, err := m.open(ctx, config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	provider, err := m.provider(db, config.Verbose)
	if err != nil {
		return nil, err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s db version: %w", m.cfg.Engine, err)
	}

	var results []*goose.MigrationResult
	target := int64(config.TargetVersion)
	switch {
	case target == 0:
		results, err = provider.Up(ctx)
	case target < current:
		results, err = provider.DownTo(ctx, target)
	case target > current:
		results, err = provider.UpTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run %s migrations: %w", m.cfg.Engine, err)
	}

	status, err := m.status(ctx, db, provider)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r != nil && r.Source != nil {
			status.Applied = append(status.Applied, r.Source.Version)
		}
	}
	return status, nil
}

// Status see [storage.MigrationProvider].Status.
func (m *Migrator) Status(ctx context.Context, config storage.MigrationConfig) (*storage.MigrationStatus, error) {
	db, err := m.open(ctx, config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	provider, err := m.provider(db, false)
	if err != nil {
		return nil, err
	}
	return m.status(ctx, db, provider)
}

// open connects to the database, retrying until config.Timeout elapses.
func (m *Migrator) open(ctx context.Context, config storage.MigrationConfig) (*sql.DB, error) {
	uri, err := m.cfg.PrepareURI(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(m.cfg.Driver, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", m.cfg.Engine, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = config.Timeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize %s connection: %w", m.cfg.Engine, err)
	}
	return db, nil
}

func (m *Migrator) provider(db *sql.DB, verbose bool) (*goose.Provider, error) {
	provider, err := goose.NewProvider(m.cfg.Dialect, db, m.cfg.Migrations,
		goose.WithDisableGlobalRegistry(true),
		goose.WithVerbose(verbose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s goose provider: %w", m.cfg.Engine, err)
	}
	return provider, nil
}

func (m *Migrator) status(ctx context.Context, db *sql.DB, provider *goose.Provider) (*storage.MigrationStatus, error) {
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s db version: %w", m.cfg.Engine, err)
	}

	status := &storage.MigrationStatus{Engine: m.cfg.Engine, Version: version}
	if sources := provider.ListSources(); len(sources) > 0 {
		status.Latest = sources[len(sources)-1].Version
	}

	tables, err := m.tables(ctx, db)
	if err != nil {
		return nil, err
	}
	status.MissingTables = storage.MissingDocumentTables(tables)
	return status, nil
}

func (m *Migrator) tables(ctx context.Context, db *sql.DB) ([]string, error) {
	query, args, err := m.cfg.Tables.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tables: %w", m.cfg.Engine, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
