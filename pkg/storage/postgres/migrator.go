package postgres

import (
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"

	"github.com/ed-fi-alliance-oss/meadowlark/assets"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
)

// NewMigrationProvider returns the provider of the embedded postgres document schema.
func NewMigrationProvider() *sqlcommon.Migrator {
	migrations, err := fs.Sub(assets.EmbedMigrations, assets.PostgresMigrationDir)
	if err != nil {
		panic(fmt.Errorf("embedded migrations %s: %w", assets.PostgresMigrationDir, err))
	}

	return sqlcommon.NewMigrator(sqlcommon.MigratorConfig{
		Engine:     "postgres",
		Driver:     "pgx",
		Dialect:    goose.DialectPostgres,
		Migrations: migrations,
		Tables: sq.Select("table_name").
			From("information_schema.tables").
			Where("table_schema = current_schema()").
			PlaceholderFormat(sq.Dollar),
		PrepareURI: prepareURI,
	})
}

func prepareURI(config storage.MigrationConfig) (string, error) {
	return withCredentials(config.URI, config.Username, config.Password)
}
