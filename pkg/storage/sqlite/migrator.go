package sqlite

import (
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"

	"github.com/ed-fi-alliance-oss/meadowlark/assets"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
)

// NewMigrationProvider returns the provider of the embedded sqlite document schema.
func NewMigrationProvider() *sqlcommon.Migrator {
	return sqlcommon.NewMigrator(sqlcommon.MigratorConfig{
		Engine:     "sqlite",
		Driver:     "sqlite",
		Dialect:    goose.DialectSQLite3,
		Migrations: mustSub(assets.SqliteMigrationDir),
		Tables:     sq.Select("name").From("sqlite_master").Where(sq.Eq{"type": "table"}),
		PrepareURI: prepareURI,
	})
}

func prepareURI(config storage.MigrationConfig) (string, error) {
	return PrepareDSN(config.URI)
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(assets.EmbedMigrations, dir)
	if err != nil {
		panic(fmt.Errorf("embedded migrations %s: %w", dir, err))
	}
	return sub
}
