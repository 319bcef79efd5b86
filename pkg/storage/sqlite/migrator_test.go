package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

func TestSQLiteMigrationProvider(t *testing.T) {
	provider := NewMigrationProvider()

	t.Run("Engine", func(t *testing.T) {
		require.Equal(t, "sqlite", provider.Engine())
		require.Implements(t, (*storage.MigrationProvider)(nil), provider)
	})

	t.Run("MigrateUpAndDown", func(t *testing.T) {
		config := storage.MigrationConfig{
			Engine:  "sqlite",
			URI:     filepath.Join(t.TempDir(), "test.db"),
			Timeout: 5 * time.Second,
		}
		ctx := context.Background()

		status, err := provider.Status(ctx, config)
		require.NoError(t, err)
		require.False(t, status.Ready())
		require.Equal(t, int64(1), status.Latest)
		require.Equal(t, storage.DocumentTables, status.MissingTables)

		status, err = provider.Migrate(ctx, config)
		require.NoError(t, err)
		require.True(t, status.Ready())
		require.Equal(t, []int64{1}, status.Applied)
		require.Equal(t, int64(1), status.Version)
		require.Empty(t, status.MissingTables)

		// Running again is a no-op.
		status, err = provider.Migrate(ctx, config)
		require.NoError(t, err)
		require.Empty(t, status.Applied)
		require.True(t, status.Ready())
	})

	t.Run("ConnectionFailure", func(t *testing.T) {
		config := storage.MigrationConfig{
			Engine:  "sqlite",
			URI:     "/invalid/path/that/does/not/exist/db.sqlite",
			Timeout: 1 * time.Second,
		}

		_, err := provider.Migrate(context.Background(), config)
		require.ErrorContains(t, err, "failed to initialize sqlite connection")
	})
}

func TestSQLiteMigrationProviderPrepareURI(t *testing.T) {
	t.Run("ValidPath", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		uri, err := prepareURI(storage.MigrationConfig{Engine: "sqlite", URI: dbPath})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, dbPath))
		require.Contains(t, uri, "_pragma=journal_mode")
	})

	t.Run("InMemoryDatabase", func(t *testing.T) {
		uri, err := prepareURI(storage.MigrationConfig{Engine: "sqlite", URI: ":memory:"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, ":memory:"))
		require.Contains(t, uri, "_pragma=journal_mode")
	})

	t.Run("FileWithQueryParams", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		uri, err := prepareURI(storage.MigrationConfig{Engine: "sqlite", URI: dbPath + "?_foreign_keys=on"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, dbPath))
		require.Contains(t, uri, "_foreign_keys=on")
		require.Contains(t, uri, "_pragma=journal_mode")
	})
}
