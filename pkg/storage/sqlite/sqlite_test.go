package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/test"
)

func newMigratedDatastore(t *testing.T) *Datastore {
	t.Helper()
	uri := filepath.Join(t.TempDir(), "meadowlark.db")

	_, err := NewMigrationProvider().Migrate(context.Background(), storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)
	return ds
}

func TestSQLiteDatastore(t *testing.T) {
	ds := newMigratedDatastore(t)
	test.RunAllTests(t, ds)
}

func TestSQLiteDatastoreWithMetrics(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "meadowlark.db")
	ds, err := New(uri, sqlcommon.NewConfig(sqlcommon.WithMetrics()))
	require.NoError(t, err)
	ds.Close()

	// The collector is unregistered on close, so a second datastore can register again.
	ds, err = New(uri, sqlcommon.NewConfig(sqlcommon.WithMetrics()))
	require.NoError(t, err)
	ds.Close()
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	ds := newMigratedDatastore(t)

	records := make([]*storage.DocumentRecord, 8)
	for i := range records {
		records[i] = test.NewRecord(t, `{"n": 1}`)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(records))
	for i, record := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = ds.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
				return tx.Write(ctx, record)
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, storage.ErrTransactionalWriteFailed)
		}
	}
}

func TestPrepareDSN(t *testing.T) {
	uri, err := PrepareDSN("/tmp/db.sqlite?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	require.Contains(t, uri, "busy_timeout%285000%29")
	require.Contains(t, uri, "journal_mode%28WAL%29")
	require.Contains(t, uri, "_txlock=immediate")
}
