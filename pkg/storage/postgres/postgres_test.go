package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/test"
)

// testURIEnv names a disposable database the datastore tests may migrate and write to.
const testURIEnv = "MEADOWLARK_TEST_POSTGRES_URI"

func TestPostgresDatastore(t *testing.T) {
	uri := os.Getenv(testURIEnv)
	if uri == "" {
		t.Skipf("%s not set", testURIEnv)
	}

	status, err := NewMigrationProvider().Migrate(context.Background(), storage.MigrationConfig{
		Engine:  "postgres",
		URI:     uri,
		Timeout: 30 * time.Second,
	})
	require.NoError(t, err)
	require.True(t, status.Ready())

	ds, err := New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	defer ds.Close()
	test.RunAllTests(t, ds)
}

func TestHandleSQLError(t *testing.T) {
	t.Run("unique_violation_is_collision", func(t *testing.T) {
		err := HandleSQLError(&pgconn.PgError{Code: uniqueViolation})
		require.ErrorIs(t, err, storage.ErrCollision)
	})

	t.Run("serialization_failure_can_be_retried", func(t *testing.T) {
		err := HandleSQLError(&pgconn.PgError{Code: serializationFailure})
		require.ErrorIs(t, err, storage.ErrTransactionalWriteFailed)
	})

	t.Run("deadlock_can_be_retried", func(t *testing.T) {
		err := HandleSQLError(&pgconn.PgError{Code: deadlockDetected})
		require.ErrorIs(t, err, storage.ErrTransactionalWriteFailed)
	})

	t.Run("other_errors_are_wrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := HandleSQLError(cause)
		require.ErrorIs(t, err, cause)
		require.NotErrorIs(t, err, storage.ErrCollision)
		require.NotErrorIs(t, err, storage.ErrTransactionalWriteFailed)
	})
}
