package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/internal/build"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/sqlcommon"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// Datastore provides a PostgreSQL based implementation of [storage.Datastore].
type Datastore struct {
	*sqlcommon.Datastore

	dbStatsCollector prometheus.Collector
}

// Ensures that Datastore implements the Datastore interface.
var _ storage.Datastore = (*Datastore)(nil)

// withCredentials replaces the user info of a connection uri. Empty overrides keep the
// value found in the uri.
func withCredentials(uri, username, password string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid postgres database uri: %w", err)
	}

	if username == "" && parsed.User != nil {
		username = parsed.User.Username()
	}

	switch {
	case password != "":
		parsed.User = url.UserPassword(username, password)
	case parsed.User != nil:
		if p, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(username, p)
		} else {
			parsed.User = url.User(username)
		}
	case username != "":
		parsed.User = url.User(username)
	}

	return parsed.String(), nil
}

// initDB initializes a new postgres database connection.
func initDB(uri string, cfg *sqlcommon.Config) (*sql.DB, error) {
	if cfg.Username != "" || cfg.Password != "" {
		var err error
		if uri, err = withCredentials(uri, cfg.Username, cfg.Password); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}

	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// New creates a new [Datastore] storage. The schema must have been migrated.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	db, err := initDB(uri, cfg)
	if err != nil {
		return nil, err
	}

	return NewWithDB(db, cfg)
}

// configureDB waits for the database to answer and registers the pool metrics.
func configureDB(db *sql.DB, cfg *sqlcommon.Config) (prometheus.Collector, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err := backoff.Retry(func() error {
		err := db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for database", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return collector, nil
}

// NewWithDB creates a new [Datastore] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*Datastore, error) {
	collector, err := configureDB(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure db: %w", err)
	}

	return &Datastore{
		Datastore: sqlcommon.NewDatastore(db, sqlcommon.Dialect{
			Name:           "postgres",
			Placeholder:    sq.Dollar,
			TxOptions:      &sql.TxOptions{Isolation: sql.LevelRepeatableRead},
			HandleSQLError: HandleSQLError,
		}, cfg),
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.Datastore].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.Datastore.Close()
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return storage.ErrCollision
		case serializationFailure, deadlockDetected:
			return fmt.Errorf("%w: %w", storage.ErrTransactionalWriteFailed, err)
		}
	}

	return fmt.Errorf("sql error: %w", err)
}
