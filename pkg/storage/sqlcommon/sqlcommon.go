package sqlcommon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/logger"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

var tracer = otel.Tracer("pkg/storage/sqlcommon")

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username string
	Password string
	Logger   logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(config *Config) {
		config.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(config *Config) {
		config.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the
// maximum number of open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the
// maximum number of idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets
// the maximum idle time for a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets
// the maximum lifetime for a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithMetrics returns a DatastoreOption that
// enables the export of metrics in the Config.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config instance with default values
// and applies any provided DatastoreOption modifications.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	return cfg
}

type errorHandlerFn func(error) error

// Dialect holds what differs between the SQL engines.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	TxOptions   *sql.TxOptions
	// HandleSQLError maps driver errors to storage errors.
	HandleSQLError errorHandlerFn
}

// Datastore is the engine independent part of the SQL backends. Documents live in the
// documents table; the ids each document references live in document_references.
type Datastore struct {
	db      *sql.DB
	dialect Dialect
	logger  logger.Logger
}

// Ensures that Datastore implements the Datastore interface.
var _ storage.Datastore = (*Datastore)(nil)

func NewDatastore(db *sql.DB, dialect Dialect, cfg *Config) *Datastore {
	return &Datastore{db: db, dialect: dialect, logger: cfg.Logger}
}

// DB returns the underlying connection pool.
func (s *Datastore) DB() *sql.DB {
	return s.db
}

// Close see [storage.Datastore].Close.
func (s *Datastore) Close() {
	s.db.Close()
}

// RunInTx see [storage.Datastore].RunInTx.
func (s *Datastore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	ctx, span := tracer.Start(ctx, s.dialect.Name+".RunInTx")
	defer span.End()

	txn, err := s.db.BeginTx(ctx, s.dialect.TxOptions)
	if err != nil {
		return s.dialect.HandleSQLError(err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	tx := &sqlTx{
		stbl:           sq.StatementBuilder.PlaceholderFormat(s.dialect.Placeholder).RunWith(txn),
		handleSQLError: s.dialect.HandleSQLError,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return s.dialect.HandleSQLError(err)
	}
	return nil
}

const (
	documentsTable  = "documents"
	referencesTable = "document_references"
)

var documentColumns = []string{
	"document_uuid",
	"project_name",
	"resource_name",
	"resource_version",
	"is_descriptor",
	"referential_id",
	"superclass_referential_id",
	"edfi_doc",
	"created_at",
	"last_modified_at",
}

type sqlTx struct {
	stbl           sq.StatementBuilderType
	handleSQLError errorHandlerFn
}

var _ storage.Tx = (*sqlTx)(nil)

func (t *sqlTx) ReadByDocumentUUID(ctx context.Context, documentUUID string) (*storage.DocumentRecord, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadByDocumentUUID")
	defer span.End()

	records, err := t.readDocuments(ctx, t.stbl.
		Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"document_uuid": documentUUID}))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

func (t *sqlTx) ReadByReferentialID(ctx context.Context, id identity.ReferentialID) (*storage.DocumentRecord, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadByReferentialID", trace.WithAttributes(
		attribute.String("referential_id", id.String()),
	))
	defer span.End()

	records, err := t.readDocuments(ctx, t.stbl.
		Select(documentColumns...).
		From(documentsTable).
		Where(sq.Or{
			sq.Eq{"referential_id": id.String()},
			sq.Eq{"superclass_referential_id": id.String()},
		}).
		OrderBy("document_uuid").
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

func (t *sqlTx) FindReferentialIDs(ctx context.Context, ids []identity.ReferentialID) ([]identity.ReferentialID, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.FindReferentialIDs")
	defer span.End()

	ids = storage.UniqueReferentialIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	keys := idStrings(ids)

	rows, err := t.stbl.
		Select("referential_id", "superclass_referential_id").
		From(documentsTable).
		Where(sq.Or{
			sq.Eq{"referential_id": keys},
			sq.Eq{"superclass_referential_id": keys},
		}).
		QueryContext(ctx)
	if err != nil {
		return nil, t.handleSQLError(err)
	}
	defer rows.Close()

	stored := map[string]struct{}{}
	for rows.Next() {
		var primary string
		var superclass sql.NullString
		if err := rows.Scan(&primary, &superclass); err != nil {
			return nil, t.handleSQLError(err)
		}
		stored[primary] = struct{}{}
		if superclass.Valid {
			stored[superclass.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, t.handleSQLError(err)
	}

	var found []identity.ReferentialID
	for i, key := range keys {
		if _, ok := stored[key]; ok {
			found = append(found, ids[i])
		}
	}
	return found, nil
}

func (t *sqlTx) ReadReferrers(ctx context.Context, ids []identity.ReferentialID) ([]*storage.DocumentRecord, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.ReadReferrers")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	columns := make([]string, len(documentColumns))
	for i, c := range documentColumns {
		columns[i] = "d." + c
	}

	return t.readDocuments(ctx, t.stbl.
		Select(columns...).
		Distinct().
		From(documentsTable+" d").
		Join(referencesTable+" r ON r.document_uuid = d.document_uuid").
		Where(sq.Eq{"r.referenced_id": idStrings(storage.UniqueReferentialIDs(ids))}).
		OrderBy("d.document_uuid"))
}

func (t *sqlTx) Write(ctx context.Context, record *storage.DocumentRecord) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.Write", trace.WithAttributes(
		attribute.String("document_uuid", record.DocumentUUID),
	))
	defer span.End()

	var superclass sql.NullString
	if !record.SuperclassReferentialID.IsZero() {
		superclass = sql.NullString{String: record.SuperclassReferentialID.String(), Valid: true}
	}

	_, err := t.ReadByDocumentUUID(ctx, record.DocumentUUID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = t.stbl.
			Insert(documentsTable).
			Columns(documentColumns...).
			Values(
				record.DocumentUUID,
				record.ProjectName,
				record.ResourceName,
				record.ResourceVersion,
				record.IsDescriptor,
				record.ReferentialID.String(),
				superclass,
				record.Document.String(),
				record.CreatedAt.UnixMilli(),
				record.LastModifiedAt.UnixMilli(),
			).
			ExecContext(ctx)
	case err == nil:
		_, err = t.stbl.
			Update(documentsTable).
			Set("resource_version", record.ResourceVersion).
			Set("referential_id", record.ReferentialID.String()).
			Set("superclass_referential_id", superclass).
			Set("edfi_doc", record.Document.String()).
			Set("last_modified_at", record.LastModifiedAt.UnixMilli()).
			Where(sq.Eq{"document_uuid": record.DocumentUUID}).
			ExecContext(ctx)
		if err != nil {
			break
		}
		_, err = t.stbl.
			Delete(referencesTable).
			Where(sq.Eq{"document_uuid": record.DocumentUUID}).
			ExecContext(ctx)
	default:
		return err
	}
	if err != nil {
		return t.handleSQLError(err)
	}

	refs := storage.UniqueReferentialIDs(record.References)
	if len(refs) == 0 {
		return nil
	}
	insert := t.stbl.Insert(referencesTable).Columns("document_uuid", "referenced_id")
	for _, ref := range refs {
		insert = insert.Values(record.DocumentUUID, ref.String())
	}
	if _, err := insert.ExecContext(ctx); err != nil {
		return t.handleSQLError(err)
	}
	return nil
}

func (t *sqlTx) Delete(ctx context.Context, documentUUID string) error {
	ctx, span := tracer.Start(ctx, "sqlcommon.Delete")
	defer span.End()

	if _, err := t.stbl.
		Delete(referencesTable).
		Where(sq.Eq{"document_uuid": documentUUID}).
		ExecContext(ctx); err != nil {
		return t.handleSQLError(err)
	}

	res, err := t.stbl.
		Delete(documentsTable).
		Where(sq.Eq{"document_uuid": documentUUID}).
		ExecContext(ctx)
	if err != nil {
		return t.handleSQLError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.handleSQLError(err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// readDocuments runs a select of documentColumns and loads the references of each row.
func (t *sqlTx) readDocuments(ctx context.Context, sb sq.SelectBuilder) ([]*storage.DocumentRecord, error) {
	rows, err := sb.QueryContext(ctx)
	if err != nil {
		return nil, t.handleSQLError(err)
	}
	defer rows.Close()

	var records []*storage.DocumentRecord
	for rows.Next() {
		r, err := scanDocument(rows)
		if err != nil {
			return nil, t.handleSQLError(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, t.handleSQLError(err)
	}
	rows.Close()

	for _, r := range records {
		if r.References, err = t.readReferences(ctx, r.DocumentUUID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (t *sqlTx) readReferences(ctx context.Context, documentUUID string) ([]identity.ReferentialID, error) {
	rows, err := t.stbl.
		Select("referenced_id").
		From(referencesTable).
		Where(sq.Eq{"document_uuid": documentUUID}).
		OrderBy("referenced_id").
		QueryContext(ctx)
	if err != nil {
		return nil, t.handleSQLError(err)
	}
	defer rows.Close()

	var refs []identity.ReferentialID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, t.handleSQLError(err)
		}
		id, err := identity.ParseReferentialID(s)
		if err != nil {
			return nil, fmt.Errorf("stored reference of %s: %w", documentUUID, err)
		}
		refs = append(refs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, t.handleSQLError(err)
	}
	return refs, nil
}

func scanDocument(rows *sql.Rows) (*storage.DocumentRecord, error) {
	var (
		r                   storage.DocumentRecord
		primary             string
		superclass          sql.NullString
		doc                 string
		created, lastUpdate int64
	)
	if err := rows.Scan(
		&r.DocumentUUID,
		&r.ProjectName,
		&r.ResourceName,
		&r.ResourceVersion,
		&r.IsDescriptor,
		&primary,
		&superclass,
		&doc,
		&created,
		&lastUpdate,
	); err != nil {
		return nil, err
	}

	var err error
	if r.ReferentialID, err = identity.ParseReferentialID(primary); err != nil {
		return nil, fmt.Errorf("stored referential id of %s: %w", r.DocumentUUID, err)
	}
	if superclass.Valid {
		if r.SuperclassReferentialID, err = identity.ParseReferentialID(superclass.String); err != nil {
			return nil, fmt.Errorf("stored superclass referential id of %s: %w", r.DocumentUUID, err)
		}
	}
	if r.Document, err = document.ParseString(doc); err != nil {
		return nil, fmt.Errorf("stored document %s: %w", r.DocumentUUID, err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.LastModifiedAt = time.UnixMilli(lastUpdate).UTC()
	return &r, nil
}

func idStrings(ids []identity.ReferentialID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
