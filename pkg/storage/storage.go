// Package storage contains the datastore interfaces the write pipeline runs against, and
// their implementations.
//
//go:generate mockgen -source storage.go -destination ../../internal/mocks/mock_storage.go -package mocks
package storage

import (
	"context"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
)

// Datastore stores documents together with the ids they are known by and the ids they
// reference.
type Datastore interface {
	// RunInTx runs fn in a transaction, committed when fn returns nil. Implementations
	// return ErrTransactionalWriteFailed when a concurrent transaction prevented the commit;
	// the caller may then retry fn from the start.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close()
}

// Tx is the view of the datastore inside a transaction.
type Tx interface {
	// ReadByDocumentUUID returns ErrNotFound when no document has the given uuid.
	ReadByDocumentUUID(ctx context.Context, documentUUID string) (*DocumentRecord, error)

	// ReadByReferentialID returns the document whose referential id or superclass
	// referential id is id. It returns ErrNotFound when there is none.
	ReadByReferentialID(ctx context.Context, id identity.ReferentialID) (*DocumentRecord, error)

	// FindReferentialIDs returns the subset of ids under which a document is stored, as a
	// referential id or a superclass referential id.
	FindReferentialIDs(ctx context.Context, ids []identity.ReferentialID) ([]identity.ReferentialID, error)

	// ReadReferrers returns the documents referencing any of ids, ordered by uuid.
	ReadReferrers(ctx context.Context, ids []identity.ReferentialID) ([]*DocumentRecord, error)

	// Write inserts the record, or replaces the stored record with the same uuid. It
	// returns ErrCollision when another document holds one of the record's ids.
	Write(ctx context.Context, record *DocumentRecord) error

	// Delete removes a document. It returns ErrNotFound when no document has the uuid.
	Delete(ctx context.Context, documentUUID string) error
}
