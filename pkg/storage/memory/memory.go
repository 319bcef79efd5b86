package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

var tracer = otel.Tracer("pkg/storage/memory")

// MemoryBackend provides an ephemeral memory-backed implementation of [storage.Datastore].
// These instances may be safely shared by multiple go-routines.
//
// Transactions read from a snapshot taken when they start and buffer their writes. A
// transaction that wrote anything fails to commit with [storage.ErrTransactionalWriteFailed]
// if another transaction committed writes after its snapshot was taken.
type MemoryBackend struct {
	mu sync.RWMutex
	// version is incremented by every commit holding writes. GUARDED_BY(mu).
	version uint64
	// map: document uuid => record. GUARDED_BY(mu).
	documents map[string]*storage.DocumentRecord
}

// Ensures that [MemoryBackend] implements the [storage.Datastore] interface.
var _ storage.Datastore = (*MemoryBackend)(nil)

// New creates a new [MemoryBackend].
func New() *MemoryBackend {
	return &MemoryBackend{
		documents: map[string]*storage.DocumentRecord{},
	}
}

// Close does not do anything for [MemoryBackend].
func (s *MemoryBackend) Close() {}

// RunInTx see [storage.Datastore].RunInTx.
func (s *MemoryBackend) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	ctx, span := tracer.Start(ctx, "memory.RunInTx")
	defer span.End()

	s.mu.RLock()
	tx := &memoryTx{
		version:   s.version,
		documents: maps.Clone(s.documents),
		writes:    map[string]*storage.DocumentRecord{},
	}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != tx.version {
		return storage.ErrTransactionalWriteFailed
	}
	for documentUUID, record := range tx.writes {
		if record == nil {
			delete(s.documents, documentUUID)
			continue
		}
		s.documents[documentUUID] = record
	}
	s.version++
	return nil
}

// memoryTx is used by a single goroutine and needs no locking. Records in documents are
// never modified in place, so they are shared with the backend.
type memoryTx struct {
	version   uint64
	documents map[string]*storage.DocumentRecord
	// writes holds the records changed by the transaction; nil marks a deletion.
	writes map[string]*storage.DocumentRecord
}

var _ storage.Tx = (*memoryTx)(nil)

func (t *memoryTx) ReadByDocumentUUID(ctx context.Context, documentUUID string) (*storage.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := t.documents[documentUUID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.Clone(), nil
}

func (t *memoryTx) ReadByReferentialID(ctx context.Context, id identity.ReferentialID) (*storage.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range t.sorted() {
		if r.ReferentialID == id || r.SuperclassReferentialID == id {
			return r.Clone(), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *memoryTx) FindReferentialIDs(ctx context.Context, ids []identity.ReferentialID) ([]identity.ReferentialID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := map[identity.ReferentialID]struct{}{}
	for _, r := range t.documents {
		for _, id := range r.ReferentialIDs() {
			stored[id] = struct{}{}
		}
	}

	var found []identity.ReferentialID
	for _, id := range storage.UniqueReferentialIDs(ids) {
		if _, ok := stored[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (t *memoryTx) ReadReferrers(ctx context.Context, ids []identity.ReferentialID) ([]*storage.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*storage.DocumentRecord
	for _, r := range t.sorted() {
		if r.ReferencesAny(ids) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (t *memoryTx) Write(ctx context.Context, record *storage.DocumentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for uuid, r := range t.documents {
		if uuid == record.DocumentUUID {
			continue
		}
		if r.ReferentialID == record.ReferentialID {
			return storage.ErrCollision
		}
		if !record.SuperclassReferentialID.IsZero() && r.SuperclassReferentialID == record.SuperclassReferentialID {
			return storage.ErrCollision
		}
	}

	stored := record.Clone()
	stored.References = storage.UniqueReferentialIDs(stored.References)
	t.documents[record.DocumentUUID] = stored
	t.writes[record.DocumentUUID] = stored
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, documentUUID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.documents[documentUUID]; !ok {
		return storage.ErrNotFound
	}
	delete(t.documents, documentUUID)
	t.writes[documentUUID] = nil
	return nil
}

func (t *memoryTx) sorted() []*storage.DocumentRecord {
	out := make([]*storage.DocumentRecord, 0, len(t.documents))
	for _, r := range t.documents {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentUUID < out[j].DocumentUUID
	})
	return out
}
