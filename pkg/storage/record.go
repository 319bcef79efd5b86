package storage

import (
	"slices"
	"time"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
)

// DocumentRecord is a stored document.
type DocumentRecord struct {
	DocumentUUID    string
	ProjectName     string
	ResourceName    string
	ResourceVersion string
	IsDescriptor    bool

	ReferentialID identity.ReferentialID
	// SuperclassReferentialID is zero unless the resource is a subclass.
	SuperclassReferentialID identity.ReferentialID

	Document *document.Value

	// References holds the referential ids of every document and descriptor the document
	// references, without duplicates.
	References []identity.ReferentialID

	CreatedAt      time.Time
	LastModifiedAt time.Time
}

// ReferentialIDs returns the ids the document can be referenced by.
func (r *DocumentRecord) ReferentialIDs() []identity.ReferentialID {
	if r.SuperclassReferentialID.IsZero() {
		return []identity.ReferentialID{r.ReferentialID}
	}
	return []identity.ReferentialID{r.ReferentialID, r.SuperclassReferentialID}
}

// ReferencesAny reports whether the record references any of ids.
func (r *DocumentRecord) ReferencesAny(ids []identity.ReferentialID) bool {
	for _, id := range ids {
		if slices.Contains(r.References, id) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so that stores never share documents with callers.
func (r *DocumentRecord) Clone() *DocumentRecord {
	c := *r
	c.Document = r.Document.Clone()
	c.References = slices.Clone(r.References)
	return &c
}

// UniqueReferentialIDs returns ids without duplicates, keeping the first occurrence.
func UniqueReferentialIDs(ids []identity.ReferentialID) []identity.ReferentialID {
	seen := make(map[identity.ReferentialID]struct{}, len(ids))
	out := make([]identity.ReferentialID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
