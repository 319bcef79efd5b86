package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
)

var (
	// ErrIdentityUpdateNotAllowed is returned when an update changes the identity of a
	// resource that does not allow identity updates.
	ErrIdentityUpdateNotAllowed = errors.New("the identity of the resource does not match and it cannot be updated")

	// ErrResourceMismatch is returned when an update or delete names a document of
	// another resource.
	ErrResourceMismatch = errors.New("the document belongs to another resource")
)

// MissingReference is a reference whose target is not stored.
type MissingReference struct {
	Name     string
	Resource identity.ResourceInfo
	Identity identity.DocumentIdentity
}

// ReferenceNotFoundError lists the references of a document whose targets are not stored.
type ReferenceNotFoundError struct {
	References []MissingReference
}

func (e *ReferenceNotFoundError) Error() string {
	parts := make([]string, len(e.References))
	for i, r := range e.References {
		parts[i] = fmt.Sprintf("%s (%s)", r.Resource.ResourceName, r.Identity)
	}
	return "referenced documents not found: " + strings.Join(parts, "; ")
}

// Referrer names a stored document that holds a reference.
type Referrer struct {
	DocumentUUID string
	ProjectName  string
	ResourceName string
}

// ReferencedDocumentError is returned when deleting a document other documents reference.
type ReferencedDocumentError struct {
	DocumentUUID string
	Referrers    []Referrer
}

func (e *ReferencedDocumentError) Error() string {
	parts := make([]string, len(e.Referrers))
	for i, r := range e.Referrers {
		parts[i] = r.ResourceName + " " + r.DocumentUUID
	}
	return fmt.Sprintf("document %s is referenced by: %s", e.DocumentUUID, strings.Join(parts, ", "))
}
