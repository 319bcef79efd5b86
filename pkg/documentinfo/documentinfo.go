// Package documentinfo derives everything the datastore needs to know about a document
// before it is written: its identity, the ids it can be referenced by, and the references
// it holds.
package documentinfo

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/reference"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/telemetry"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/validation"
)

var tracer = otel.Tracer("pkg/documentinfo")

// Superclass is the identity a subclass document is also known by.
type Superclass struct {
	Resource      identity.ResourceInfo
	Identity      identity.DocumentIdentity
	ReferentialID identity.ReferentialID
}

type DocumentInfo struct {
	Resource      identity.ResourceInfo
	Identity      identity.DocumentIdentity
	ReferentialID identity.ReferentialID
	// Superclass is nil unless the resource is a subclass.
	Superclass *Superclass

	References           []reference.DocumentReference
	ReferenceArrays      []reference.DocumentReferenceArray
	DescriptorReferences []reference.DescriptorReference
}

// ReferentialIDs returns the document's own id followed by its superclass id, if any.
func (d *DocumentInfo) ReferentialIDs() []identity.ReferentialID {
	ids := []identity.ReferentialID{d.ReferentialID}
	if d.Superclass != nil {
		ids = append(ids, d.Superclass.ReferentialID)
	}
	return ids
}

// Extract computes the DocumentInfo of doc. Documents violating an equality or array
// uniqueness constraint of the resource fail with validation.ValidationErrors.
func Extract(ctx context.Context, resource *schema.ResourceSchema, doc *document.Value) (*DocumentInfo, error) {
	_, span := tracer.Start(ctx, "documentinfo.Extract", trace.WithAttributes(
		attribute.String("resource", resource.String()),
	))
	defer span.End()

	info, err := extract(ctx, resource, doc)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("referential_id", info.ReferentialID.String()))
	return info, nil
}

func extract(ctx context.Context, resource *schema.ResourceSchema, doc *document.Value) (*DocumentInfo, error) {
	id, err := identity.Extract(resource, doc)
	if err != nil {
		return nil, err
	}

	info := &DocumentInfo{
		Resource:      identity.InfoOf(resource),
		Identity:      id,
		ReferentialID: identity.ComputeReferentialID(identity.InfoOf(resource), id),
	}
	if superInfo, superID, ok := identity.ExtractSuperclass(resource, id); ok {
		info.Superclass = &Superclass{
			Resource:      superInfo,
			Identity:      superID,
			ReferentialID: identity.ComputeReferentialID(superInfo, superID),
		}
	}

	var invalid validation.ValidationErrors
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info.References, info.ReferenceArrays, err = reference.ExtractReferences(resource, doc)
		return err
	})
	g.Go(func() error {
		var err error
		info.DescriptorReferences, err = reference.ExtractDescriptorReferences(resource, doc)
		return err
	})
	g.Go(func() error {
		invalid = validation.ValidateEqualityConstraints(doc, resource.CompiledEqualityConstraints())
		if unique := validation.ValidateArrayUniqueness(doc, resource.CompiledArrayUniquenessConstraints()); unique != nil {
			if invalid == nil {
				invalid = validation.ValidationErrors{}
			}
			invalid.Merge(unique)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := invalid.Err(); err != nil {
		return nil, err
	}

	return info, nil
}

// IsValidationError reports whether err carries validation failures rather than a
// malformed document.
func IsValidationError(err error) bool {
	var v validation.ValidationErrors
	return errors.As(err, &v)
}
