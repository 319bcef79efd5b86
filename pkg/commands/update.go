package commands

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/cascade"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

type UpdateRequest struct {
	ResourceRequest
	DocumentUUID string
	Document     *document.Value
}

type UpdateResponse struct {
	Record *storage.DocumentRecord
	// Cascaded counts the referencing documents rewritten because the identity changed.
	Cascaded int
}

// UpdateCommand replaces a stored document by uuid. When the identity changes, the
// documents embedding the old identity are rewritten in the same transaction.
type UpdateCommand struct {
	pipeline
}

func NewUpdateCommand(reader schema.Reader, datastore storage.Datastore, opts ...CommandOption) *UpdateCommand {
	return &UpdateCommand{pipeline: newPipeline(reader, datastore, opts)}
}

func (c *UpdateCommand) Execute(ctx context.Context, req *UpdateRequest) (*UpdateResponse, error) {
	ctx, span := tracer.Start(ctx, "UpdateCommand.Execute", trace.WithAttributes(
		attribute.String("endpoint", req.ProjectEndpoint+"/"+req.Endpoint),
		attribute.String("document_uuid", req.DocumentUUID),
	))
	defer span.End()

	resource, err := c.resource(req.ResourceRequest)
	if err != nil {
		return nil, err
	}
	doc, info, err := c.prepare(ctx, resource, req.Document)
	if err != nil {
		return nil, err
	}

	var resp *UpdateResponse
	err = c.runInTx(ctx, "update", func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.ReadByDocumentUUID(ctx, req.DocumentUUID)
		if err != nil {
			return err
		}
		if !resource.Is(existing.ProjectName, existing.ResourceName) {
			return ErrResourceMismatch
		}

		identityChanged := existing.ReferentialID != info.ReferentialID
		if identityChanged && !resource.AllowIdentityUpdates {
			return ErrIdentityUpdateNotAllowed
		}
		if err := verifyReferences(ctx, tx, info); err != nil {
			return err
		}

		original := existing.Document
		record := existing.Clone()
		record.ResourceVersion = projectVersion(c.reader, resource)
		record.LastModifiedAt = c.timestamp()
		applyInfo(record, doc, info)
		if err := tx.Write(ctx, record); err != nil {
			return err
		}

		resp = &UpdateResponse{Record: record}
		if !identityChanged {
			return nil
		}

		resp.Cascaded, err = c.walker.Propagate(ctx, &cascadeStore{p: &c.pipeline, tx: tx}, cascade.Change{
			Resource: resource,
			Original: original,
			Modified: doc,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithContext(ctx, "updated document",
		zap.String("resource", resource.String()),
		zap.String("document_uuid", req.DocumentUUID),
		zap.Int("cascaded", resp.Cascaded),
	)
	return resp, nil
}
