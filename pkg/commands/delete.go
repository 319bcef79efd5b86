package commands

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

type DeleteRequest struct {
	ResourceRequest
	DocumentUUID string
}

// DeleteCommand removes a stored document that no other document references.
type DeleteCommand struct {
	pipeline
}

func NewDeleteCommand(reader schema.Reader, datastore storage.Datastore, opts ...CommandOption) *DeleteCommand {
	return &DeleteCommand{pipeline: newPipeline(reader, datastore, opts)}
}

func (c *DeleteCommand) Execute(ctx context.Context, req *DeleteRequest) error {
	ctx, span := tracer.Start(ctx, "DeleteCommand.Execute", trace.WithAttributes(
		attribute.String("endpoint", req.ProjectEndpoint+"/"+req.Endpoint),
		attribute.String("document_uuid", req.DocumentUUID),
	))
	defer span.End()

	resource, err := c.resource(req.ResourceRequest)
	if err != nil {
		return err
	}

	err = c.runInTx(ctx, "delete", func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.ReadByDocumentUUID(ctx, req.DocumentUUID)
		if err != nil {
			return err
		}
		if !resource.Is(existing.ProjectName, existing.ResourceName) {
			return ErrResourceMismatch
		}

		referrers, err := tx.ReadReferrers(ctx, existing.ReferentialIDs())
		if err != nil {
			return err
		}
		if len(referrers) > 0 {
			e := &ReferencedDocumentError{DocumentUUID: existing.DocumentUUID}
			for _, r := range referrers {
				e.Referrers = append(e.Referrers, Referrer{
					DocumentUUID: r.DocumentUUID,
					ProjectName:  r.ProjectName,
					ResourceName: r.ResourceName,
				})
			}
			return e
		}

		return tx.Delete(ctx, existing.DocumentUUID)
	})
	if err != nil {
		return err
	}

	c.logger.DebugWithContext(ctx, "deleted document",
		zap.String("resource", resource.String()),
		zap.String("document_uuid", req.DocumentUUID),
	)
	return nil
}
