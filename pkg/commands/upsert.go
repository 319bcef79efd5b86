package commands

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/id"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

type UpsertRequest struct {
	ResourceRequest
	Document *document.Value
}

type UpsertResponse struct {
	// Created is false when an existing document with the same identity was replaced.
	Created bool
	Record  *storage.DocumentRecord
}

// UpsertCommand inserts a document, or replaces the stored document with the same
// identity. Instances may be safely shared by multiple goroutines.
type UpsertCommand struct {
	pipeline
}

func NewUpsertCommand(reader schema.Reader, datastore storage.Datastore, opts ...CommandOption) *UpsertCommand {
	return &UpsertCommand{pipeline: newPipeline(reader, datastore, opts)}
}

func (c *UpsertCommand) Execute(ctx context.Context, req *UpsertRequest) (*UpsertResponse, error) {
	ctx, span := tracer.Start(ctx, "UpsertCommand.Execute", trace.WithAttributes(
		attribute.String("endpoint", req.ProjectEndpoint+"/"+req.Endpoint),
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

	var resp *UpsertResponse
	err = c.runInTx(ctx, "upsert", func(ctx context.Context, tx storage.Tx) error {
		if err := verifyReferences(ctx, tx, info); err != nil {
			return err
		}

		now := c.timestamp()
		existing, err := tx.ReadByReferentialID(ctx, info.ReferentialID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			documentUUID, err := id.NewString()
			if err != nil {
				return err
			}
			record := &storage.DocumentRecord{
				DocumentUUID:    documentUUID,
				ProjectName:     resource.ProjectName,
				ResourceName:    resource.ResourceName,
				ResourceVersion: projectVersion(c.reader, resource),
				IsDescriptor:    resource.IsDescriptor,
				CreatedAt:       now,
				LastModifiedAt:  now,
			}
			applyInfo(record, doc, info)
			if err := tx.Write(ctx, record); err != nil {
				return err
			}
			resp = &UpsertResponse{Created: true, Record: record}
		case err == nil:
			existing.ResourceVersion = projectVersion(c.reader, resource)
			existing.LastModifiedAt = now
			applyInfo(existing, doc, info)
			if err := tx.Write(ctx, existing); err != nil {
				return err
			}
			resp = &UpsertResponse{Record: existing}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithContext(ctx, "upserted document",
		zap.String("resource", resource.String()),
		zap.String("document_uuid", resp.Record.DocumentUUID),
		zap.Bool("created", resp.Created),
	)
	return resp, nil
}
