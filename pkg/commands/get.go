package commands

import (
	"context"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

type GetRequest struct {
	ResourceRequest
	DocumentUUID string
}

// GetCommand reads a stored document by uuid.
type GetCommand struct {
	pipeline
}

func NewGetCommand(reader schema.Reader, datastore storage.Datastore, opts ...CommandOption) *GetCommand {
	return &GetCommand{pipeline: newPipeline(reader, datastore, opts)}
}

// Execute returns storage.ErrNotFound when the uuid names no document of the resource.
func (c *GetCommand) Execute(ctx context.Context, req *GetRequest) (*storage.DocumentRecord, error) {
	ctx, span := tracer.Start(ctx, "GetCommand.Execute")
	defer span.End()

	resource, err := c.resource(req.ResourceRequest)
	if err != nil {
		return nil, err
	}

	var record *storage.DocumentRecord
	err = c.datastore.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		record, err = tx.ReadByDocumentUUID(ctx, req.DocumentUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !resource.Is(record.ProjectName, record.ResourceName) {
		return nil, storage.ErrNotFound
	}
	return record, nil
}
