package commands

import (
	"context"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/cascade"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

// cascadeStore lets a cascade walk the documents of a write transaction. Replaced
// documents get their ids and references recomputed.
type cascadeStore struct {
	p  *pipeline
	tx storage.Tx
}

var _ cascade.Store = (*cascadeStore)(nil)

func (s *cascadeStore) Referrers(ctx context.Context, ids []identity.ReferentialID) ([]cascade.Referrer, error) {
	records, err := s.tx.ReadReferrers(ctx, ids)
	if err != nil {
		return nil, err
	}

	referrers := make([]cascade.Referrer, 0, len(records))
	for _, r := range records {
		resource, err := resourceOf(s.p.reader, r)
		if err != nil {
			return nil, err
		}
		referrers = append(referrers, cascade.Referrer{
			DocumentUUID: r.DocumentUUID,
			Resource:     resource,
			Document:     r.Document,
		})
	}
	return referrers, nil
}

func (s *cascadeStore) Replace(ctx context.Context, referrer cascade.Referrer, doc *document.Value) error {
	record, err := s.tx.ReadByDocumentUUID(ctx, referrer.DocumentUUID)
	if err != nil {
		return err
	}

	doc, info, err := s.p.prepare(ctx, referrer.Resource, doc)
	if err != nil {
		return err
	}
	applyInfo(record, doc, info)
	record.LastModifiedAt = s.p.timestamp()
	return s.tx.Write(ctx, record)
}
