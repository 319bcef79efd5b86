// Package test holds the behavior every storage.Datastore implementation must show.
package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/id"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
)

func RunAllTests(t *testing.T, ds storage.Datastore) {
	t.Run("TestWriteAndRead", func(t *testing.T) { WriteAndReadTest(t, ds) })
	t.Run("TestReplace", func(t *testing.T) { ReplaceTest(t, ds) })
	t.Run("TestCollision", func(t *testing.T) { CollisionTest(t, ds) })
	t.Run("TestReferrers", func(t *testing.T) { ReferrersTest(t, ds) })
	t.Run("TestDelete", func(t *testing.T) { DeleteTest(t, ds) })
	t.Run("TestRollback", func(t *testing.T) { RollbackTest(t, ds) })
}

// NewReferentialID returns an id no other test uses.
func NewReferentialID(t *testing.T) identity.ReferentialID {
	t.Helper()
	s, err := id.NewString()
	require.NoError(t, err)
	return identity.ComputeReferentialID(
		identity.ResourceInfo{ProjectName: "Test", ResourceName: "Document"},
		identity.DocumentIdentity{{Path: "$.id", Value: s}},
	)
}

// NewRecord returns a record with fresh ids.
func NewRecord(t *testing.T, doc string, references ...identity.ReferentialID) *storage.DocumentRecord {
	t.Helper()
	documentUUID, err := id.NewString()
	require.NoError(t, err)

	now := time.UnixMilli(time.Now().UnixMilli()).UTC()
	return &storage.DocumentRecord{
		DocumentUUID:    documentUUID,
		ProjectName:     "Ed-Fi",
		ResourceName:    "School",
		ResourceVersion: "5.0.0",
		ReferentialID:   NewReferentialID(t),
		Document:        document.MustParse(doc),
		References:      references,
		CreatedAt:       now,
		LastModifiedAt:  now,
	}
}

func write(t *testing.T, ds storage.Datastore, records ...*storage.DocumentRecord) error {
	t.Helper()
	return ds.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		for _, r := range records {
			if err := tx.Write(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func read[T any](t *testing.T, ds storage.Datastore, fn func(ctx context.Context, tx storage.Tx) (T, error)) (T, error) {
	t.Helper()
	var out T
	err := ds.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = fn(ctx, tx)
		return err
	})
	return out, err
}

func requireSameRecord(t *testing.T, expected, actual *storage.DocumentRecord) {
	t.Helper()
	require.Equal(t, expected.DocumentUUID, actual.DocumentUUID)
	require.Equal(t, expected.ProjectName, actual.ProjectName)
	require.Equal(t, expected.ResourceName, actual.ResourceName)
	require.Equal(t, expected.ResourceVersion, actual.ResourceVersion)
	require.Equal(t, expected.IsDescriptor, actual.IsDescriptor)
	require.Equal(t, expected.ReferentialID, actual.ReferentialID)
	require.Equal(t, expected.SuperclassReferentialID, actual.SuperclassReferentialID)
	require.Equal(t, expected.Document.String(), actual.Document.String())
	require.ElementsMatch(t, expected.References, actual.References)
	require.True(t, expected.CreatedAt.Equal(actual.CreatedAt))
	require.True(t, expected.LastModifiedAt.Equal(actual.LastModifiedAt))
}

func WriteAndReadTest(t *testing.T, ds storage.Datastore) {
	target := NewReferentialID(t)
	record := NewRecord(t, `{"schoolId": 1, "nameOfInstitution": "Grand Bend", "addresses": [{"city": "Austin"}]}`, target, target)
	record.SuperclassReferentialID = NewReferentialID(t)
	require.NoError(t, write(t, ds, record))

	got, err := read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByDocumentUUID(ctx, record.DocumentUUID)
	})
	require.NoError(t, err)
	record.References = []identity.ReferentialID{target}
	requireSameRecord(t, record, got)

	for _, refID := range []identity.ReferentialID{record.ReferentialID, record.SuperclassReferentialID} {
		got, err := read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
			return tx.ReadByReferentialID(ctx, refID)
		})
		require.NoError(t, err)
		require.Equal(t, record.DocumentUUID, got.DocumentUUID)
	}

	missing := NewReferentialID(t)
	found, err := read(t, ds, func(ctx context.Context, tx storage.Tx) ([]identity.ReferentialID, error) {
		return tx.FindReferentialIDs(ctx, []identity.ReferentialID{missing, record.SuperclassReferentialID, record.ReferentialID})
	})
	require.NoError(t, err)
	require.Equal(t, []identity.ReferentialID{record.SuperclassReferentialID, record.ReferentialID}, found)

	_, err = read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByReferentialID(ctx, missing)
	})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByDocumentUUID(ctx, "00000000-0000-0000-0000-000000000000")
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func ReplaceTest(t *testing.T, ds storage.Datastore) {
	first, second := NewReferentialID(t), NewReferentialID(t)
	record := NewRecord(t, `{"schoolId": 2}`, first)
	require.NoError(t, write(t, ds, record))

	oldID := record.ReferentialID
	replaced := record.Clone()
	replaced.ReferentialID = NewReferentialID(t)
	replaced.Document = document.MustParse(`{"schoolId": 3}`)
	replaced.References = []identity.ReferentialID{second}
	replaced.LastModifiedAt = record.LastModifiedAt.Add(time.Second)
	require.NoError(t, write(t, ds, replaced))

	got, err := read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByDocumentUUID(ctx, record.DocumentUUID)
	})
	require.NoError(t, err)
	requireSameRecord(t, replaced, got)

	_, err = read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByReferentialID(ctx, oldID)
	})
	require.ErrorIs(t, err, storage.ErrNotFound)

	referrers, err := read(t, ds, func(ctx context.Context, tx storage.Tx) ([]*storage.DocumentRecord, error) {
		return tx.ReadReferrers(ctx, []identity.ReferentialID{first})
	})
	require.NoError(t, err)
	require.Empty(t, referrers)
}

func CollisionTest(t *testing.T, ds storage.Datastore) {
	record := NewRecord(t, `{"schoolId": 4}`)
	record.SuperclassReferentialID = NewReferentialID(t)
	require.NoError(t, write(t, ds, record))

	samePrimary := NewRecord(t, `{"schoolId": 4}`)
	samePrimary.ReferentialID = record.ReferentialID
	require.ErrorIs(t, write(t, ds, samePrimary), storage.ErrCollision)

	sameSuperclass := NewRecord(t, `{"localEducationAgencyId": 4}`)
	sameSuperclass.SuperclassReferentialID = record.SuperclassReferentialID
	require.ErrorIs(t, write(t, ds, sameSuperclass), storage.ErrCollision)

	_, err := read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByDocumentUUID(ctx, sameSuperclass.DocumentUUID)
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func ReferrersTest(t *testing.T, ds storage.Datastore) {
	a, b, c := NewReferentialID(t), NewReferentialID(t), NewReferentialID(t)
	first := NewRecord(t, `{"n": 1}`, a, b)
	second := NewRecord(t, `{"n": 2}`, b)
	third := NewRecord(t, `{"n": 3}`, c)
	require.NoError(t, write(t, ds, first, second, third))

	referrers, err := read(t, ds, func(ctx context.Context, tx storage.Tx) ([]*storage.DocumentRecord, error) {
		return tx.ReadReferrers(ctx, []identity.ReferentialID{a, b})
	})
	require.NoError(t, err)
	require.Len(t, referrers, 2)
	require.Equal(t, first.DocumentUUID, referrers[0].DocumentUUID)
	require.Equal(t, second.DocumentUUID, referrers[1].DocumentUUID)
	require.ElementsMatch(t, []identity.ReferentialID{a, b}, referrers[0].References)

	none, err := read(t, ds, func(ctx context.Context, tx storage.Tx) ([]*storage.DocumentRecord, error) {
		return tx.ReadReferrers(ctx, nil)
	})
	require.NoError(t, err)
	require.Empty(t, none)
}

func DeleteTest(t *testing.T, ds storage.Datastore) {
	target := NewReferentialID(t)
	record := NewRecord(t, `{"n": 5}`, target)
	require.NoError(t, write(t, ds, record))

	del := func() error {
		return ds.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
			return tx.Delete(ctx, record.DocumentUUID)
		})
	}
	require.NoError(t, del())
	require.ErrorIs(t, del(), storage.ErrNotFound)

	referrers, err := read(t, ds, func(ctx context.Context, tx storage.Tx) ([]*storage.DocumentRecord, error) {
		return tx.ReadReferrers(ctx, []identity.ReferentialID{target})
	})
	require.NoError(t, err)
	require.Empty(t, referrers)
}

func RollbackTest(t *testing.T, ds storage.Datastore) {
	record := NewRecord(t, `{"n": 6}`)
	boom := errors.New("boom")

	err := ds.RunInTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Write(ctx, record); err != nil {
			return err
		}
		got, err := tx.ReadByDocumentUUID(ctx, record.DocumentUUID)
		if err != nil {
			return err
		}
		require.Equal(t, record.DocumentUUID, got.DocumentUUID)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = read(t, ds, func(ctx context.Context, tx storage.Tx) (*storage.DocumentRecord, error) {
		return tx.ReadByDocumentUUID(ctx, record.DocumentUUID)
	})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
