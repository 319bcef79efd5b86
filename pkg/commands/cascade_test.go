package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/storage/memory"
)

// D references R directly and again through A and B, so an update of R moves the
// identity of D twice: once from R and once more when B changes.
const diamondSchema = `
projectSchemas:
  sample:
    projectName: Sample
    projectVersion: 1.0.0
    projectEndpointName: sample
    resourceSchemas:
      rs:
        resourceName: R
        allowIdentityUpdates: true
        identityJsonPaths: ["$.rId"]
        documentPathsMapping: {}
      as:
        resourceName: A
        allowIdentityUpdates: true
        identityJsonPaths: ["$.aName", "$.rReference.rId"]
        documentPathsMapping:
          R:
            isReference: true
            isRequired: true
            projectName: Sample
            resourceName: R
            referenceJsonPaths:
              - {identityJsonPath: "$.rId", referenceJsonPath: "$.rReference.rId"}
      bs:
        resourceName: B
        allowIdentityUpdates: true
        identityJsonPaths: ["$.bName", "$.aReference.aName", "$.aReference.rId"]
        documentPathsMapping:
          A:
            isReference: true
            isRequired: true
            projectName: Sample
            resourceName: A
            referenceJsonPaths:
              - {identityJsonPath: "$.aName", referenceJsonPath: "$.aReference.aName"}
              - {identityJsonPath: "$.rReference.rId", referenceJsonPath: "$.aReference.rId"}
      ds:
        resourceName: D
        allowIdentityUpdates: true
        identityJsonPaths: ["$.dName", "$.rReference.rId", "$.bReference.bName", "$.bReference.aName", "$.bReference.rId"]
        documentPathsMapping:
          R:
            isReference: true
            isRequired: true
            projectName: Sample
            resourceName: R
            referenceJsonPaths:
              - {identityJsonPath: "$.rId", referenceJsonPath: "$.rReference.rId"}
          B:
            isReference: true
            isRequired: true
            projectName: Sample
            resourceName: B
            referenceJsonPaths:
              - {identityJsonPath: "$.bName", referenceJsonPath: "$.bReference.bName"}
              - {identityJsonPath: "$.aReference.aName", referenceJsonPath: "$.bReference.aName"}
              - {identityJsonPath: "$.aReference.rId", referenceJsonPath: "$.bReference.rId"}
      es:
        resourceName: E
        identityJsonPaths: ["$.eName"]
        documentPathsMapping:
          D:
            isReference: true
            isRequired: true
            projectName: Sample
            resourceName: D
            referenceJsonPaths:
              - {identityJsonPath: "$.dName", referenceJsonPath: "$.dReference.dName"}
              - {identityJsonPath: "$.rReference.rId", referenceJsonPath: "$.dReference.rId"}
              - {identityJsonPath: "$.bReference.bName", referenceJsonPath: "$.dReference.bName"}
              - {identityJsonPath: "$.bReference.aName", referenceJsonPath: "$.dReference.aName"}
              - {identityJsonPath: "$.bReference.rId", referenceJsonPath: "$.dReference.bRId"}
`

func TestUpdateCascadesDocumentRewrittenTwice(t *testing.T) {
	reader := schema.MustLoad(diamondSchema)
	ds := memory.New()
	t.Cleanup(ds.Close)

	upsert := NewUpsertCommand(reader, ds)
	update := NewUpdateCommand(reader, ds)
	get := NewGetCommand(reader, ds)

	sample := func(endpoint string) ResourceRequest {
		return ResourceRequest{ProjectEndpoint: "sample", Endpoint: endpoint}
	}
	put := func(endpoint, doc string) *storage.DocumentRecord {
		t.Helper()
		resp, err := upsert.Execute(context.Background(), &UpsertRequest{
			ResourceRequest: sample(endpoint),
			Document:        document.MustParse(doc),
		})
		require.NoError(t, err)
		return resp.Record
	}
	read := func(endpoint, documentUUID string) *storage.DocumentRecord {
		t.Helper()
		record, err := get.Execute(context.Background(), &GetRequest{ResourceRequest: sample(endpoint), DocumentUUID: documentUUID})
		require.NoError(t, err)
		return record
	}

	r := put("rs", `{"rId": "1"}`)
	put("as", `{"aName": "a", "rReference": {"rId": "1"}}`)
	put("bs", `{"bName": "b", "aReference": {"aName": "a", "rId": "1"}}`)
	d := put("ds", `{"dName": "d", "rReference": {"rId": "1"}, "bReference": {"bName": "b", "aName": "a", "rId": "1"}}`)
	e := put("es", `{"eName": "e", "dReference": {"dName": "d", "rId": "1", "bName": "b", "aName": "a", "bRId": "1"}}`)

	resp, err := update.Execute(context.Background(), &UpdateRequest{
		ResourceRequest: sample("rs"),
		DocumentUUID:    r.DocumentUUID,
		Document:        document.MustParse(`{"rId": "2"}`),
	})
	require.NoError(t, err)
	require.Equal(t, 6, resp.Cascaded)

	gotD := read("ds", d.DocumentUUID)
	require.Equal(t,
		`{"dName":"d","rReference":{"rId":"2"},"bReference":{"bName":"b","aName":"a","rId":"2"}}`,
		gotD.Document.String())

	gotE := read("es", e.DocumentUUID)
	require.Equal(t,
		`{"eName":"e","dReference":{"dName":"d","rId":"2","bName":"b","aName":"a","bRId":"2"}}`,
		gotE.Document.String())
	require.Contains(t, gotE.References, gotD.ReferentialID)
}
