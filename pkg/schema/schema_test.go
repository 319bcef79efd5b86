package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/testfixtures/apischema"
)

func TestLoadFixture(t *testing.T) {
	s, err := schema.Load([]byte(apischema.EdFi))
	require.NoError(t, err)
	require.NotZero(t, s.Fingerprint())

	projects := s.Projects()
	require.Len(t, projects, 1)
	require.Equal(t, "ed-fi", projects[0].ProjectEndpointName)

	school, err := s.ResourceSchema("Ed-Fi", "School")
	require.NoError(t, err)
	require.Equal(t, "Ed-Fi", school.ProjectName)
	require.Equal(t, "schools", school.EndpointName)
	require.True(t, school.HasSuperclass())
	require.True(t, school.IsA("Ed-Fi", "EducationOrganization"))
	require.True(t, school.IsA("Ed-Fi", "School"))
	require.False(t, school.IsA("Ed-Fi", "LocalEducationAgency"))

	superPath, ok := school.SuperclassIdentityPath()
	require.True(t, ok)
	require.Equal(t, "$.educationOrganizationId", superPath.String())

	require.Len(t, school.References(), 1)
	require.Equal(t, "LocalEducationAgency", school.References()[0].ResourceName)
	require.Equal(t, "$.localEducationAgencyReference", school.References()[0].Parent.String())
	require.Len(t, school.DescriptorReferences(), 1)
	require.Equal(t, []string{schema.DescriptorIdentityPath}, school.DescriptorReferences()[0].IdentityPaths)

	abstract, err := s.AbstractResource("Ed-Fi", "EducationOrganization")
	require.NoError(t, err)
	require.Equal(t, []string{"LocalEducationAgency", "School"}, abstract.Subclasses)
}

func TestLoadOrdersReferencePathsByTargetIdentity(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	var courseOffering *schema.Reference
	for _, ref := range section.References() {
		if ref.Name == "CourseOffering" {
			courseOffering = ref
		}
	}
	require.NotNil(t, courseOffering)
	require.Equal(t, []string{"$.localCourseCode", "$.schoolReference.schoolId"}, courseOffering.IdentityPaths)
	require.Equal(t, "$.courseOfferingReference.localCourseCode", courseOffering.ReferencePaths[0].String())
	require.Equal(t, "$.courseOfferingReference", courseOffering.Parent.String())
}

func TestResourceSchemaByEndpoint(t *testing.T) {
	s := apischema.MustLoad()

	r, err := s.ResourceSchemaByEndpoint("Ed-Fi", "Schools")
	require.NoError(t, err)
	require.Equal(t, "School", r.ResourceName)

	_, err = s.ResourceSchemaByEndpoint("ed-fi", "nope")
	require.ErrorIs(t, err, schema.ErrResourceNotFound)

	_, err = s.ResourceSchemaByEndpoint("tpdm", "schools")
	require.ErrorIs(t, err, schema.ErrProjectNotFound)

	_, err = s.ResourceSchema("Ed-Fi", "Nope")
	require.ErrorIs(t, err, schema.ErrResourceNotFound)

	_, err = s.AbstractResource("Nope", "EducationOrganization")
	require.ErrorIs(t, err, schema.ErrProjectNotFound)
}

func TestLoadYAML(t *testing.T) {
	s, err := schema.Load([]byte(`
projectSchemas:
  ed-fi:
    projectName: Ed-Fi
    resourceSchemas:
      students:
        resourceName: Student
        identityJsonPaths: ["$.studentUniqueId"]
`))
	require.NoError(t, err)

	r, err := s.ResourceSchema("Ed-Fi", "Student")
	require.NoError(t, err)
	require.Equal(t, "$.studentUniqueId", r.IdentityPaths()[0].String())
}

func TestFingerprintFollowsContent(t *testing.T) {
	a := apischema.MustLoad()
	b := apischema.MustLoad()
	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := schema.MustLoad(`{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {}}}}`)
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		contains string
	}{
		{
			name:     "not_a_document",
			document: `[`,
			contains: "invalid api schema",
		},
		{
			name:     "no_projects",
			document: `{"projectSchemas": {}}`,
			contains: "no project schemas",
		},
		{
			name:     "missing_project_name",
			document: `{"projectSchemas": {"ed-fi": {"resourceSchemas": {}}}}`,
			contains: "project 'ed-fi' has no projectName",
		},
		{
			name: "invalid_identity_path",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"students": {"resourceName": "Student", "identityJsonPaths": ["studentUniqueId"]}}}}}`,
			contains: "the definition of resource 'Ed-Fi.Student' is invalid",
		},
		{
			name: "unknown_reference_target",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"students": {"resourceName": "Student", "identityJsonPaths": ["$.studentUniqueId"], "documentPathsMapping": {
					"School": {"isReference": true, "projectName": "Ed-Fi", "resourceName": "School",
						"referenceJsonPaths": [{"identityJsonPath": "$.schoolId", "referenceJsonPath": "$.schoolReference.schoolId"}]}}}}}}}`,
			contains: "reference 'School': resource not found: 'Ed-Fi.School'",
		},
		{
			name: "reference_missing_identity_path",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"schools": {"resourceName": "School", "identityJsonPaths": ["$.schoolId", "$.districtId"]},
				"students": {"resourceName": "Student", "identityJsonPaths": ["$.studentUniqueId"], "documentPathsMapping": {
					"School": {"isReference": true, "projectName": "Ed-Fi", "resourceName": "School",
						"referenceJsonPaths": [{"identityJsonPath": "$.schoolId", "referenceJsonPath": "$.schoolReference.schoolId"}]}}}}}}}`,
			contains: "declares 1 of the 2 identity paths",
		},
		{
			name: "descriptor_reference_to_non_descriptor",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"schools": {"resourceName": "School", "identityJsonPaths": ["$.schoolId"]},
				"students": {"resourceName": "Student", "identityJsonPaths": ["$.studentUniqueId"], "documentPathsMapping": {
					"School": {"isReference": true, "isDescriptor": true, "projectName": "Ed-Fi", "resourceName": "School", "path": "$.school"}}}}}}}`,
			contains: "is not a descriptor",
		},
		{
			name: "unknown_superclass",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"schools": {"resourceName": "School", "identityJsonPaths": ["$.schoolId"], "isSubclass": true,
					"superclassProjectName": "Ed-Fi", "superclassResourceName": "EducationOrganization"}}}}}`,
			contains: "superclass: resource not found",
		},
		{
			name: "uniqueness_without_array",
			document: `{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
				"schools": {"resourceName": "School", "identityJsonPaths": ["$.schoolId"],
					"arrayUniquenessConstraints": [["$.a.b", "$.a.c"]]}}}}}`,
			contains: "does not share an array",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := schema.Load([]byte(test.document))
			require.ErrorIs(t, err, schema.ErrInvalidSchema)
			require.ErrorContains(t, err, test.contains)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := schema.LoadFile("testdata/does-not-exist.json")
	require.ErrorContains(t, err, "read api schema")
}
