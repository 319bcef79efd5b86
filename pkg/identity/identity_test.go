package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/testfixtures/apischema"
)

const sectionDocument = `{
  "sectionIdentifier": "c00v",
  "courseOfferingReference": {"localCourseCode": "ALG-1", "schoolId": 255901001},
  "classPeriods": [
    {"classPeriodReference": {"classPeriodName": "01 - Traditional", "schoolId": 255901001}}
  ]
}`

func TestExtractFollowsSchemaOrder(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	id, err := identity.Extract(section, document.MustParse(sectionDocument))
	require.NoError(t, err)
	require.Equal(t, identity.DocumentIdentity{
		{Path: "$.sectionIdentifier", Value: "c00v"},
		{Path: "$.courseOfferingReference.localCourseCode", Value: "ALG-1"},
		{Path: "$.courseOfferingReference.schoolId", Value: "255901001"},
	}, id)

	value, ok := id.Get("$.courseOfferingReference.schoolId")
	require.True(t, ok)
	require.Equal(t, "255901001", value)
	require.Equal(t, "$.sectionIdentifier=c00v,$.courseOfferingReference.localCourseCode=ALG-1,$.courseOfferingReference.schoolId=255901001", id.String())
}

func TestExtractIgnoresFieldOrder(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	reordered := `{
  "classPeriods": [],
  "courseOfferingReference": {"schoolId": 255901001, "localCourseCode": "ALG-1"},
  "sectionIdentifier": "c00v"
}`
	a, err := identity.Extract(section, document.MustParse(sectionDocument))
	require.NoError(t, err)
	b, err := identity.Extract(section, document.MustParse(reordered))
	require.NoError(t, err)
	require.True(t, a.Equal(b))
	require.Equal(t, identity.ComputeReferentialID(identity.InfoOf(section), a), identity.ComputeReferentialID(identity.InfoOf(section), b))
}

func TestExtractNormalizesScalars(t *testing.T) {
	s := schema.MustLoad(`{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
		"things": {"resourceName": "Thing", "identityJsonPaths": ["$.a", "$.b", "$.c", "$.a"]}}}}}`)
	thing := apischema.MustResource(s, "Thing")

	id, err := identity.Extract(thing, document.MustParse(`{"a": 1.0, "b": true, "c": "2024-08-01"}`))
	require.NoError(t, err)
	require.Equal(t, identity.DocumentIdentity{
		{Path: "$.a", Value: "1"},
		{Path: "$.b", Value: "true"},
		{Path: "$.c", Value: "2024-08-01"},
	}, id)
}

func TestExtractMalformed(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")
	school := apischema.MustResource(s, "School")

	tests := []struct {
		name     string
		resource *schema.ResourceSchema
		document string
		path     string
		matches  int
	}{
		{
			name:     "missing",
			resource: school,
			document: `{"nameOfInstitution": "Grand Bend High School"}`,
			path:     "$.schoolId",
		},
		{
			name:     "object",
			resource: school,
			document: `{"schoolId": {"id": 1}}`,
			path:     "$.schoolId",
			matches:  1,
		},
		{
			name:     "null",
			resource: school,
			document: `{"schoolId": null}`,
			path:     "$.schoolId",
			matches:  1,
		},
		{
			name:     "partial_reference",
			resource: section,
			document: `{"sectionIdentifier": "c00v", "courseOfferingReference": {"localCourseCode": "ALG-1"}}`,
			path:     "$.courseOfferingReference.schoolId",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := identity.Extract(test.resource, document.MustParse(test.document))
			require.ErrorIs(t, err, identity.ErrMalformedIdentity)

			var malformed *identity.MalformedIdentityError
			require.ErrorAs(t, err, &malformed)
			require.Equal(t, test.path, malformed.Path)
			require.Equal(t, test.matches, malformed.Matches)
		})
	}
}

func TestExtractAmbiguousWildcard(t *testing.T) {
	s := schema.MustLoad(`{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi", "resourceSchemas": {
		"things": {"resourceName": "Thing", "identityJsonPaths": ["$.items[*].id"]}}}}}`)
	thing := apischema.MustResource(s, "Thing")

	_, err := identity.Extract(thing, document.MustParse(`{"items": [{"id": 1}, {"id": 2}]}`))
	var malformed *identity.MalformedIdentityError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, 2, malformed.Matches)

	id, err := identity.Extract(thing, document.MustParse(`{"items": [{"id": 1}]}`))
	require.NoError(t, err)
	require.Equal(t, "1", id[0].Value)
}

func TestExtractDescriptor(t *testing.T) {
	s := apischema.MustLoad()
	gradeLevel := apischema.MustResource(s, "GradeLevelDescriptor")

	id, err := identity.Extract(gradeLevel, document.MustParse(`{
		"namespace": "uri://ed-fi.org/GradeLevelDescriptor",
		"codeValue": "Ninth Grade",
		"shortDescription": "Ninth grade"
	}`))
	require.NoError(t, err)
	require.Equal(t, identity.DocumentIdentity{
		{Path: schema.DescriptorIdentityPath, Value: "uri://ed-fi.org/GradeLevelDescriptor#ninth grade"},
	}, id)

	_, err = identity.Extract(gradeLevel, document.MustParse(`{"codeValue": "Ninth Grade"}`))
	require.ErrorIs(t, err, identity.ErrMalformedIdentity)
}

func TestDescriptorURI(t *testing.T) {
	gradeLevel := apischema.MustResource(apischema.MustLoad(), "GradeLevelDescriptor")

	uri, err := identity.DescriptorURI(gradeLevel, document.MustParse(`{
		"namespace": "uri://ed-fi.org/GradeLevelDescriptor",
		"codeValue": "Ninth Grade"
	}`))
	require.NoError(t, err)
	require.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Ninth Grade", uri)

	_, err = identity.DescriptorURI(gradeLevel, document.MustParse(`{"namespace": "uri://ed-fi.org/GradeLevelDescriptor"}`))
	require.ErrorIs(t, err, identity.ErrMalformedIdentity)
}

func TestNormalizeDescriptorURI(t *testing.T) {
	require.Equal(t, "uri://Ed-Fi.org/GradeLevelDescriptor#ninth grade", identity.NormalizeDescriptorURI("uri://Ed-Fi.org/GradeLevelDescriptor#Ninth Grade"))
	require.Equal(t, "uri://Ed-Fi.org/GradeLevelDescriptor", identity.NormalizeDescriptorURI("uri://Ed-Fi.org/GradeLevelDescriptor"))
	require.Equal(t, "ns#a#b", identity.NormalizeDescriptorURI("ns#A#B"))
}

func TestExtractSuperclass(t *testing.T) {
	s := apischema.MustLoad()
	school := apischema.MustResource(s, "School")

	id := identity.DocumentIdentity{{Path: "$.schoolId", Value: "255901001"}}
	info, superclass, ok := identity.ExtractSuperclass(school, id)
	require.True(t, ok)
	require.Equal(t, identity.ResourceInfo{ProjectName: "Ed-Fi", ResourceName: "EducationOrganization"}, info)
	require.Equal(t, identity.DocumentIdentity{{Path: "$.educationOrganizationId", Value: "255901001"}}, superclass)
	require.Equal(t, "$.schoolId", id[0].Path)

	_, _, ok = identity.ExtractSuperclass(apischema.MustResource(s, "Section"), id)
	require.False(t, ok)
}

func TestExtractSuperclassAssociation(t *testing.T) {
	s := schema.MustLoad(`{"projectSchemas": {"ed-fi": {"projectName": "Ed-Fi",
		"abstractResources": {"GeneralStudentProgramAssociation": {"identityJsonPaths": ["$.beginDate", "$.programName"]}},
		"resourceSchemas": {
		"studentProgramAssociations": {"resourceName": "StudentProgramAssociation", "identityJsonPaths": ["$.beginDate", "$.programName"],
			"isSubclass": true, "subclassType": "association", "superclassProjectName": "Ed-Fi",
			"superclassResourceName": "GeneralStudentProgramAssociation"}}}}}`)
	spa := apischema.MustResource(s, "StudentProgramAssociation")

	id := identity.DocumentIdentity{{Path: "$.beginDate", Value: "2024-08-01"}, {Path: "$.programName", Value: "Gifted"}}
	info, superclass, ok := identity.ExtractSuperclass(spa, id)
	require.True(t, ok)
	require.Equal(t, "GeneralStudentProgramAssociation", info.ResourceName)
	require.Equal(t, id, superclass)
}
