package reference_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/reference"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/testfixtures/apischema"
)

const sectionDocument = `{
  "sectionIdentifier": "c00v",
  "courseOfferingReference": {"schoolId": 255901001, "localCourseCode": "ALG-1"},
  "availableCredits": 1,
  "classPeriods": [
    {"classPeriodReference": {"classPeriodName": "01 - Traditional", "schoolId": 255901001}},
    {"classPeriodReference": {"schoolId": 255901001, "classPeriodName": "02 - Traditional"}}
  ],
  "programs": ["gifted", "talented"]
}`

func TestExtractReferencesGroupsArrayElements(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	flat, arrays, err := reference.ExtractReferences(section, document.MustParse(sectionDocument))
	require.NoError(t, err)
	require.Len(t, flat, 3)
	require.Len(t, arrays, 2)

	classPeriods := arrays[0]
	require.Equal(t, "ClassPeriod", classPeriods.Name)
	require.Equal(t, "$.classPeriods[*].classPeriodReference", classPeriods.Path.String())
	require.Len(t, classPeriods.References, 2)
	require.Equal(t, "$.classPeriods[1].classPeriodReference", classPeriods.References[1].Path.String())
	require.Equal(t, identity.DocumentIdentity{
		{Path: "$.classPeriodName", Value: "02 - Traditional"},
		{Path: "$.schoolReference.schoolId", Value: "255901001"},
	}, classPeriods.References[1].Identity)

	courseOffering := arrays[1]
	require.Equal(t, "$.courseOfferingReference", courseOffering.Path.String())
	require.Equal(t, identity.DocumentIdentity{
		{Path: "$.localCourseCode", Value: "ALG-1"},
		{Path: "$.schoolReference.schoolId", Value: "255901001"},
	}, courseOffering.References[0].Identity)
}

func TestReferenceMatchesTargetReferentialID(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")
	courseOffering := apischema.MustResource(s, "CourseOffering")

	target := document.MustParse(`{"localCourseCode": "ALG-1", "schoolReference": {"schoolId": 255901001}, "localCourseTitle": "Algebra I"}`)
	targetID, err := identity.Extract(courseOffering, target)
	require.NoError(t, err)

	flat, _, err := reference.ExtractReferences(section, document.MustParse(sectionDocument))
	require.NoError(t, err)

	var found bool
	for _, ref := range flat {
		if ref.Name == "CourseOffering" {
			found = true
			require.Equal(t, identity.ComputeReferentialID(identity.InfoOf(courseOffering), targetID), ref.ReferentialID)
		}
	}
	require.True(t, found)
}

func TestAbstractReferenceMatchesSuperclassIdentity(t *testing.T) {
	s := apischema.MustLoad()
	school := apischema.MustResource(s, "School")
	rating := apischema.MustResource(s, "AccountabilityRating")

	schoolID, err := identity.Extract(school, document.MustParse(`{"schoolId": 255901001}`))
	require.NoError(t, err)
	info, superclassID, ok := identity.ExtractSuperclass(school, schoolID)
	require.True(t, ok)

	flat, _, err := reference.ExtractReferences(rating, document.MustParse(`{
		"ratingTitle": "Exemplary",
		"educationOrganizationReference": {"educationOrganizationId": 255901001}
	}`))
	require.NoError(t, err)
	require.Len(t, flat, 1)
	require.Equal(t, identity.ComputeReferentialID(info, superclassID), flat[0].ReferentialID)
}

func TestExtractReferencesRoundTrip(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")
	doc := document.MustParse(sectionDocument)

	flat, _, err := reference.ExtractReferences(section, doc)
	require.NoError(t, err)

	for _, ref := range flat {
		_, ok := jsonpath.Get(doc, ref.Path)
		require.True(t, ok, ref.Path.String())

		for i, p := range ref.ValuePaths {
			require.True(t, p.IsConcrete())
			v, ok := jsonpath.Get(doc, p)
			require.True(t, ok)
			text, _ := v.Text()
			require.Equal(t, ref.Identity[i].Value, text)
		}
	}
}

func TestOptionalReferenceOmitted(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	flat, arrays, err := reference.ExtractReferences(section, document.MustParse(`{
		"sectionIdentifier": "c00v",
		"courseOfferingReference": {"schoolId": 255901001, "localCourseCode": "ALG-1"},
		"classPeriods": []
	}`))
	require.NoError(t, err)
	require.Len(t, flat, 1)
	require.Len(t, arrays, 1)
}

func TestIncompleteReference(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	_, _, err := reference.ExtractReferences(section, document.MustParse(`{
		"sectionIdentifier": "c00v",
		"courseOfferingReference": {"schoolId": 255901001, "localCourseCode": "ALG-1"},
		"classPeriods": [
			{"classPeriodReference": {"classPeriodName": "01 - Traditional", "schoolId": 255901001}},
			{"classPeriodReference": {"classPeriodName": "02 - Traditional"}}
		]
	}`))
	require.ErrorIs(t, err, reference.ErrIncompleteReference)

	var incomplete *reference.IncompleteReferenceError
	require.ErrorAs(t, err, &incomplete)
	require.Equal(t, "ClassPeriod", incomplete.Reference)
	require.Equal(t, "$.classPeriods[1].classPeriodReference", incomplete.Path)
	require.Equal(t, []string{"$.schoolReference.schoolId"}, incomplete.Missing)
}

func TestMalformedReference(t *testing.T) {
	s := apischema.MustLoad()
	section := apischema.MustResource(s, "Section")

	_, _, err := reference.ExtractReferences(section, document.MustParse(`{
		"sectionIdentifier": "c00v",
		"courseOfferingReference": {"schoolId": {"id": 255901001}, "localCourseCode": "ALG-1"}
	}`))
	require.ErrorIs(t, err, reference.ErrMalformedReference)
	require.ErrorContains(t, err, "$.courseOfferingReference.schoolId")
}

func TestExtractDescriptorReferences(t *testing.T) {
	s := apischema.MustLoad()
	school := apischema.MustResource(s, "School")
	gradeLevel := apischema.MustResource(s, "GradeLevelDescriptor")

	refs, err := reference.ExtractDescriptorReferences(school, document.MustParse(`{
		"schoolId": 255901001,
		"gradeLevels": [
			{"gradeLevelDescriptor": "uri://ed-fi.org/GradeLevelDescriptor#Ninth Grade"},
			{"gradeLevelDescriptor": "uri://ed-fi.org/GradeLevelDescriptor#Tenth grade"}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "$.gradeLevels[0].gradeLevelDescriptor", refs[0].Path.String())
	require.True(t, refs[0].Resource.IsDescriptor)
	require.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#tenth grade", refs[1].Identity[0].Value)

	descriptorID, err := identity.Extract(gradeLevel, document.MustParse(`{
		"namespace": "uri://ed-fi.org/GradeLevelDescriptor",
		"codeValue": "Ninth Grade"
	}`))
	require.NoError(t, err)
	require.Equal(t, identity.ComputeReferentialID(identity.InfoOf(gradeLevel), descriptorID), refs[0].ReferentialID)
}

func TestExtractDescriptorReferencesRejectsNonString(t *testing.T) {
	s := apischema.MustLoad()
	school := apischema.MustResource(s, "School")

	_, err := reference.ExtractDescriptorReferences(school, document.MustParse(`{
		"schoolId": 255901001,
		"gradeLevels": [{"gradeLevelDescriptor": 9}]
	}`))
	require.ErrorIs(t, err, reference.ErrMalformedReference)
}
