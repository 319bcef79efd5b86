// Package apischema holds a small schema document modelled on the Ed-Fi data standard,
// shared by tests across packages.
package apischema

import (
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

const ProjectName = "Ed-Fi"

// EdFi declares descriptors, an abstract EducationOrganization with two subclasses, and a
// chain CourseOffering <- Section <- StudentSectionAssociation whose identities embed
// each other so that identity updates cascade more than one level.
const EdFi = `{
  "projectSchemas": {
    "ed-fi": {
      "projectName": "Ed-Fi",
      "projectVersion": "5.0.0",
      "projectEndpointName": "ed-fi",
      "isExtensionProject": false,
      "abstractResources": {
        "EducationOrganization": {
          "identityJsonPaths": ["$.educationOrganizationId"]
        }
      },
      "resourceSchemas": {
        "gradeLevelDescriptors": {
          "resourceName": "GradeLevelDescriptor",
          "isDescriptor": true,
          "identityJsonPaths": ["$.namespace", "$.codeValue"],
          "documentPathsMapping": {}
        },
        "educationOrganizationCategoryDescriptors": {
          "resourceName": "EducationOrganizationCategoryDescriptor",
          "isDescriptor": true,
          "identityJsonPaths": ["$.namespace", "$.codeValue"],
          "documentPathsMapping": {}
        },
        "localEducationAgencies": {
          "resourceName": "LocalEducationAgency",
          "identityJsonPaths": ["$.localEducationAgencyId"],
          "isSubclass": true,
          "subclassType": "domainEntity",
          "superclassProjectName": "Ed-Fi",
          "superclassResourceName": "EducationOrganization",
          "superclassIdentityJsonPath": "$.educationOrganizationId",
          "numericJsonPaths": ["$.localEducationAgencyId"],
          "documentPathsMapping": {
            "EducationOrganizationCategoryDescriptor": {
              "isReference": true,
              "isDescriptor": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "EducationOrganizationCategoryDescriptor",
              "path": "$.categories[*].educationOrganizationCategoryDescriptor"
            },
            "ParentLocalEducationAgency": {
              "isReference": true,
              "isDescriptor": false,
              "isRequired": false,
              "projectName": "Ed-Fi",
              "resourceName": "LocalEducationAgency",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.localEducationAgencyId", "referenceJsonPath": "$.parentLocalEducationAgencyReference.localEducationAgencyId"}
              ]
            }
          }
        },
        "schools": {
          "resourceName": "School",
          "allowIdentityUpdates": false,
          "identityJsonPaths": ["$.schoolId"],
          "isSubclass": true,
          "subclassType": "domainEntity",
          "superclassProjectName": "Ed-Fi",
          "superclassResourceName": "EducationOrganization",
          "superclassIdentityJsonPath": "$.educationOrganizationId",
          "booleanJsonPaths": ["$.charterApproval"],
          "numericJsonPaths": ["$.schoolId", "$.localEducationAgencyReference.localEducationAgencyId"],
          "documentPathsMapping": {
            "GradeLevelDescriptor": {
              "isReference": true,
              "isDescriptor": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "GradeLevelDescriptor",
              "path": "$.gradeLevels[*].gradeLevelDescriptor"
            },
            "LocalEducationAgency": {
              "isReference": true,
              "isDescriptor": false,
              "isRequired": false,
              "projectName": "Ed-Fi",
              "resourceName": "LocalEducationAgency",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.localEducationAgencyId", "referenceJsonPath": "$.localEducationAgencyReference.localEducationAgencyId"}
              ]
            },
            "NameOfInstitution": {
              "isReference": false,
              "path": "$.nameOfInstitution"
            }
          },
          "arrayUniquenessConstraints": [["$.gradeLevels[*].gradeLevelDescriptor"]]
        },
        "classPeriods": {
          "resourceName": "ClassPeriod",
          "allowIdentityUpdates": true,
          "identityJsonPaths": ["$.classPeriodName", "$.schoolReference.schoolId"],
          "documentPathsMapping": {
            "School": {
              "isReference": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "School",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.schoolId", "referenceJsonPath": "$.schoolReference.schoolId"}
              ]
            }
          }
        },
        "courseOfferings": {
          "resourceName": "CourseOffering",
          "allowIdentityUpdates": true,
          "identityJsonPaths": ["$.localCourseCode", "$.schoolReference.schoolId"],
          "documentPathsMapping": {
            "School": {
              "isReference": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "School",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.schoolId", "referenceJsonPath": "$.schoolReference.schoolId"}
              ]
            }
          }
        },
        "sections": {
          "resourceName": "Section",
          "allowIdentityUpdates": true,
          "identityJsonPaths": ["$.sectionIdentifier", "$.courseOfferingReference.localCourseCode", "$.courseOfferingReference.schoolId"],
          "documentPathsMapping": {
            "CourseOffering": {
              "isReference": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "CourseOffering",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.schoolReference.schoolId", "referenceJsonPath": "$.courseOfferingReference.schoolId"},
                {"identityJsonPath": "$.localCourseCode", "referenceJsonPath": "$.courseOfferingReference.localCourseCode"}
              ]
            },
            "ClassPeriod": {
              "isReference": true,
              "isRequired": false,
              "projectName": "Ed-Fi",
              "resourceName": "ClassPeriod",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.classPeriodName", "referenceJsonPath": "$.classPeriods[*].classPeriodReference.classPeriodName"},
                {"identityJsonPath": "$.schoolReference.schoolId", "referenceJsonPath": "$.classPeriods[*].classPeriodReference.schoolId"}
              ]
            }
          },
          "equalityConstraints": [
            {"sourceJsonPath": "$.classPeriods[*].classPeriodReference.schoolId", "targetJsonPath": "$.courseOfferingReference.schoolId"}
          ],
          "arrayUniquenessConstraints": [
            ["$.classPeriods[*].classPeriodReference.classPeriodName", "$.classPeriods[*].classPeriodReference.schoolId"]
          ]
        },
        "studentSectionAssociations": {
          "resourceName": "StudentSectionAssociation",
          "allowIdentityUpdates": true,
          "identityJsonPaths": [
            "$.beginDate",
            "$.sectionReference.sectionIdentifier",
            "$.sectionReference.localCourseCode",
            "$.sectionReference.schoolId"
          ],
          "documentPathsMapping": {
            "Section": {
              "isReference": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "Section",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.sectionIdentifier", "referenceJsonPath": "$.sectionReference.sectionIdentifier"},
                {"identityJsonPath": "$.courseOfferingReference.localCourseCode", "referenceJsonPath": "$.sectionReference.localCourseCode"},
                {"identityJsonPath": "$.courseOfferingReference.schoolId", "referenceJsonPath": "$.sectionReference.schoolId"}
              ]
            }
          }
        },
        "accountabilityRatings": {
          "resourceName": "AccountabilityRating",
          "identityJsonPaths": ["$.ratingTitle", "$.educationOrganizationReference.educationOrganizationId"],
          "documentPathsMapping": {
            "EducationOrganization": {
              "isReference": true,
              "isRequired": true,
              "projectName": "Ed-Fi",
              "resourceName": "EducationOrganization",
              "referenceJsonPaths": [
                {"identityJsonPath": "$.educationOrganizationId", "referenceJsonPath": "$.educationOrganizationReference.educationOrganizationId"}
              ]
            }
          }
        }
      }
    }
  }
}`

// MustLoad returns the loaded EdFi schema.
func MustLoad() *schema.ApiSchema {
	return schema.MustLoad(EdFi)
}

// MustResource returns the named resource of the EdFi schema.
func MustResource(s schema.Reader, resourceName string) *schema.ResourceSchema {
	r, err := s.ResourceSchema(ProjectName, resourceName)
	if err != nil {
		panic(err)
	}
	return r
}
