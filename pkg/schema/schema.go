// Package schema contains the declarative resource metadata that drives identity,
// reference and constraint handling.
//
// A schema document is produced by an external compiler and loaded once per process.
// Every path expression it declares is compiled at load time so that per-request
// extraction never re-parses paths.
package schema

import (
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
)

// SubclassType values.
const (
	SubclassDomainEntity = "domainEntity"
	SubclassAssociation  = "association"
)

// ApiSchema is the root of a schema document.
type ApiSchema struct {
	// ProjectSchemas is keyed by project endpoint name (e.g. 'ed-fi').
	ProjectSchemas map[string]*ProjectSchema `json:"projectSchemas"`

	fingerprint uint64
	projects    map[string]*ProjectSchema
}

// ProjectSchema describes one project: a core data standard or an extension.
type ProjectSchema struct {
	ProjectName         string `json:"projectName"`
	ProjectVersion      string `json:"projectVersion"`
	ProjectEndpointName string `json:"projectEndpointName"`
	Description         string `json:"description"`
	IsExtensionProject  bool   `json:"isExtensionProject"`

	// AbstractResources is keyed by resource name (e.g. 'EducationOrganization').
	AbstractResources map[string]*AbstractResourceSchema `json:"abstractResources"`

	// ResourceSchemas is keyed by endpoint name (e.g. 'schools').
	ResourceSchemas map[string]*ResourceSchema `json:"resourceSchemas"`

	byName     map[string]*ResourceSchema
	byEndpoint map[string]*ResourceSchema
}

// AbstractResourceSchema describes a polymorphic resource type that is never stored on
// its own. Its concrete subclasses share its identity through the superclass linkage.
type AbstractResourceSchema struct {
	ResourceName      string   `json:"resourceName"`
	IdentityJSONPaths []string `json:"identityJsonPaths"`

	// ProjectName is filled at load time.
	ProjectName string `json:"-"`
	// Subclasses holds the resource names of the concrete subclasses, filled at load time.
	Subclasses []string `json:"-"`
}

// ResourceSchema is the metadata for one concrete resource type.
type ResourceSchema struct {
	ResourceName            string `json:"resourceName"`
	IsDescriptor            bool   `json:"isDescriptor"`
	IsSchoolYearEnumeration bool   `json:"isSchoolYearEnumeration"`
	AllowIdentityUpdates    bool   `json:"allowIdentityUpdates"`

	IdentityJSONPaths          []string                 `json:"identityJsonPaths"`
	DocumentPathsMapping       map[string]DocumentPaths `json:"documentPathsMapping"`
	EqualityConstraints        []EqualityConstraint     `json:"equalityConstraints"`
	ArrayUniquenessConstraints [][]string               `json:"arrayUniquenessConstraints"`

	IsSubclass                 bool   `json:"isSubclass"`
	SubclassType               string `json:"subclassType"`
	SuperclassProjectName      string `json:"superclassProjectName"`
	SuperclassResourceName     string `json:"superclassResourceName"`
	SuperclassIdentityJSONPath string `json:"superclassIdentityJsonPath"`

	BooleanJSONPaths []string `json:"booleanJsonPaths"`
	NumericJSONPaths []string `json:"numericJsonPaths"`

	// ProjectName and EndpointName are filled at load time.
	ProjectName  string `json:"-"`
	EndpointName string `json:"-"`

	identityPaths  []jsonpath.Path
	superclassPath jsonpath.Path
	booleanPaths   []jsonpath.Path
	numericPaths   []jsonpath.Path
	references     []*Reference
	descriptors    []*Reference
	equality       []CompiledEqualityConstraint
	uniqueness     [][]jsonpath.Path
}

// DocumentPaths describes how one logical field of a document maps to paths. Reference
// entries carry ReferenceJSONPaths; descriptor entries and plain scalars carry Path.
type DocumentPaths struct {
	IsReference        bool                `json:"isReference"`
	IsDescriptor       bool                `json:"isDescriptor"`
	IsRequired         bool                `json:"isRequired"`
	ProjectName        string              `json:"projectName"`
	ResourceName       string              `json:"resourceName"`
	ReferenceJSONPaths []ReferenceJSONPath `json:"referenceJsonPaths"`
	Path               string              `json:"path"`
}

// ReferenceJSONPath pairs the identity path of the referenced resource with the
// location in the referencing document holding that value.
type ReferenceJSONPath struct {
	IdentityJSONPath  string `json:"identityJsonPath"`
	ReferenceJSONPath string `json:"referenceJsonPath"`
}

// EqualityConstraint requires all values reachable by both paths to be equal.
type EqualityConstraint struct {
	SourceJSONPath string `json:"sourceJsonPath"`
	TargetJSONPath string `json:"targetJsonPath"`
}

// CompiledEqualityConstraint is an EqualityConstraint with its paths parsed.
type CompiledEqualityConstraint struct {
	Source jsonpath.Path
	Target jsonpath.Path
}

// Reference is a compiled reference or descriptor entry of DocumentPathsMapping.
type Reference struct {
	// Name is the key of the entry in DocumentPathsMapping.
	Name         string
	ProjectName  string
	ResourceName string
	IsDescriptor bool
	IsRequired   bool

	// IdentityPaths and ReferencePaths are parallel; for descriptors both hold the
	// single descriptor path.
	IdentityPaths  []string
	ReferencePaths []jsonpath.Path

	// Parent is the longest common prefix of ReferencePaths: the reference object.
	Parent jsonpath.Path
}

// Fingerprint identifies the schema content. Two schemas loaded from identical bytes
// have the same fingerprint.
func (s *ApiSchema) Fingerprint() uint64 {
	return s.fingerprint
}

// IdentityPaths returns the compiled identity paths in declared order.
func (r *ResourceSchema) IdentityPaths() []jsonpath.Path {
	return r.identityPaths
}

// SuperclassIdentityPath returns the compiled superclass identity path, if declared.
func (r *ResourceSchema) SuperclassIdentityPath() (jsonpath.Path, bool) {
	return r.superclassPath, r.SuperclassIdentityJSONPath != ""
}

// References returns the document reference entries, sorted by name.
func (r *ResourceSchema) References() []*Reference {
	return r.references
}

// DescriptorReferences returns the descriptor reference entries, sorted by name.
func (r *ResourceSchema) DescriptorReferences() []*Reference {
	return r.descriptors
}

// CompiledEqualityConstraints returns the equality constraints with parsed paths.
func (r *ResourceSchema) CompiledEqualityConstraints() []CompiledEqualityConstraint {
	return r.equality
}

// CompiledArrayUniquenessConstraints returns the uniqueness constraints with parsed paths.
func (r *ResourceSchema) CompiledArrayUniquenessConstraints() [][]jsonpath.Path {
	return r.uniqueness
}

// BooleanPaths returns the compiled paths of boolean-typed fields.
func (r *ResourceSchema) BooleanPaths() []jsonpath.Path {
	return r.booleanPaths
}

// NumericPaths returns the compiled paths of numeric-typed fields.
func (r *ResourceSchema) NumericPaths() []jsonpath.Path {
	return r.numericPaths
}

// HasSuperclass reports whether the resource is a subclass of an abstract resource.
func (r *ResourceSchema) HasSuperclass() bool {
	return r.IsSubclass && r.SuperclassResourceName != ""
}

// Is reports whether the resource is the named type.
func (r *ResourceSchema) Is(projectName, resourceName string) bool {
	return r.ProjectName == projectName && r.ResourceName == resourceName
}

// IsA reports whether the resource is the named type or one of its subclasses.
func (r *ResourceSchema) IsA(projectName, resourceName string) bool {
	return r.Is(projectName, resourceName) ||
		(r.HasSuperclass() && r.SuperclassProjectName == projectName && r.SuperclassResourceName == resourceName)
}

func (r *ResourceSchema) String() string {
	return r.ProjectName + "." + r.ResourceName
}

func (r *Reference) String() string {
	return r.ProjectName + "." + r.ResourceName
}

func endpointKey(s string) string {
	return strings.ToLower(s)
}
