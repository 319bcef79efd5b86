package identity

import (
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

var (
	namespacePath = jsonpath.MustCompile("$.namespace")
	codeValuePath = jsonpath.MustCompile("$.codeValue")
)

// Extract returns the identity of doc. Each identity path must resolve to exactly one
// scalar. Descriptors are identified by their normalized 'namespace#codeValue' URI,
// stored under schema.DescriptorIdentityPath.
func Extract(resource *schema.ResourceSchema, doc *document.Value) (DocumentIdentity, error) {
	if resource.IsDescriptor {
		uri, err := DescriptorURI(resource, doc)
		if err != nil {
			return nil, err
		}
		return DocumentIdentity{{Path: schema.DescriptorIdentityPath, Value: NormalizeDescriptorURI(uri)}}, nil
	}

	values, err := ExtractValues(resource, doc)
	if err != nil {
		return nil, err
	}

	id := make(DocumentIdentity, 0, len(values))
	for _, v := range values {
		text, _ := v.Value.Text()
		id = append(id, Element{Path: v.IdentityPath, Value: text})
	}
	return id, nil
}

// Value is the source node of one identity element.
type Value struct {
	// IdentityPath is the schema expression the value was read through.
	IdentityPath string
	jsonpath.Match
}

// ExtractValues returns the source nodes of each identity path, in identity order.
// Duplicate paths are reported once.
func ExtractValues(resource *schema.ResourceSchema, doc *document.Value) ([]Value, error) {
	info := InfoOf(resource)
	seen := make(map[string]struct{}, len(resource.IdentityJSONPaths))

	out := make([]Value, 0, len(resource.IdentityJSONPaths))
	for i, p := range resource.IdentityPaths() {
		expr := resource.IdentityJSONPaths[i]
		if _, ok := seen[expr]; ok {
			continue
		}
		seen[expr] = struct{}{}

		m, err := single(info, expr, p, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{IdentityPath: expr, Match: m})
	}
	return out, nil
}

func single(info ResourceInfo, expr string, p jsonpath.Path, doc *document.Value) (jsonpath.Match, error) {
	matches := p.Evaluate(doc)
	switch {
	case len(matches) == 0:
		return jsonpath.Match{}, missing(info, expr)
	case len(matches) > 1:
		return jsonpath.Match{}, ambiguous(info, expr, len(matches))
	case !matches[0].Value.IsScalar():
		return jsonpath.Match{}, notScalar(info, expr, matches[0].Value.Kind())
	}
	return matches[0], nil
}

// DescriptorURI returns the 'namespace#codeValue' URI of a descriptor document as written,
// without normalization.
func DescriptorURI(resource *schema.ResourceSchema, doc *document.Value) (string, error) {
	info := InfoOf(resource)
	namespace, err := single(info, namespacePath.String(), namespacePath, doc)
	if err != nil {
		return "", err
	}
	codeValue, err := single(info, codeValuePath.String(), codeValuePath, doc)
	if err != nil {
		return "", err
	}
	ns, _ := namespace.Value.Text()
	cv, _ := codeValue.Value.Text()
	return ns + "#" + cv, nil
}

// NormalizeDescriptorURI lower-cases the fragment of a descriptor URI. The part before
// '#' is kept as is.
func NormalizeDescriptorURI(uri string) string {
	i := strings.IndexByte(uri, '#')
	if i < 0 {
		return uri
	}
	return uri[:i+1] + strings.ToLower(uri[i+1:])
}

// ExtractSuperclass returns the identity a subclass document holds as an instance of its
// abstract superclass. A domain entity subclass renames its single identity element to
// the superclass identity path; an association subclass keeps its identity unchanged.
// ok is false for resources without a superclass.
func ExtractSuperclass(resource *schema.ResourceSchema, id DocumentIdentity) (info ResourceInfo, superclass DocumentIdentity, ok bool) {
	if !resource.HasSuperclass() {
		return ResourceInfo{}, nil, false
	}

	info = ResourceInfo{
		ProjectName:  resource.SuperclassProjectName,
		ResourceName: resource.SuperclassResourceName,
	}

	if resource.SubclassType != schema.SubclassDomainEntity || resource.SuperclassIdentityJSONPath == "" || len(id) != 1 {
		return info, append(DocumentIdentity(nil), id...), true
	}
	return info, DocumentIdentity{{Path: resource.SuperclassIdentityJSONPath, Value: id[0].Value}}, true
}
