// Package reference extracts the references a document holds to other documents.
//
// A schema reference is a set of (identity path, reference path) pairs. Reference paths
// may run through arrays; the values a single array element holds are assembled into one
// reference by grouping matches on the concrete path of their enclosing object.
package reference

import (
	"fmt"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// DocumentReference is one reference found in a document.
type DocumentReference struct {
	// Name is the schema name of the reference.
	Name          string
	Resource      identity.ResourceInfo
	Identity      identity.DocumentIdentity
	ReferentialID identity.ReferentialID

	// Path is the concrete location of the reference object.
	Path jsonpath.Path
	// ValuePaths holds the concrete location of each identity value.
	ValuePaths []jsonpath.Path
}

// DocumentReferenceArray holds every reference found for one schema reference, in
// document order.
type DocumentReferenceArray struct {
	Name string
	// Path is the parent expression of the reference. It contains a wildcard when the
	// reference is held in an array.
	Path       jsonpath.Path
	References []DocumentReference
}

// DescriptorReference is a reference to a descriptor value. Its identity is the single
// normalized descriptor URI.
type DescriptorReference struct {
	Name          string
	Resource      identity.ResourceInfo
	Identity      identity.DocumentIdentity
	ReferentialID identity.ReferentialID

	// Path is the concrete location of the descriptor URI.
	Path jsonpath.Path
}

// Group is the set of values one reference object holds.
type Group struct {
	// Path is the concrete location of the reference object.
	Path jsonpath.Path
	// Values is parallel to the reference's identity paths.
	Values []jsonpath.Match
}

// Identity returns the identity the group holds, keyed by the target's identity paths.
func (g Group) Identity(ref *schema.Reference) identity.DocumentIdentity {
	id := make(identity.DocumentIdentity, len(g.Values))
	for i, m := range g.Values {
		text, _ := m.Value.Text()
		id[i] = identity.Element{Path: ref.IdentityPaths[i], Value: text}
	}
	return id
}

// Groups evaluates a reference against doc and assembles the matches into one group per
// reference object. An absent reference produces no groups.
func Groups(doc *document.Value, ref *schema.Reference) ([]Group, error) {
	depth := ref.Parent.Len()

	var order []string
	byParent := map[string]*Group{}

	for i, p := range ref.ReferencePaths {
		for _, m := range p.Evaluate(doc) {
			parent := m.Path.Prefix(depth)
			key := parent.String()

			g, ok := byParent[key]
			if !ok {
				g = &Group{Path: parent, Values: make([]jsonpath.Match, len(ref.ReferencePaths))}
				byParent[key] = g
				order = append(order, key)
			}

			if !m.Value.IsScalar() {
				return nil, &MalformedReferenceError{
					Reference: ref.Name,
					Path:      m.Path.String(),
					Reason:    fmt.Sprintf("holds a %s, expected a scalar", m.Value.Kind()),
				}
			}
			if g.Values[i].Value != nil {
				return nil, &MalformedReferenceError{
					Reference: ref.Name,
					Path:      key,
					Reason:    fmt.Sprintf("has more than one value for '%s'", ref.IdentityPaths[i]),
				}
			}
			g.Values[i] = m
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g := byParent[key]

		var missing []string
		for i, m := range g.Values {
			if m.Value == nil {
				missing = append(missing, ref.IdentityPaths[i])
			}
		}
		if len(missing) > 0 {
			return nil, &IncompleteReferenceError{Reference: ref.Name, Path: key, Missing: missing}
		}

		groups = append(groups, *g)
	}
	return groups, nil
}

// ExtractReferences returns every document reference in doc, flat and grouped by schema
// reference. References are ordered by schema reference name, then document order.
func ExtractReferences(resource *schema.ResourceSchema, doc *document.Value) ([]DocumentReference, []DocumentReferenceArray, error) {
	var (
		flat   []DocumentReference
		arrays []DocumentReferenceArray
	)

	for _, ref := range resource.References() {
		groups, err := Groups(doc, ref)
		if err != nil {
			return nil, nil, err
		}
		if len(groups) == 0 {
			continue
		}

		info := identity.ResourceInfo{ProjectName: ref.ProjectName, ResourceName: ref.ResourceName}
		array := DocumentReferenceArray{Name: ref.Name, Path: ref.Parent}
		for _, g := range groups {
			id := g.Identity(ref)
			valuePaths := make([]jsonpath.Path, len(g.Values))
			for i, m := range g.Values {
				valuePaths[i] = m.Path
			}
			array.References = append(array.References, DocumentReference{
				Name:          ref.Name,
				Resource:      info,
				Identity:      id,
				ReferentialID: identity.ComputeReferentialID(info, id),
				Path:          g.Path,
				ValuePaths:    valuePaths,
			})
		}

		flat = append(flat, array.References...)
		arrays = append(arrays, array)
	}

	return flat, arrays, nil
}

// ExtractDescriptorReferences returns every descriptor value in doc, with its URI
// normalized.
func ExtractDescriptorReferences(resource *schema.ResourceSchema, doc *document.Value) ([]DescriptorReference, error) {
	var out []DescriptorReference

	for _, ref := range resource.DescriptorReferences() {
		info := identity.ResourceInfo{ProjectName: ref.ProjectName, ResourceName: ref.ResourceName, IsDescriptor: true}
		for _, p := range ref.ReferencePaths {
			for _, m := range p.Evaluate(doc) {
				if m.Value.Kind() != document.String {
					return nil, &MalformedReferenceError{
						Reference: ref.Name,
						Path:      m.Path.String(),
						Reason:    fmt.Sprintf("holds a %s, expected a descriptor uri", m.Value.Kind()),
					}
				}

				id := identity.DocumentIdentity{{
					Path:  schema.DescriptorIdentityPath,
					Value: identity.NormalizeDescriptorURI(m.Value.Str()),
				}}
				out = append(out, DescriptorReference{
					Name:          ref.Name,
					Resource:      info,
					Identity:      id,
					ReferentialID: identity.ComputeReferentialID(info, id),
					Path:          m.Path,
				})
			}
		}
	}

	return out, nil
}
