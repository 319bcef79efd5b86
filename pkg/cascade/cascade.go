// Package cascade propagates identity changes into the documents that embed a copy of the
// changed identity.
package cascade

import (
	"fmt"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/identity"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/reference"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// Result is the outcome of rewriting one referencing document.
type Result struct {
	// Document is the referencing document with every embedded copy of the original
	// identity replaced. It is a copy; the input document is never modified.
	Document *document.Value
	// Rewritten counts the reference objects that were rewritten.
	Rewritten int
	// IdentityChanged reports whether the rewrite changed the referencing document's own
	// identity, in which case its own referrers must be rewritten too.
	IdentityChanged bool
}

// Changed reports whether any reference was rewritten.
func (r *Result) Changed() bool {
	return r.Rewritten > 0
}

// embedded maps target identity paths to the old and new values of a changed document.
type embedded struct {
	old map[string]string
	new map[string]*document.Value
}

func (e embedded) matches(ref *schema.Reference, g reference.Group) bool {
	for i, m := range g.Values {
		old, ok := e.old[ref.IdentityPaths[i]]
		if !ok {
			return false
		}
		text, _ := m.Value.Text()
		if text != old {
			return false
		}
	}
	return true
}

// Cascade rewrites the references that referencing holds to the document whose original
// version is original and whose updated version is modified. Only reference objects
// whose values all equal the original identity are rewritten; values are copied from
// modified so that their JSON types are kept.
func Cascade(original, modified, referencing *document.Value, referenced, referencingResource *schema.ResourceSchema) (*Result, error) {
	before, err := identity.Extract(referencingResource, referencing)
	if err != nil {
		return nil, fmt.Errorf("referencing document: %w", err)
	}

	out := referencing.Clone()
	result := &Result{Document: out}

	if referenced.IsDescriptor {
		if result.Rewritten, err = rewriteDescriptors(original, modified, out, referenced, referencingResource); err != nil {
			return nil, err
		}
	} else {
		primary, superclass, err := changedValues(original, modified, referenced)
		if err != nil {
			return nil, err
		}

		for _, ref := range referencingResource.References() {
			values, ok := primary, ref.ProjectName == referenced.ProjectName && ref.ResourceName == referenced.ResourceName
			if !ok && referenced.HasSuperclass() {
				values, ok = superclass, ref.ProjectName == referenced.SuperclassProjectName && ref.ResourceName == referenced.SuperclassResourceName
			}
			if !ok {
				continue
			}

			n, err := rewrite(out, ref, values)
			if err != nil {
				return nil, err
			}
			result.Rewritten += n
		}
	}

	if result.Rewritten == 0 {
		return result, nil
	}

	after, err := identity.Extract(referencingResource, out)
	if err != nil {
		return nil, fmt.Errorf("rewritten referencing document: %w", err)
	}
	result.IdentityChanged = !before.Equal(after)
	return result, nil
}

func changedValues(original, modified *document.Value, referenced *schema.ResourceSchema) (primary, superclass embedded, err error) {
	oldValues, err := identity.ExtractValues(referenced, original)
	if err != nil {
		return primary, superclass, fmt.Errorf("original document: %w", err)
	}
	newValues, err := identity.ExtractValues(referenced, modified)
	if err != nil {
		return primary, superclass, fmt.Errorf("modified document: %w", err)
	}

	primary = embedded{old: map[string]string{}, new: map[string]*document.Value{}}
	for i, v := range oldValues {
		text, _ := v.Value.Text()
		primary.old[v.IdentityPath] = text
		primary.new[v.IdentityPath] = newValues[i].Value
	}

	superclass = primary
	if referenced.SubclassType == schema.SubclassDomainEntity && referenced.SuperclassIdentityJSONPath != "" && len(oldValues) == 1 {
		path := referenced.SuperclassIdentityJSONPath
		text, _ := oldValues[0].Value.Text()
		superclass = embedded{
			old: map[string]string{path: text},
			new: map[string]*document.Value{path: newValues[0].Value},
		}
	}
	return primary, superclass, nil
}

func rewrite(doc *document.Value, ref *schema.Reference, values embedded) (int, error) {
	groups, err := reference.Groups(doc, ref)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, g := range groups {
		if !values.matches(ref, g) {
			continue
		}
		for i, m := range g.Values {
			if err := jsonpath.Set(doc, m.Path, values.new[ref.IdentityPaths[i]].Clone()); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, nil
}

func rewriteDescriptors(original, modified, doc *document.Value, referenced, referencingResource *schema.ResourceSchema) (int, error) {
	oldURI, err := identity.Extract(referenced, original)
	if err != nil {
		return 0, fmt.Errorf("original document: %w", err)
	}
	newURI, err := identity.DescriptorURI(referenced, modified)
	if err != nil {
		return 0, fmt.Errorf("modified document: %w", err)
	}

	n := 0
	for _, ref := range referencingResource.DescriptorReferences() {
		if ref.ProjectName != referenced.ProjectName || ref.ResourceName != referenced.ResourceName {
			continue
		}
		for _, p := range ref.ReferencePaths {
			for _, m := range p.Evaluate(doc) {
				if m.Value.Kind() != document.String || identity.NormalizeDescriptorURI(m.Value.Str()) != oldURI[0].Value {
					continue
				}
				if err := jsonpath.Set(doc, m.Path, document.NewString(newURI)); err != nil {
					return n, err
				}
				n++
			}
		}
	}
	return n, nil
}
