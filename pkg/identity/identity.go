// Package identity extracts the natural key of a document and derives its ReferentialID.
package identity

import (
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// Element is one natural-key value of a document, keyed by the identity path it was
// read from. Value is always the normalized string form of the source scalar.
type Element struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// DocumentIdentity is the ordered natural key of a document. Order follows the schema's
// declared identity paths and no two elements share a path.
type DocumentIdentity []Element

// Get returns the value stored for path.
func (d DocumentIdentity) Get(path string) (string, bool) {
	for _, e := range d {
		if e.Path == path {
			return e.Value, true
		}
	}
	return "", false
}

// Paths returns the identity paths in order.
func (d DocumentIdentity) Paths() []string {
	paths := make([]string, len(d))
	for i, e := range d {
		paths[i] = e.Path
	}
	return paths
}

// Equal reports whether both identities hold the same elements in the same order.
func (d DocumentIdentity) Equal(o DocumentIdentity) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i] != o[i] {
			return false
		}
	}
	return true
}

func (d DocumentIdentity) String() string {
	var sb strings.Builder
	for i, e := range d {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.Path)
		sb.WriteByte('=')
		sb.WriteString(e.Value)
	}
	return sb.String()
}

// ResourceInfo identifies a kind of resource independent of any instance.
type ResourceInfo struct {
	ProjectName  string `json:"projectName"`
	ResourceName string `json:"resourceName"`
	IsDescriptor bool   `json:"isDescriptor"`
}

// InfoOf returns the ResourceInfo of a resource schema.
func InfoOf(r *schema.ResourceSchema) ResourceInfo {
	return ResourceInfo{
		ProjectName:  r.ProjectName,
		ResourceName: r.ResourceName,
		IsDescriptor: r.IsDescriptor,
	}
}

func (i ResourceInfo) String() string {
	return i.ProjectName + "." + i.ResourceName
}
