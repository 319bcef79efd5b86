package documentinfo

import (
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// CoerceTypes returns a copy of doc where strings found at the boolean and numeric paths
// of the resource are replaced by the boolean or number they spell. Clients loading data
// converted from XML send every scalar as a string. Strings that do not spell a value of
// the expected type are left as they are for validation to report.
func CoerceTypes(resource *schema.ResourceSchema, doc *document.Value) *document.Value {
	out := doc.Clone()
	coerce(out, resource.BooleanPaths(), func(s string) (*document.Value, bool) {
		switch strings.ToLower(s) {
		case "true":
			return document.NewBool(true), true
		case "false":
			return document.NewBool(false), true
		default:
			return nil, false
		}
	})
	coerce(out, resource.NumericPaths(), func(s string) (*document.Value, bool) {
		v, err := document.NewNumber(strings.TrimSpace(s))
		return v, err == nil
	})
	return out
}

func coerce(doc *document.Value, paths []jsonpath.Path, convert func(string) (*document.Value, bool)) {
	for _, p := range paths {
		for _, m := range p.Evaluate(doc) {
			if m.Value.Kind() != document.String {
				continue
			}
			if v, ok := convert(m.Value.Str()); ok {
				// The match was just found, so its parent exists.
				_ = jsonpath.Set(doc, m.Path, v)
			}
		}
	}
}
