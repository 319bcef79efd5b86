// Package validation checks the cross-path rules of a document: equality constraints and
// array uniqueness constraints. Every rule is checked; violations are reported together.
package validation

import (
	"fmt"
	"strings"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/document"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/jsonpath"
	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// ValidateEqualityConstraints checks that all values reachable by the source and target
// paths of each constraint are equal. A violation is recorded under both paths and names
// every distinct value, in document order.
func ValidateEqualityConstraints(doc *document.Value, constraints []schema.CompiledEqualityConstraint) ValidationErrors {
	errs := ValidationErrors{}

	for _, c := range constraints {
		var values distinct
		for _, m := range c.Source.Evaluate(doc) {
			values.add(m.Value)
		}
		for _, m := range c.Target.Evaluate(doc) {
			values.add(m.Value)
		}
		if len(values) < 2 {
			continue
		}

		source, target := c.Source.String(), c.Target.String()
		message := fmt.Sprintf("All values supplied for '%s' and '%s' must match. Align the following conflicting values: %s", source, target, values)
		errs.Add(source, message)
		errs.Add(target, message)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateArrayUniqueness checks that no two items of an array hold the same combination
// of values at the constraint's paths. Items holding none of the values are skipped.
// Duplicates are recorded under the concrete path of the array.
func ValidateArrayUniqueness(doc *document.Value, constraints [][]jsonpath.Path) ValidationErrors {
	errs := ValidationErrors{}

	for _, paths := range constraints {
		items, relative, ok := splitAtArray(paths)
		if !ok {
			continue
		}

		seen := map[string]int{}
		for _, item := range items.Evaluate(doc) {
			last, _ := item.Path.Last()
			array := item.Path.Parent().String()

			var key strings.Builder
			key.WriteString(array)
			matched := false
			for _, rel := range relative {
				key.WriteByte(0)
				for _, m := range rel.Evaluate(item.Value) {
					matched = true
					key.WriteString(textOf(m.Value))
					key.WriteByte(1)
				}
			}
			// An item without any of the constrained values cannot repeat another.
			if !matched {
				continue
			}

			if first, ok := seen[key.String()]; ok {
				errs.Add(array, fmt.Sprintf("Items %d and %d of '%s' hold the same values for %s", first, last.Index, array, joinPaths(relative)))
				continue
			}
			seen[key.String()] = last.Index
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// splitAtArray returns the expression of the items of the innermost array shared by
// every path, and each path relative to one item.
func splitAtArray(paths []jsonpath.Path) (jsonpath.Path, []jsonpath.Path, bool) {
	if len(paths) == 0 {
		return jsonpath.Path{}, nil, false
	}

	common := jsonpath.CommonPrefix(paths...)
	wildcard := -1
	for i, s := range common.Segments() {
		if s.Kind == jsonpath.Wildcard {
			wildcard = i
		}
	}
	if wildcard < 0 {
		return jsonpath.Path{}, nil, false
	}

	items := common.Prefix(wildcard + 1)
	relative := make([]jsonpath.Path, len(paths))
	for i, p := range paths {
		var rel jsonpath.Path
		for _, s := range p.Segments()[wildcard+1:] {
			rel = rel.Child(s)
		}
		relative[i] = rel
	}
	return items, relative, true
}

func joinPaths(paths []jsonpath.Path) string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = "'" + p.String() + "'"
	}
	return strings.Join(out, ", ")
}

func textOf(v *document.Value) string {
	if text, ok := v.Text(); ok {
		return text
	}
	return v.String()
}

// distinct collects values in first-seen order, comparing scalars by normalized text.
type distinct []string

func (d *distinct) add(v *document.Value) {
	text := textOf(v)
	for _, existing := range *d {
		if existing == text {
			return
		}
	}
	*d = append(*d, text)
}

func (d distinct) String() string {
	quoted := make([]string, len(d))
	for i, v := range d {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}
