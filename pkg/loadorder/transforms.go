package loadorder

import (
	"fmt"
	"slices"
)

type precedenceTransformer struct {
	before, after Ref
}

// NewPrecedenceTransformer returns a GraphTransformer that loads after only once before has
// been loaded, as if after held a required reference to before. Deployments use it for
// dependencies the schema does not declare, such as authorization relationships.
func NewPrecedenceTransformer(before, after Ref) GraphTransformer {
	return &precedenceTransformer{before: before, after: after}
}

func (t *precedenceTransformer) Name() string {
	return fmt.Sprintf("precedence(%s<%s)", t.before, t.after)
}

func (t *precedenceTransformer) Transform(g *Graph) (*Graph, error) {
	before, ok := g.Node(t.before)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, t.before)
	}
	after, ok := g.Node(t.after)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, t.after)
	}
	g.AddEdge(after, before, true)
	return g, nil
}

type deferUpdateTransformer struct {
	resource, after string
}

// NewDeferUpdateTransformer returns an OrderTransformer that moves the Update of resource
// into its own wave, after every wave of the after resource. Both are resource paths such
// as '/ed-fi/students'.
func NewDeferUpdateTransformer(resource, after string) OrderTransformer {
	return &deferUpdateTransformer{resource: resource, after: after}
}

func (t *deferUpdateTransformer) Name() string {
	return fmt.Sprintf("defer-update(%s>%s)", t.resource, t.after)
}

func (t *deferUpdateTransformer) Transform(orders []LoadOrder) ([]LoadOrder, error) {
	last := 0
	var foundResource, foundAfter bool
	for _, o := range orders {
		switch o.Resource {
		case t.resource:
			foundResource = true
			last = max(last, o.Order)
		case t.after:
			foundAfter = true
			last = max(last, o.Order)
		}
	}
	if !foundResource {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, t.resource)
	}
	if !foundAfter {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, t.after)
	}

	out := make([]LoadOrder, 0, len(orders)+1)
	for _, o := range orders {
		if o.Resource == t.resource {
			o.Operations = slices.DeleteFunc(slices.Clone(o.Operations), func(op Operation) bool {
				return op == Update
			})
			if len(o.Operations) == 0 {
				continue
			}
		}
		out = append(out, o)
	}
	return append(out, LoadOrder{Resource: t.resource, Order: last + 1, Operations: []Operation{Update}}), nil
}
