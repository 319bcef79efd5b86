// Package loadorder computes the order in which resource types can be bulk loaded so that
// every reference a document holds can be satisfied.
//
// The dependency graph of resource types is sorted into waves: resources in the same wave
// do not depend on each other and may be loaded in parallel. Cycles are broken by removing
// optional references; the resources that lost a reference are revisited with an Update in
// a later wave, once the referenced resources exist.
package loadorder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/topo"
)

// Operation is a write applied to a resource during a load.
type Operation string

const (
	Create Operation = "Create"
	Update Operation = "Update"
)

// LoadOrder places one resource in a wave.
type LoadOrder struct {
	// Resource is the resource path, e.g. '/ed-fi/schools'.
	Resource   string      `json:"resource"`
	Order      int         `json:"order"`
	Operations []Operation `json:"operations"`
}

var ErrUnknownResource = errors.New("unknown resource")

// CycleError is returned when resources reference each other only through required
// references, so no load order exists.
type CycleError struct {
	Resources []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resources form a cycle of required references: %s", strings.Join(e.Resources, ", "))
}

// GraphTransformer rewrites the dependency graph before it is sorted.
type GraphTransformer interface {
	Name() string
	Transform(*Graph) (*Graph, error)
}

// OrderTransformer rewrites the computed load order.
type OrderTransformer interface {
	Name() string
	Transform([]LoadOrder) ([]LoadOrder, error)
}

// ComputeLoadOrder sorts the graph into waves starting at 1. Abstract resources are
// replaced by their subclasses and never receive an order. The input graph is not modified.
func ComputeLoadOrder(g *Graph, graphTransforms []GraphTransformer, orderTransforms []OrderTransformer) ([]LoadOrder, error) {
	work := g.Clone()
	collapseAbstract(work)

	var err error
	for _, t := range graphTransforms {
		if work, err = t.Transform(work); err != nil {
			return nil, fmt.Errorf("graph transform %s: %w", t.Name(), err)
		}
	}

	deferred, err := breakCycles(work)
	if err != nil {
		return nil, err
	}

	waves, err := assignWaves(work)
	if err != nil {
		return nil, err
	}

	var orders []LoadOrder
	for _, n := range work.Nodes() {
		targets, ok := deferred[n.Ref]
		if !ok {
			orders = append(orders, LoadOrder{Resource: n.Endpoint, Order: waves[n.Ref], Operations: []Operation{Create, Update}})
			continue
		}

		update := waves[n.Ref]
		for _, t := range targets {
			update = max(update, waves[t])
		}
		orders = append(orders,
			LoadOrder{Resource: n.Endpoint, Order: waves[n.Ref], Operations: []Operation{Create}},
			LoadOrder{Resource: n.Endpoint, Order: update + 1, Operations: []Operation{Update}},
		)
	}
	sortOrders(orders)

	for _, t := range orderTransforms {
		if orders, err = t.Transform(orders); err != nil {
			return nil, fmt.Errorf("order transform %s: %w", t.Name(), err)
		}
		sortOrders(orders)
	}

	return orders, nil
}

// collapseAbstract replaces every reference to an abstract resource by references to each
// of its subclasses, then removes the abstract resources.
func collapseAbstract(g *Graph) {
	for _, n := range g.Nodes() {
		if !n.IsAbstract {
			continue
		}
		for _, e := range edgesTo(g, n) {
			for _, sub := range n.Subclasses {
				if s, ok := g.Node(sub); ok {
					g.AddEdge(e.F, s, e.Required)
				}
			}
		}
		g.RemoveNode(n)
	}
}

func edgesTo(g *Graph, n *Node) []*Edge {
	var edges []*Edge
	for _, from := range g.To(n) {
		edges = append(edges, g.Edge(from, n))
	}
	return edges
}

// breakCycles removes optional edges until the graph is acyclic. It returns, for each
// resource that lost a reference, the resources it can only reference after they are loaded.
func breakCycles(g *Graph) (map[Ref][]Ref, error) {
	deferred := map[Ref][]Ref{}

	for {
		cycle := firstCycle(g)
		if cycle == nil {
			return deferred, nil
		}

		inCycle := make(map[int64]bool, len(cycle))
		for _, n := range cycle {
			inCycle[n.id] = true
		}

		var optional *Edge
		for _, e := range g.Edges() {
			if inCycle[e.F.id] && inCycle[e.T.id] && !e.Required {
				optional = e
				break
			}
		}
		if optional == nil {
			names := make([]string, len(cycle))
			for i, n := range cycle {
				names[i] = n.Ref.String()
			}
			return nil, &CycleError{Resources: names}
		}

		g.RemoveEdge(optional.F, optional.T)
		deferred[optional.F.Ref] = append(deferred[optional.F.Ref], optional.T.Ref)
	}
}

// firstCycle returns the nodes of the strongly connected component with more than one node
// whose first node sorts first, or nil when the graph is acyclic.
func firstCycle(g *Graph) []*Node {
	var cycle []*Node
	for _, scc := range topo.TarjanSCC(g.g) {
		if len(scc) < 2 {
			continue
		}
		nodes := make([]*Node, len(scc))
		for i, n := range scc {
			nodes[i] = n.(*Node)
		}
		sortNodes(nodes)
		if cycle == nil || less(nodes[0].Ref, cycle[0].Ref) {
			cycle = nodes
		}
	}
	return cycle
}

// assignWaves places every node one wave after the latest wave of the nodes it references.
func assignWaves(g *Graph) (map[Ref]int, error) {
	sorted, err := topo.Sort(g.g)
	if err != nil {
		return nil, fmt.Errorf("dependency graph is not acyclic: %w", err)
	}

	waves := make(map[Ref]int, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		n := sorted[i].(*Node)
		wave := 1
		for _, to := range g.From(n) {
			wave = max(wave, waves[to.Ref]+1)
		}
		waves[n.Ref] = wave
	}
	return waves, nil
}

func sortOrders(orders []LoadOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Order != orders[j].Order {
			return orders[i].Order < orders[j].Order
		}
		return orders[i].Resource < orders[j].Resource
	})
}
