package loadorder

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ed-fi-alliance-oss/meadowlark/pkg/schema"
)

// Ref names a resource type.
type Ref struct {
	ProjectName  string
	ResourceName string
}

func (r Ref) String() string {
	return r.ProjectName + "." + r.ResourceName
}

// Node is a resource type in the dependency graph.
type Node struct {
	id int64

	Ref
	// Endpoint is the resource path, e.g. '/ed-fi/schools'. Empty for abstract resources.
	Endpoint     string
	IsDescriptor bool
	IsAbstract   bool
	// Subclasses holds the concrete subclasses of an abstract resource.
	Subclasses []Ref
}

var (
	_ graph.Node          = (*Node)(nil)
	_ dot.Node            = (*Node)(nil)
	_ encoding.Attributer = (*Node)(nil)
)

func (n *Node) ID() int64 {
	return n.id
}

func (n *Node) DOTID() string {
	return n.Ref.String()
}

func (n *Node) Attributes() []encoding.Attribute {
	switch {
	case n.IsAbstract:
		return []encoding.Attribute{{Key: "shape", Value: "diamond"}}
	case n.IsDescriptor:
		return []encoding.Attribute{{Key: "shape", Value: "note"}}
	default:
		return nil
	}
}

// Edge records that instances of From may reference instances of To, so To has to be
// loaded first.
type Edge struct {
	F, T *Node
	// Required is false when the referencing resource may omit the reference.
	Required bool
}

var (
	_ graph.Edge          = (*Edge)(nil)
	_ encoding.Attributer = (*Edge)(nil)
)

func (e *Edge) From() graph.Node {
	return e.F
}

func (e *Edge) To() graph.Node {
	return e.T
}

func (e *Edge) ReversedEdge() graph.Edge {
	return &Edge{F: e.T, T: e.F, Required: e.Required}
}

func (e *Edge) Attributes() []encoding.Attribute {
	if e.Required {
		return nil
	}
	return []encoding.Attribute{{Key: "style", Value: "dashed"}}
}

func (e *Edge) String() string {
	kind := "required"
	if !e.Required {
		kind = "optional"
	}
	return fmt.Sprintf("%s -> %s (%s)", e.F.Ref, e.T.Ref, kind)
}

// Graph is the dependency graph of resource types. An edge A -> B means A references B.
type Graph struct {
	g      *simple.DirectedGraph
	byRef  map[Ref]*Node
	nextID int64
}

func NewGraph() *Graph {
	return &Graph{
		g:     simple.NewDirectedGraph(),
		byRef: map[Ref]*Node{},
	}
}

// Build returns the dependency graph of every resource the schema declares. References
// from a resource to itself are not recorded.
func Build(reader schema.Reader) (*Graph, error) {
	g := NewGraph()

	for _, p := range reader.Projects() {
		for _, a := range p.Abstracts() {
			g.AddNode(&Node{Ref: Ref{ProjectName: p.ProjectName, ResourceName: a.ResourceName}, IsAbstract: true})
		}
		for _, r := range p.Resources() {
			g.AddNode(&Node{
				Ref:          Ref{ProjectName: r.ProjectName, ResourceName: r.ResourceName},
				Endpoint:     "/" + p.ProjectEndpointName + "/" + r.EndpointName,
				IsDescriptor: r.IsDescriptor,
			})
		}
	}

	for _, p := range reader.Projects() {
		for _, r := range p.Resources() {
			from, _ := g.Node(Ref{ProjectName: r.ProjectName, ResourceName: r.ResourceName})

			if r.HasSuperclass() {
				abstract, ok := g.Node(Ref{ProjectName: r.SuperclassProjectName, ResourceName: r.SuperclassResourceName})
				if !ok || !abstract.IsAbstract {
					return nil, fmt.Errorf("%s: superclass '%s.%s' is not an abstract resource", r, r.SuperclassProjectName, r.SuperclassResourceName)
				}
				abstract.Subclasses = append(abstract.Subclasses, from.Ref)
			}

			refs := append(append([]*schema.Reference(nil), r.References()...), r.DescriptorReferences()...)
			for _, ref := range refs {
				to, ok := g.Node(Ref{ProjectName: ref.ProjectName, ResourceName: ref.ResourceName})
				if !ok {
					return nil, fmt.Errorf("%s: reference '%s' targets unknown resource '%s'", r, ref.Name, ref)
				}
				g.AddEdge(from, to, ref.IsRequired)
			}
		}
	}

	return g, nil
}

// AddNode adds n to the graph. A node already present under the same Ref is returned
// instead.
func (g *Graph) AddNode(n *Node) *Node {
	if existing, ok := g.byRef[n.Ref]; ok {
		return existing
	}
	n.id = g.nextID
	g.nextID++
	g.byRef[n.Ref] = n
	g.g.AddNode(n)
	return n
}

// Node returns the node of a resource type.
func (g *Graph) Node(ref Ref) (*Node, bool) {
	n, ok := g.byRef[ref]
	return n, ok
}

// Nodes returns every node, sorted by name.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.byRef))
	for _, n := range g.byRef {
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes
}

// RemoveNode removes a node and its edges.
func (g *Graph) RemoveNode(n *Node) {
	if _, ok := g.byRef[n.Ref]; !ok {
		return
	}
	delete(g.byRef, n.Ref)
	g.g.RemoveNode(n.id)
}

// AddEdge records that from references to. When the edge already exists it becomes
// required if either declaration is required. Self references are ignored.
func (g *Graph) AddEdge(from, to *Node, required bool) {
	if from.id == to.id {
		return
	}
	if e := g.Edge(from, to); e != nil {
		e.Required = e.Required || required
		return
	}
	g.g.SetEdge(&Edge{F: from, T: to, Required: required})
}

// Edge returns the edge from -> to, or nil.
func (g *Graph) Edge(from, to *Node) *Edge {
	e := g.g.Edge(from.id, to.id)
	if e == nil {
		return nil
	}
	return e.(*Edge)
}

func (g *Graph) RemoveEdge(from, to *Node) {
	g.g.RemoveEdge(from.id, to.id)
}

// Edges returns every edge, sorted by source then target name.
func (g *Graph) Edges() []*Edge {
	var edges []*Edge
	it := g.g.Edges()
	for it.Next() {
		edges = append(edges, it.Edge().(*Edge))
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].F.Ref != edges[j].F.Ref {
			return less(edges[i].F.Ref, edges[j].F.Ref)
		}
		return less(edges[i].T.Ref, edges[j].T.Ref)
	})
	return edges
}

// From returns the nodes n references, sorted by name.
func (g *Graph) From(n *Node) []*Node {
	return nodesOf(g.g.From(n.id))
}

// To returns the nodes referencing n, sorted by name.
func (g *Graph) To(n *Node) []*Node {
	return nodesOf(g.g.To(n.id))
}

// Clone returns a deep copy of the graph. Nodes are copied so that transforms may modify
// them freely.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	c.nextID = g.nextID

	copies := make(map[int64]*Node, len(g.byRef))
	for _, n := range g.Nodes() {
		cp := *n
		cp.Subclasses = append([]Ref(nil), n.Subclasses...)
		copies[n.id] = &cp
		c.byRef[cp.Ref] = &cp
		c.g.AddNode(&cp)
	}
	for _, e := range g.Edges() {
		c.g.SetEdge(&Edge{F: copies[e.F.id], T: copies[e.T.id], Required: e.Required})
	}
	return c
}

// DOT renders the graph in Graphviz format. It is meant for debugging; optional edges are
// dashed.
func (g *Graph) DOT() (string, error) {
	b, err := dot.Marshal(g.g, "loadorder", "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nodesOf(it graph.Nodes) []*Node {
	var nodes []*Node
	for it.Next() {
		nodes = append(nodes, it.Node().(*Node))
	}
	sortNodes(nodes)
	return nodes
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return less(nodes[i].Ref, nodes[j].Ref)
	})
}

func less(a, b Ref) bool {
	if a.ProjectName != b.ProjectName {
		return a.ProjectName < b.ProjectName
	}
	return a.ResourceName < b.ResourceName
}
