package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/common-fate/flow/pkg/node"
	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrNodeExists   = errors.New("node already exists")
)

// Edge is a directed connection from an output port of one node
// to an input port of another.
type Edge struct {
	ID     string `yaml:"id" json:"id"`
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
	// SourceHandle is the output port, e.g. "true" or "success".
	// Empty for single-output nodes.
	SourceHandle string `yaml:"sourceHandle,omitempty" json:"sourceHandle,omitempty"`
	// TargetHandle is the input port. Almost always empty.
	TargetHandle string `yaml:"targetHandle,omitempty" json:"targetHandle,omitempty"`
}

// EdgeID derives the ID of an edge from its endpoints and source handle,
// so that adding the same logical connection twice yields the same edge.
//
// e.g.
//
//	EdgeID("a", "b", "")     -> "a->b"
//	EdgeID("a", "b", "true") -> "a:true->b"
func EdgeID(source, target, sourceHandle string) string {
	if sourceHandle == "" {
		return fmt.Sprintf("%s->%s", source, target)
	}
	return fmt.Sprintf("%s:%s->%s", source, sourceHandle, target)
}

// Graph is the node and edge store of a workflow.
// It holds no validation logic: it is storage plus adjacency queries.
type Graph struct {
	nodes map[string]node.Node
	edges map[string]Edge

	// out and in index edge IDs by source and target node.
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}

	// seq records insertion order, so that listing is stable.
	seq  map[string]int
	next int
}

func NewGraph() *Graph {
	return &Graph{
		nodes: map[string]node.Node{},
		edges: map[string]Edge{},
		out:   map[string]map[string]struct{}{},
		in:    map[string]map[string]struct{}{},
		seq:   map[string]int{},
	}
}

func (g *Graph) order(key string) {
	if _, ok := g.seq[key]; !ok {
		g.seq[key] = g.next
		g.next++
	}
}

// AddNode inserts a new node.
func (g *Graph) AddNode(n node.Node) error {
	if n.ID == "" {
		return errors.New("node ID must not be empty")
	}
	if n.Data == nil {
		return fmt.Errorf("node %s has no data", n.ID)
	}
	if _, ok := g.nodes[n.ID]; ok {
		return errors.Wrap(ErrNodeExists, n.ID)
	}
	g.nodes[n.ID] = n
	g.order("n:" + n.ID)
	return nil
}

// SetNode replaces the payload and position of an existing node.
func (g *Graph) SetNode(n node.Node) error {
	if _, ok := g.nodes[n.ID]; !ok {
		return errors.Wrap(ErrNodeNotFound, n.ID)
	}
	if n.Data == nil {
		return fmt.Errorf("node %s has no data", n.ID)
	}
	g.nodes[n.ID] = n
	return nil
}

func (g *Graph) Node(id string) (node.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []node.Node {
	out := make([]node.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.seq["n:"+out[i].ID] < g.seq["n:"+out[j].ID]
	})
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return errors.Wrap(ErrNodeNotFound, id)
	}
	for eid := range g.out[id] {
		g.unlink(eid)
	}
	for eid := range g.in[id] {
		g.unlink(eid)
	}
	delete(g.nodes, id)
	delete(g.out, id)
	delete(g.in, id)
	delete(g.seq, "n:"+id)
	return nil
}

// AddEdge inserts an edge. Only the existence of the endpoints is checked:
// connection rules are applied by CanConnect before edges get here.
// The edge ID is derived with EdgeID if it is empty.
func (g *Graph) AddEdge(e Edge) (Edge, error) {
	if e.ID == "" {
		e.ID = EdgeID(e.Source, e.Target, e.SourceHandle)
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return e, errors.Wrapf(ErrNodeNotFound, "edge %s source %s", e.ID, e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return e, errors.Wrapf(ErrNodeNotFound, "edge %s target %s", e.ID, e.Target)
	}
	if existing, ok := g.edges[e.ID]; ok {
		g.unlink(existing.ID)
	}
	g.edges[e.ID] = e
	index(g.out, e.Source, e.ID)
	index(g.in, e.Target, e.ID)
	g.order("e:" + e.ID)
	return e, nil
}

func index(m map[string]map[string]struct{}, key, edgeID string) {
	if m[key] == nil {
		m[key] = map[string]struct{}{}
	}
	m[key][edgeID] = struct{}{}
}

func (g *Graph) unlink(edgeID string) {
	e, ok := g.edges[edgeID]
	if !ok {
		return
	}
	delete(g.out[e.Source], edgeID)
	delete(g.in[e.Target], edgeID)
	delete(g.edges, edgeID)
	delete(g.seq, "e:"+edgeID)
}

// RemoveEdge deletes a single edge.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return errors.Wrap(ErrEdgeNotFound, id)
	}
	g.unlink(id)
	return nil
}

func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	g.sortEdges(out)
	return out
}

func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return g.seq["e:"+edges[i].ID] < g.seq["e:"+edges[j].ID]
	})
}

// Outgoing returns the edges leaving a node, in insertion order.
func (g *Graph) Outgoing(id string) []Edge {
	return g.collect(g.out[id])
}

// Incoming returns the edges entering a node, in insertion order.
func (g *Graph) Incoming(id string) []Edge {
	return g.collect(g.in[id])
}

func (g *Graph) collect(ids map[string]struct{}) []Edge {
	out := make([]Edge, 0, len(ids))
	for id := range ids {
		out = append(out, g.edges[id])
	}
	g.sortEdges(out)
	return out
}

// HasEdge returns true if an edge with the same source, target
// and source handle exists.
func (g *Graph) HasEdge(source, target, sourceHandle string) bool {
	for id := range g.out[source] {
		e := g.edges[id]
		if e.Target == target && e.SourceHandle == sourceHandle {
			return true
		}
	}
	return false
}

// Clone returns a copy of the graph. Node payloads are shared,
// as they are treated as immutable values.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for _, n := range g.Nodes() {
		_ = c.AddNode(n)
	}
	for _, e := range g.Edges() {
		_, _ = c.AddEdge(e)
	}
	return c
}

// Digraph projects the workflow onto a dominikbraun/graph directed graph,
// with one vertex per node and one edge per connected node pair.
// Parallel edges (e.g. both branches of an if/else into the same node)
// collapse into a single edge labelled with every handle.
func (g *Graph) Digraph() graph.Graph[string, node.Node] {
	dg := graph.New(func(n node.Node) string { return n.ID }, graph.Directed())
	for _, n := range g.Nodes() {
		_ = dg.AddVertex(n, graph.VertexAttribute("label", n.Label()))
	}
	type pair struct{ source, target string }
	var pairs []pair
	labels := map[pair][]string{}
	for _, e := range g.Edges() {
		p := pair{e.Source, e.Target}
		if _, ok := labels[p]; !ok {
			pairs = append(pairs, p)
			labels[p] = nil
		}
		if e.SourceHandle != "" {
			labels[p] = append(labels[p], e.SourceHandle)
		}
	}
	for _, p := range pairs {
		_ = dg.AddEdge(p.source, p.target, graph.EdgeAttribute("label", strings.Join(labels[p], ",")))
	}
	return dg
}
