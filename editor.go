package flow

import (
	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
	"github.com/pkg/errors"
)

// Editor is an editing session over a single graph.
//
// Every structural mutation is followed by a full revalidation, and the
// cached ValidationResult is replaced wholesale. An Editor is not safe for
// concurrent use: edits are expected to be serialised by a single writer,
// such as a UI event loop.
type Editor struct {
	g          *Graph
	reg        port.Registry
	validation ValidationResult
}

// NewEditor creates an editing session. A nil graph starts an empty workflow,
// and a nil registry uses port.Default.
func NewEditor(g *Graph, reg port.Registry) *Editor {
	if g == nil {
		g = NewGraph()
	}
	if reg == nil {
		reg = port.Default
	}
	e := &Editor{g: g, reg: reg}
	e.validate()
	return e
}

func (e *Editor) validate() {
	e.validation = Validate(e.g, e.reg)
}

// Graph returns the graph being edited. Callers must not mutate it directly,
// as that would bypass revalidation.
func (e *Editor) Graph() *Graph { return e.g }

func (e *Editor) Registry() port.Registry { return e.reg }

// Validation returns the result of the most recent validation.
func (e *Editor) Validation() ValidationResult { return e.validation }

// AddNode adds a node to the workflow.
func (e *Editor) AddNode(n node.Node) error {
	if err := e.g.AddNode(n); err != nil {
		return err
	}
	e.validate()
	return nil
}

// UpdateNode replaces the payload of a node. The kind of a node can't change.
func (e *Editor) UpdateNode(id string, data node.Data) error {
	n, ok := e.g.Node(id)
	if !ok {
		return errors.Wrap(ErrNodeNotFound, id)
	}
	if data == nil || data.Kind() != n.Kind() {
		return errors.Errorf("node %s is a %s node and can't be given %v data", id, n.Kind(), kindOf(data))
	}
	n.Data = data
	if err := e.g.SetNode(n); err != nil {
		return err
	}
	e.validate()
	return nil
}

func kindOf(d node.Data) string {
	if d == nil {
		return "no"
	}
	return d.Kind().String()
}

// MoveNode changes the canvas position of a node.
// Position is presentational so no revalidation is needed.
func (e *Editor) MoveNode(id string, pos node.Position) error {
	n, ok := e.g.Node(id)
	if !ok {
		return errors.Wrap(ErrNodeNotFound, id)
	}
	n.Position = pos
	return e.g.SetNode(n)
}

// RemoveNode removes a node and its edges.
func (e *Editor) RemoveNode(id string) error {
	if err := e.g.RemoveNode(id); err != nil {
		return err
	}
	e.validate()
	return nil
}

// CanConnect checks a connection without committing it.
func (e *Editor) CanConnect(c Connection) Decision {
	return CanConnect(e.g, e.reg, c)
}

// Connect adds an edge if the connection rules allow it.
// The edge is only returned if the decision is allowed.
func (e *Editor) Connect(c Connection) (Edge, Decision) {
	d := CanConnect(e.g, e.reg, c)
	if !d.Allowed {
		return Edge{}, d
	}
	edge, err := e.g.AddEdge(Edge{
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	})
	if err != nil {
		// the nodes were checked above, so this is unreachable
		// unless the graph was mutated underneath the editor.
		return Edge{}, reject(RuleNodesExist, err.Error())
	}
	e.validate()
	return edge, d
}

// Disconnect removes an edge.
func (e *Editor) Disconnect(edgeID string) error {
	if err := e.g.RemoveEdge(edgeID); err != nil {
		return err
	}
	e.validate()
	return nil
}

// Load replaces the graph with one rehydrated from a snapshot.
func (e *Editor) Load(data []byte) error {
	g, err := Unmarshal(data)
	if err != nil {
		return err
	}
	e.g = g
	e.validate()
	return nil
}

// Compile the current graph into a runnable Plan.
func (e *Editor) Compile() (*Plan, error) {
	c := Compiler{Graph: e.g, Registry: e.reg}
	return c.Compile()
}
