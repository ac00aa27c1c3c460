package flow

import (
	"fmt"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/noderr"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Unmarshal rehydrates a graph from a persisted snapshot.
// The snapshot may be YAML or JSON.
//
// Errors for a particular node or edge are noderr.NodeError values,
// carrying the path of the offending element.
func Unmarshal(data []byte) (*Graph, error) {
	var doc snapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	g := NewGraph()
	for i, rn := range doc.Nodes {
		path := fmt.Sprintf("$.nodes[%d]", i)
		if rn.ID == "" {
			return nil, noderr.Wrap(errors.New("node must have an id"), path)
		}

		kind := node.Kind(rn.Type)
		if kind == "" {
			// fall back to the kind carried in the payload.
			k, _ := rn.Data["kind"].(string)
			kind = node.Kind(k)
		}
		d, err := node.Decode(kind, rn.Data)
		if err != nil {
			return nil, noderr.Wrap(errors.Wrapf(err, "node %s", rn.ID), path+".data")
		}

		err = g.AddNode(node.Node{ID: rn.ID, Position: rn.Position, Data: d})
		if err != nil {
			return nil, noderr.Wrap(err, path)
		}
	}

	for i, e := range doc.Edges {
		if _, err := g.AddEdge(e); err != nil {
			return nil, noderr.Wrap(err, fmt.Sprintf("$.edges[%d]", i))
		}
	}
	return g, nil
}
