package flow

import (
	"encoding/json"

	"github.com/common-fate/flow/pkg/node"
	"github.com/goccy/go-yaml"
)

// snapshotDoc is the persisted shape of a workflow:
//
//	nodes:
//	  - id: trigger
//	    type: manualTrigger
//	    position: {x: 0, y: 0}
//	    data:
//	      kind: manualTrigger
//	edges:
//	  - id: trigger->http
//	    source: trigger
//	    target: http
type snapshotDoc struct {
	Nodes []snapshotNode `yaml:"nodes" json:"nodes"`
	Edges []Edge         `yaml:"edges" json:"edges"`
}

type snapshotNode struct {
	ID       string         `yaml:"id" json:"id"`
	Type     string         `yaml:"type" json:"type"`
	Position node.Position  `yaml:"position" json:"position"`
	Data     map[string]any `yaml:"data" json:"data"`
}

func snapshot(g *Graph) (snapshotDoc, error) {
	doc := snapshotDoc{
		Nodes: []snapshotNode{},
		Edges: g.Edges(),
	}
	for _, n := range g.Nodes() {
		data, err := node.Encode(n.Data)
		if err != nil {
			return doc, err
		}
		doc.Nodes = append(doc.Nodes, snapshotNode{
			ID:       n.ID,
			Type:     n.Kind().String(),
			Position: n.Position,
			Data:     data,
		})
	}
	return doc, nil
}

// Marshal a graph into a YAML snapshot, which Unmarshal can load.
func Marshal(g *Graph) ([]byte, error) {
	doc, err := snapshot(g)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// MarshalJSON marshals a graph into a JSON snapshot.
func MarshalJSON(g *Graph) ([]byte, error) {
	doc, err := snapshot(g)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}
