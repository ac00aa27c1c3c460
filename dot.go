package flow

import (
	"io"

	"github.com/common-fate/flow/pkg/runctx"
	"github.com/dominikbraun/graph/draw"
)

var statusColors = map[runctx.Status]string{
	runctx.Success: "#00FF00",
	runctx.Running: "#89CFF0",
	runctx.Error:   "#FF6961",
	runctx.Skipped: "#D3D3D3",
}

// DOT writes the graph in Graphviz DOT format. Nodes are shaded
// by their status in a run, if statuses are provided.
func DOT(g *Graph, w io.Writer, statuses map[string]runctx.Status) error {
	dg := g.Digraph()

	for id, status := range statuses {
		color, ok := statusColors[status]
		if !ok {
			continue
		}
		_, props, err := dg.VertexWithProperties(id)
		if err != nil {
			return err
		}
		props.Attributes["style"] = "filled"
		props.Attributes["fillcolor"] = color
	}

	return draw.DOT(dg, w)
}
