package flow

import (
	"testing"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
	"github.com/stretchr/testify/require"
)

// build creates a graph from nodes and edges without applying
// any connection rules, the same as loading a snapshot.
func build(t *testing.T, nodes []node.Node, edges ...Edge) *Graph {
	t.Helper()
	g := NewGraph()
	for _, nd := range nodes {
		require.NoError(t, g.AddNode(nd))
	}
	for _, e := range edges {
		_, err := g.AddEdge(e)
		require.NoError(t, err)
	}
	return g
}

func link(source, target string) Edge {
	return Edge{Source: source, Target: target}
}

func linkVia(source, handle, target string) Edge {
	return Edge{Source: source, Target: target, SourceHandle: handle}
}

func nodes(list ...node.Node) []node.Node { return list }

// withSchema returns a copy of the default registry with one schema replaced.
func withSchema(kind node.Kind, s port.Schema) port.Registry {
	reg := port.Registry{}
	for k, v := range port.Default {
		reg[k] = v
	}
	reg[kind] = s
	return reg
}
