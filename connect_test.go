package flow

import (
	"testing"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/node/n"
	"github.com/common-fate/flow/pkg/port"
	"github.com/stretchr/testify/assert"
)

func TestCanConnect(t *testing.T) {
	// a registry where email steps only accept numbers,
	// so that an object can't flow into them.
	strict := withSchema(node.Email, port.Schema{
		Inputs:  []port.Port{{Name: port.DefaultInput, Accepts: []port.Type{port.Number}}},
		Outputs: []port.Port{{Name: port.DefaultOutput, Produces: port.Object}},
	})

	tests := []struct {
		name       string
		nodes      []node.Node
		edges      []Edge
		registry   port.Registry
		give       Connection
		wantReason string
		wantRule   Rule
	}{
		{
			name:  "ok",
			nodes: nodes(n.Manual("t", nil), n.HTTP("http", "GET", "https://example.com")),
			give:  Connection{Source: "t", Target: "http"},
		},
		{
			name:       "missing node",
			nodes:      nodes(n.Manual("t", nil)),
			give:       Connection{Source: "t", Target: "nope"},
			wantReason: "Source or target node does not exist",
			wantRule:   RuleNodesExist,
		},
		{
			name:       "self connection",
			nodes:      nodes(n.HTTP("http", "GET", "https://example.com")),
			give:       Connection{Source: "http", Target: "http", SourceHandle: "output", TargetHandle: "output"},
			wantReason: "A node cannot connect to itself",
			wantRule:   RuleNoSelfLoop,
		},
		{
			name:       "trigger to trigger",
			nodes:      nodes(n.Manual("a", nil), n.Webhook("b", "https://example.com")),
			give:       Connection{Source: "a", Target: "b"},
			wantReason: "Trigger nodes cannot connect to other triggers",
			wantRule:   RuleNoTriggerPair,
		},
		{
			name:       "cycle",
			nodes:      steps("A", "B", "C"),
			edges:      []Edge{link("A", "B"), link("B", "C")},
			give:       Connection{Source: "C", Target: "A"},
			wantReason: "This connection would create a circular dependency",
			wantRule:   RuleNoCycle,
		},
		{
			name:       "unknown output",
			nodes:      nodes(n.HTTP("http", "GET", "https://example.com"), n.Email("mail", "hi", "a@example.com")),
			give:       Connection{Source: "http", Target: "mail"},
			wantReason: `httpRequest nodes have no output "output"`,
			wantRule:   RulePortTypes,
		},
		{
			name:       "incompatible types",
			nodes:      nodes(n.Manual("t", nil), n.Email("mail", "hi", "a@example.com")),
			registry:   strict,
			give:       Connection{Source: "t", Target: "mail"},
			wantReason: `Output "output" (object) is not compatible with input "input" (accepts number)`,
			wantRule:   RulePortTypes,
		},
		{
			name:     "branch output into a typed input",
			nodes:    nodes(n.If("if"), n.Transform("tx")),
			give:     Connection{Source: "if", Target: "tx", SourceHandle: "true"},
			registry: strict,
		},
		{
			name:       "duplicate",
			nodes:      nodes(n.If("if"), n.Delay("d", 1, "ms")),
			edges:      []Edge{linkVia("if", "true", "d")},
			give:       Connection{Source: "if", Target: "d", SourceHandle: "true"},
			wantReason: "Connection already exists",
			wantRule:   RuleNoDuplicate,
		},
		{
			name:  "other branch to the same node",
			nodes: nodes(n.If("if"), n.Delay("d", 1, "ms")),
			edges: []Edge{linkVia("if", "true", "d")},
			give:  Connection{Source: "if", Target: "d", SourceHandle: "false"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, tt.nodes, tt.edges...)
			reg := tt.registry
			if reg == nil {
				reg = port.Default
			}
			got := CanConnect(g, reg, tt.give)

			if tt.wantReason == "" {
				assert.True(t, got.Allowed)
				assert.Empty(t, got.Errors)
				return
			}
			assert.False(t, got.Allowed)
			assert.Equal(t, tt.wantReason, got.Reason)
			if assert.Len(t, got.Errors, 1) {
				assert.Equal(t, tt.wantRule, got.Errors[0].Rule)
			}
		})
	}
}

func TestEditor_Connect(t *testing.T) {
	t.Run("self connection adds no edge", func(t *testing.T) {
		e := NewEditor(nil, nil)
		assert.NoError(t, e.AddNode(n.HTTP("http", "GET", "https://example.com")))

		_, d := e.Connect(Connection{Source: "http", Target: "http", SourceHandle: "output", TargetHandle: "output"})
		assert.False(t, d.Allowed)
		assert.Equal(t, "A node cannot connect to itself", d.Reason)
		assert.Equal(t, 0, e.Graph().EdgeCount())
	})

	t.Run("cycle is rejected", func(t *testing.T) {
		e := NewEditor(build(t, steps("A", "B", "C"), link("A", "B"), link("B", "C")), nil)

		_, d := e.Connect(Connection{Source: "C", Target: "A"})
		assert.False(t, d.Allowed)
		assert.Equal(t, RuleNoCycle, d.Errors[0].Rule)
		assert.Equal(t, 2, e.Graph().EdgeCount())
	})

	t.Run("allowed connection revalidates", func(t *testing.T) {
		e := NewEditor(nil, nil)
		assert.NoError(t, e.AddNode(n.Manual("t", nil)))
		assert.NoError(t, e.AddNode(n.Delay("d", 1, "ms")))
		assert.Len(t, e.Validation().Warnings, 1)

		edge, d := e.Connect(Connection{Source: "t", Target: "d"})
		assert.True(t, d.Allowed)
		assert.Equal(t, "t->d", edge.ID)
		assert.Empty(t, e.Validation().Warnings)

		assert.NoError(t, e.Disconnect(edge.ID))
		assert.Len(t, e.Validation().Warnings, 1)
	})
}
