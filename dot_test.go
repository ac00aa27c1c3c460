package flow

import (
	"bytes"
	"testing"

	"github.com/common-fate/flow/pkg/node/n"
	"github.com/common-fate/flow/pkg/runctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDOT(t *testing.T) {
	g := build(t,
		nodes(n.Manual("trigger", nil), n.If("if"), n.Delay("yes", 1, "ms"), n.Delay("no", 1, "ms")),
		link("trigger", "if"), linkVia("if", "true", "yes"), linkVia("if", "false", "no"),
	)

	var buf bytes.Buffer
	err := DOT(g, &buf, map[string]runctx.Status{
		"trigger": runctx.Success,
		"no":      runctx.Skipped,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `"#00FF00"`)
	assert.Contains(t, out, `"#D3D3D3"`)
	assert.Contains(t, out, `"true"`)

	err = DOT(g, &buf, map[string]runctx.Status{"missing": runctx.Success})
	assert.Error(t, err)
}
