package flow

import (
	"fmt"
	"sync"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// ErrGraphInvalid is returned when compiling a graph with validation errors.
var ErrGraphInvalid = errors.New("workflow graph is invalid")

// Compiler turns an editable graph into an immutable Plan
// which the Engine can run.
type Compiler struct {
	Graph *Graph
	// Registry is port.Default if not provided.
	Registry port.Registry
}

// Plan is a validated snapshot of a graph, with the CEL programs
// for its if/else expressions compiled ahead of time.
type Plan struct {
	// G is a copy of the compiled graph, so that edits made
	// while a run is in flight can't affect it.
	G          *Graph
	Registry   port.Registry
	Validation ValidationResult

	// programs is a map of node IDs to compiled CEL programs.
	programs map[string]cel.Program
}

// Compile validates the graph and compiles its expressions.
// Graphs with validation errors can't be compiled; warnings are allowed.
func (c *Compiler) Compile() (*Plan, error) {
	if c.Graph == nil {
		return nil, errors.New("compiler has no graph")
	}
	reg := c.Registry
	if reg == nil {
		reg = port.Default
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	res := Validate(c.Graph, reg)
	if first, ok := res.FirstError(); ok {
		return nil, errors.Wrapf(ErrGraphInvalid, "%s (%d errors)", first.Message, len(res.Errors))
	}

	p := &Plan{
		G:          c.Graph.Clone(),
		Registry:   reg,
		Validation: res,
		programs:   map[string]cel.Program{},
	}

	for _, n := range p.G.Nodes() {
		d, ok := n.Data.(node.IfElseData)
		if !ok || d.Expression == "" {
			continue
		}
		prg, err := compileExpression(d.Expression)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling expression for %s", n.ID)
		}
		p.programs[n.ID] = prg
	}
	return p, nil
}

// celEnv is the environment for if/else expressions.
// Expressions can reference:
//
//	input  the output of the step feeding the if/else
//	vars   workflow variables set by transform steps
//	nodes  the outputs of every step run so far, by node ID
//
// e.g. `input.status == 200 && vars.plan == "pro"`
var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("input", cel.DynType),
		cel.Variable("vars", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("nodes", cel.MapType(cel.StringType, cel.DynType)),
	)
})

func compileExpression(expr string) (cel.Program, error) {
	env, err := celEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL type-check error: %s", issues.Err())
	}
	if t := ast.OutputType(); t != cel.BoolType && t != cel.DynType {
		return nil, fmt.Errorf("CEL expression must return a boolean (returned %s instead)", t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program construction error: %s", err)
	}
	return prg, nil
}
