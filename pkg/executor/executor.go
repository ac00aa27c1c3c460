// Package executor defines the boundary between the workflow engine
// and the units which perform a node's side effects, such as making
// an HTTP call or sending an email.
//
// Executors receive a node's payload with its {{ }} placeholders
// already resolved, and either return an output or fail.
package executor

import (
	"context"

	"github.com/common-fate/flow/pkg/node"
	"github.com/mitchellh/mapstructure"
)

// Output of an executor. It is stored as the node's output
// in the run context.
type Output = map[string]any

type Executor interface {
	Execute(ctx context.Context, data node.Data) (Output, error)
}

// Func adapts a function to an Executor.
type Func func(ctx context.Context, data node.Data) (Output, error)

func (f Func) Execute(ctx context.Context, data node.Data) (Output, error) {
	return f(ctx, data)
}

// Registry maps node kinds to the executors which run them.
type Registry map[node.Kind]Executor

// For returns the executor for a kind.
func (r Registry) For(kind node.Kind) (Executor, bool) {
	e, ok := r[kind]
	return e, ok
}

// Error is a failure which still produced an output, such as an
// HTTP response with an error status. The output is recorded so that
// steps on an error branch can inspect it.
type Error struct {
	Message string
	Output  Output
	// Permanent errors are not retried.
	Permanent bool
}

func (e *Error) Error() string {
	return e.Message
}

// ToOutput converts a typed result struct into an Output,
// using its mapstructure tags as keys.
func ToOutput(v any) Output {
	out := Output{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return Output{"result": v}
	}
	return out
}
