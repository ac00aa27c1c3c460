// Package runctx holds the per-run state of a workflow execution:
// node outputs, derived variables, the path taken, failures,
// and the status of every node.
package runctx

import (
	"sync"

	"github.com/common-fate/flow/pkg/expr"
)

// NodeError is a failure recorded against a node.
type NodeError struct {
	NodeID  string `json:"nodeId" yaml:"nodeId"`
	Message string `json:"message" yaml:"message"`
}

// Context is the mutable record of a single run.
// The engine is the only writer; everything else reads.
type Context struct {
	mu        sync.RWMutex
	outputs   map[string]any
	variables map[string]any
	path      []string
	errors    []NodeError
}

func New() *Context {
	return &Context{
		outputs:   map[string]any{},
		variables: map[string]any{},
	}
}

// Record stores a node's output and appends it to the execution path.
func (c *Context) Record(nodeID string, output any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[nodeID] = output
	c.path = append(c.path, nodeID)
}

// Output returns the output of a node, if it has produced one.
func (c *Context) Output(nodeID string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[nodeID]
	return v, ok
}

// Outputs returns a copy of all node outputs.
func (c *Context) Outputs() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// SetVariables merges variables into the run.
func (c *Context) SetVariables(vars map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range vars {
		c.variables[k] = v
	}
}

func (c *Context) Variable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// Variables returns a copy of the variables.
func (c *Context) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// Path returns the node IDs in the order they executed.
func (c *Context) Path() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.path...)
}

// PathIndex returns the position of the node in the execution path,
// or -1 if it hasn't executed.
func (c *Context) PathIndex(nodeID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.path) - 1; i >= 0; i-- {
		if c.path[i] == nodeID {
			return i
		}
	}
	return -1
}

// Fail records a failure against a node.
func (c *Context) Fail(nodeID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, NodeError{NodeID: nodeID, Message: message})
}

func (c *Context) Errors() []NodeError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]NodeError(nil), c.errors...)
}

// Lookup resolves a path against the run. The first segment is matched
// against, in order:
//
//  1. a variable name, e.g. 'userId'
//  2. a node ID with an output, e.g. 'http-1.body.id'
//
// and otherwise the whole path is resolved against input, which is the
// output of the step feeding the node being evaluated.
func (c *Context) Lookup(path string, input any) (any, bool) {
	segs := expr.ParsePath(path)
	if len(segs) == 0 || segs[0].IsIndex {
		return expr.Extract(input, path)
	}
	first := segs[0].Key
	rest := expr.Join(segs[1:])

	c.mu.RLock()
	v, isVar := c.variables[first]
	out, isOutput := c.outputs[first]
	c.mu.RUnlock()

	switch {
	case isVar:
		if rest == "" {
			return v, true
		}
		return expr.Extract(v, rest)
	case isOutput:
		if rest == "" {
			return out, true
		}
		return expr.Extract(out, rest)
	}
	return expr.Extract(input, path)
}

// Scope returns an expr.Scope which resolves paths with Lookup.
func (c *Context) Scope(input any) expr.Scope {
	return expr.ScopeFunc(func(path string) (any, bool) {
		return c.Lookup(path, input)
	})
}
