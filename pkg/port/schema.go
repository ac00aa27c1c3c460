package port

import (
	"fmt"

	"github.com/common-fate/flow/pkg/node"
)

// Default port names, used when an edge doesn't specify a handle.
const (
	DefaultInput  = "input"
	DefaultOutput = "output"
)

// Labels of the conditional outputs.
const (
	True    = "true"
	False   = "false"
	Success = "success"
	Error   = "error"
)

// Port is a named attachment point on a node.
type Port struct {
	Name string
	// Accepts is set on input ports.
	Accepts []Type
	// Produces is set on output ports.
	Produces Type
}

type Schema struct {
	Inputs  []Port
	Outputs []Port
	// Conditional is true if every output must have an outgoing edge
	// for the node to be fully specified.
	Conditional bool
}

// Input returns the input port with the name.
// An empty name is the default input.
func (s Schema) Input(name string) (Port, bool) {
	if name == "" {
		name = DefaultInput
	}
	for _, p := range s.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Output returns the output port with the name.
// An empty name is the default output.
func (s Schema) Output(name string) (Port, bool) {
	if name == "" {
		name = DefaultOutput
	}
	for _, p := range s.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// RequiredLabels returns the output labels which must each have an outgoing
// edge. It is empty for non-conditional schemas.
func (s Schema) RequiredLabels() []string {
	if !s.Conditional {
		return nil
	}
	labels := make([]string, 0, len(s.Outputs))
	for _, p := range s.Outputs {
		labels = append(labels, p.Name)
	}
	return labels
}

// Registry maps each node kind to its port schema.
type Registry map[node.Kind]Schema

// For returns the schema for a kind.
// A missing schema is a programming error, so For panics.
func (r Registry) For(kind node.Kind) Schema {
	s, ok := r[kind]
	if !ok {
		panic(fmt.Sprintf("port: no schema registered for node kind %q", kind))
	}
	return s
}

// Validate checks that every known node kind has a schema.
func (r Registry) Validate() error {
	for _, k := range node.Kinds {
		s, ok := r[k]
		if !ok {
			return fmt.Errorf("port registry error: no schema for node kind %s", k)
		}
		if len(s.Outputs) == 0 {
			return fmt.Errorf("port registry error: node kind %s has no outputs", k)
		}
		if k.IsTrigger() && len(s.Inputs) > 0 {
			return fmt.Errorf("port registry error: trigger %s must not have inputs", k)
		}
	}
	return nil
}

func input(accepts ...Type) []Port {
	return []Port{{Name: DefaultInput, Accepts: accepts}}
}

func output(t Type) []Port {
	return []Port{{Name: DefaultOutput, Produces: t}}
}

// Default is the registry of the built-in node kinds.
var Default = Registry{
	node.ManualTrigger:  {Outputs: output(Object)},
	node.WebhookTrigger: {Outputs: output(Object)},
	node.HTTPRequest: {
		Inputs: input(Any),
		Outputs: []Port{
			{Name: Success, Produces: Object},
			{Name: Error, Produces: Object},
		},
		Conditional: true,
	},
	node.Email: {Inputs: input(Any), Outputs: output(Object)},
	node.SMS:   {Inputs: input(Any), Outputs: output(Object)},
	node.IfElse: {
		Inputs: input(Any),
		Outputs: []Port{
			{Name: True, Produces: Any},
			{Name: False, Produces: Any},
		},
		Conditional: true,
	},
	node.Delay:     {Inputs: input(Any), Outputs: output(Any)},
	node.Transform: {Inputs: input(Object, Array), Outputs: output(Object)},
}
