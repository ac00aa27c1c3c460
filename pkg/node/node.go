package node

import "fmt"

// Kind is the closed set of node kinds a workflow can contain.
type Kind string

const (
	ManualTrigger  Kind = "manualTrigger"
	WebhookTrigger Kind = "webhookTrigger"

	HTTPRequest Kind = "httpRequest"
	Email       Kind = "email"
	SMS         Kind = "sms"

	IfElse    Kind = "ifElse"
	Delay     Kind = "delay"
	Transform Kind = "transform"
)

// Kinds lists every known kind, triggers first.
var Kinds = []Kind{
	ManualTrigger,
	WebhookTrigger,
	HTTPRequest,
	Email,
	SMS,
	IfElse,
	Delay,
	Transform,
}

func (k Kind) String() string {
	return string(k)
}

// Valid returns true if the kind is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsTrigger returns true for kinds which start a workflow.
func (k Kind) IsTrigger() bool {
	return k == ManualTrigger || k == WebhookTrigger
}

// Position is the location of a node on the editing canvas.
// It is presentational only.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

type Node struct {
	// ID is a unique string identifier for the node.
	// e.g. "http-1"
	ID string

	Position Position

	// Data is the kind-specific payload of the node.
	// The node's kind is always derived from it.
	Data Data
}

// Kind of the node. Panics if the node has no payload,
// as a node without a payload is a construction error.
func (n Node) Kind() Kind {
	if n.Data == nil {
		panic(fmt.Sprintf("node %s has no data", n.ID))
	}
	return n.Data.Kind()
}

// Label is a human-friendly label for the node, used in
// graph representations and logs.
func (n Node) Label() string {
	if n.Data == nil {
		return n.ID
	}
	if l := n.Data.Common().Label; l != "" {
		return l
	}
	return fmt.Sprintf("%s: %s", n.Data.Kind(), n.ID)
}
