// package 'n' contains helper methods for building nodes.
// It is used as a convenience method when writing tests
// for workflow graphs.
package n

import (
	"github.com/common-fate/flow/pkg/condition"
	"github.com/common-fate/flow/pkg/node"
)

// New creates a node with the payload.
func New(id string, data node.Data) node.Node {
	return node.Node{ID: id, Data: data}
}

// Manual creates a manual trigger. The payload is merged into its output.
func Manual(id string, payload map[string]any) node.Node {
	return New(id, node.ManualTriggerData{Payload: payload})
}

func Webhook(id, url string) node.Node {
	return New(id, node.WebhookTriggerData{Method: "POST", URL: url})
}

func HTTP(id, method, url string) node.Node {
	return New(id, node.HTTPRequestData{Method: method, URL: url})
}

func Email(id, subject string, to ...string) node.Node {
	return New(id, node.EmailData{To: to, Subject: subject})
}

func SMS(id, to, message string) node.Node {
	return New(id, node.SMSData{To: to, Message: message})
}

// If creates an if/else node from a list of conditions.
func If(id string, conds ...condition.Condition) node.Node {
	return New(id, node.IfElseData{Conditions: conds})
}

// IfExpr creates an if/else node which branches on a CEL expression.
func IfExpr(id, expression string) node.Node {
	return New(id, node.IfElseData{Expression: expression})
}

func Delay(id string, value float64, unit string) node.Node {
	return New(id, node.DelayData{Value: value, Unit: unit})
}

// Transform creates a transform node with the mappings.
//
// Usage:
//
//	n.Transform("t", n.Path("id", "data.user.id"), n.Static("plan", "pro"))
func Transform(id string, mappings ...node.Mapping) node.Node {
	return New(id, node.TransformData{Mappings: mappings})
}

func Path(variable, path string) node.Mapping {
	return node.Mapping{VariableName: variable, Type: node.MappingPath, Value: path}
}

func Static(variable string, value any) node.Mapping {
	return node.Mapping{VariableName: variable, Type: node.MappingStatic, Value: value}
}

// Equals is a string equality condition.
func Equals(field, value string) condition.Condition {
	return condition.Condition{Field: field, Operator: condition.Equals, ValueType: condition.String, Value: value}
}

// Cond builds a condition. Use Or to join it with OR.
func Cond(field string, op condition.Operator, vt condition.ValueType, value any) condition.Condition {
	return condition.Condition{Field: field, Operator: op, ValueType: vt, Value: value}
}

// Or joins a condition onto the ones before it with OR.
func Or(c condition.Condition) condition.Condition {
	c.LogicalOp = condition.Or
	return c
}
