package flow

import (
	"fmt"
	"strings"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
)

// Rule identifies a connection rule.
type Rule string

const (
	RuleNodesExist    Rule = "nodes_exist"
	RuleNoSelfLoop    Rule = "no_self_connection"
	RuleNoTriggerPair Rule = "no_trigger_to_trigger"
	RuleNoCycle       Rule = "no_cycle"
	RulePortTypes     Rule = "port_types"
	RuleNoDuplicate   Rule = "no_duplicate"
)

// Connection is a candidate edge.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Violation of a connection rule.
type Violation struct {
	Rule    Rule
	Message string
}

// Decision is the outcome of checking a connection.
// Rejections are returned rather than raised, so that callers can
// surface Reason inline.
type Decision struct {
	Allowed bool
	// Reason is the message of the first violated rule.
	Reason string
	Errors []Violation
}

func reject(rule Rule, format string, args ...any) Decision {
	msg := fmt.Sprintf(format, args...)
	return Decision{
		Reason: msg,
		Errors: []Violation{{Rule: rule, Message: msg}},
	}
}

// CanConnect checks a candidate connection against the connection rules,
// in order, stopping at the first violation:
//
//  1. both nodes exist
//  2. the node isn't connecting to itself
//  3. the connection isn't directly between two triggers
//  4. the connection doesn't create a cycle
//  5. the resolved ports exist and their types are compatible
//  6. the same source, target and source handle isn't already connected
func CanConnect(g *Graph, reg port.Registry, c Connection) Decision {
	src, srcOK := g.Node(c.Source)
	tgt, tgtOK := g.Node(c.Target)
	if !srcOK || !tgtOK {
		return reject(RuleNodesExist, "Source or target node does not exist")
	}

	if c.Source == c.Target {
		return reject(RuleNoSelfLoop, "A node cannot connect to itself")
	}

	if src.Kind().IsTrigger() && tgt.Kind().IsTrigger() {
		return reject(RuleNoTriggerPair, "Trigger nodes cannot connect to other triggers")
	}

	if WouldCreateCycle(g, c.Source, c.Target) {
		return reject(RuleNoCycle, "This connection would create a circular dependency")
	}

	if msg := checkPorts(reg, src.Kind(), tgt.Kind(), c.SourceHandle, c.TargetHandle); msg != "" {
		return reject(RulePortTypes, msg)
	}

	if g.HasEdge(c.Source, c.Target, c.SourceHandle) {
		return reject(RuleNoDuplicate, "Connection already exists")
	}

	return Decision{Allowed: true}
}

// checkPorts resolves the source output and target input ports
// and checks that their types are compatible.
// It returns an empty string if they are.
func checkPorts(reg port.Registry, sourceKind, targetKind node.Kind, sourceHandle, targetHandle string) string {
	out, ok := reg.For(sourceKind).Output(sourceHandle)
	if !ok {
		return fmt.Sprintf("%s nodes have no output %q", sourceKind, handleName(sourceHandle, port.DefaultOutput))
	}
	in, ok := reg.For(targetKind).Input(targetHandle)
	if !ok {
		return fmt.Sprintf("%s nodes have no input %q", targetKind, handleName(targetHandle, port.DefaultInput))
	}
	if !port.CompatibleWithAny(out.Produces, in.Accepts) {
		return portMismatch(out, in)
	}
	return ""
}

func handleName(handle, def string) string {
	if handle == "" {
		return def
	}
	return handle
}

func portMismatch(out port.Port, in port.Port) string {
	accepts := make([]string, 0, len(in.Accepts))
	for _, a := range in.Accepts {
		accepts = append(accepts, string(a))
	}
	return fmt.Sprintf("Output %q (%s) is not compatible with input %q (accepts %s)",
		out.Name, out.Produces, in.Name, strings.Join(accepts, ", "))
}
