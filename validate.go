package flow

import (
	"fmt"
	"strings"

	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
)

// Severity of a validation issue.
type Severity string

const (
	// SeverityError blocks the workflow from running, but never blocks editing.
	SeverityError Severity = "error"
	// SeverityWarning is advisory.
	SeverityWarning Severity = "warning"
)

// IssueType classifies a validation issue.
type IssueType string

const (
	IssueCycle             IssueType = "cycle"
	IssueTypeMismatch      IssueType = "type_mismatch"
	IssueInvalidConnection IssueType = "invalid_connection"
	IssueInvalidExpression IssueType = "invalid_expression"
	IssueMissingLabel      IssueType = "missing_label"
	IssueOrphanedNode      IssueType = "orphaned_node"
)

type Issue struct {
	Type     IssueType
	Severity Severity
	Message  string
	// NodeIDs and EdgeIDs are the graph elements to highlight.
	NodeIDs []string
	EdgeIDs []string
	// CyclePath is set for cycle issues.
	CyclePath []string
	// Label is the missing output label for missing_label issues.
	Label string
}

// ValidationResult is a snapshot of the validity of a graph.
// It is recomputed wholesale after every mutation and must be
// treated as read-only by consumers.
type ValidationResult struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// NodeIDs returns the IDs of every node referenced by an issue,
// for highlighting. Each ID appears once, in the order first seen.
func (r ValidationResult) NodeIDs() []string {
	return collectIDs(r, func(i Issue) []string { return i.NodeIDs })
}

// EdgeIDs returns the IDs of every edge referenced by an issue.
func (r ValidationResult) EdgeIDs() []string {
	return collectIDs(r, func(i Issue) []string { return i.EdgeIDs })
}

func collectIDs(r ValidationResult, get func(Issue) []string) []string {
	seen := map[string]bool{}
	var ids []string
	for _, list := range [][]Issue{r.Errors, r.Warnings} {
		for _, issue := range list {
			for _, id := range get(issue) {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// FirstError returns the first error, if any.
func (r ValidationResult) FirstError() (Issue, bool) {
	if len(r.Errors) == 0 {
		return Issue{}, false
	}
	return r.Errors[0], true
}

// Validate runs every structural check over the graph:
//
//   - cycle detection (error)
//   - edge endpoint, rule and port type checks for every edge (error)
//   - CEL type-checking of if/else expressions (error)
//   - every output label of a conditional node is connected (warning)
//   - non-trigger nodes have at least one edge (warning)
//
// Validate has no side effects; calling it twice on the same graph
// gives equal results.
func Validate(g *Graph, reg port.Registry) ValidationResult {
	var res ValidationResult

	cycles := DetectCycles(g)
	if cycles.HasCycle {
		res.Errors = append(res.Errors, Issue{
			Type:      IssueCycle,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("Circular dependency detected: %s", strings.Join(cycles.CyclePath, " -> ")),
			NodeIDs:   cycles.CycleNodes,
			EdgeIDs:   cycleEdges(g, cycles.CyclePath),
			CyclePath: cycles.CyclePath,
		})
	}

	for _, e := range g.Edges() {
		if issue, ok := validateEdge(g, reg, e); !ok {
			res.Errors = append(res.Errors, issue)
		}
	}

	for _, n := range g.Nodes() {
		d, ok := n.Data.(node.IfElseData)
		if !ok || d.Expression == "" {
			continue
		}
		if _, err := compileExpression(d.Expression); err != nil {
			res.Errors = append(res.Errors, Issue{
				Type:     IssueInvalidExpression,
				Severity: SeverityError,
				Message:  fmt.Sprintf("Invalid expression on %s: %s", n.ID, err),
				NodeIDs:  []string{n.ID},
			})
		}
	}

	for _, n := range g.Nodes() {
		schema := reg.For(n.Kind())
		outgoing := g.Outgoing(n.ID)

		for _, label := range schema.RequiredLabels() {
			if !hasHandle(outgoing, label) {
				res.Warnings = append(res.Warnings, Issue{
					Type:     IssueMissingLabel,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%s has no connection for its %q output", n.Label(), label),
					NodeIDs:  []string{n.ID},
					Label:    label,
				})
			}
		}

		if !n.Kind().IsTrigger() && len(outgoing) == 0 && len(g.Incoming(n.ID)) == 0 {
			res.Warnings = append(res.Warnings, Issue{
				Type:     IssueOrphanedNode,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s is not connected to the workflow", n.Label()),
				NodeIDs:  []string{n.ID},
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// validateEdge re-derives the ports of an existing edge and checks them.
// Edges loaded from a snapshot never went through CanConnect, so the
// structural rules are checked here too.
func validateEdge(g *Graph, reg port.Registry, e Edge) (Issue, bool) {
	invalid := func(format string, args ...any) (Issue, bool) {
		return Issue{
			Type:     IssueInvalidConnection,
			Severity: SeverityError,
			Message:  fmt.Sprintf(format, args...),
			NodeIDs:  []string{e.Source, e.Target},
			EdgeIDs:  []string{e.ID},
		}, false
	}

	src, srcOK := g.Node(e.Source)
	tgt, tgtOK := g.Node(e.Target)
	if !srcOK || !tgtOK {
		return invalid("Edge %s references a node that does not exist", e.ID)
	}
	if e.Source == e.Target {
		return invalid("Edge %s connects %s to itself", e.ID, e.Source)
	}
	if src.Kind().IsTrigger() && tgt.Kind().IsTrigger() {
		return invalid("Edge %s connects two triggers", e.ID)
	}

	out, ok := reg.For(src.Kind()).Output(e.SourceHandle)
	if !ok {
		return invalid("Edge %s uses unknown output %q of %s", e.ID, handleName(e.SourceHandle, port.DefaultOutput), e.Source)
	}
	in, ok := reg.For(tgt.Kind()).Input(e.TargetHandle)
	if !ok {
		return invalid("Edge %s uses unknown input %q of %s", e.ID, handleName(e.TargetHandle, port.DefaultInput), e.Target)
	}
	if !port.CompatibleWithAny(out.Produces, in.Accepts) {
		return Issue{
			Type:     IssueTypeMismatch,
			Severity: SeverityError,
			Message:  fmt.Sprintf("Edge %s: %s", e.ID, portMismatch(out, in)),
			NodeIDs:  []string{e.Source, e.Target},
			EdgeIDs:  []string{e.ID},
		}, false
	}
	return Issue{}, true
}

func hasHandle(edges []Edge, handle string) bool {
	for _, e := range edges {
		if e.SourceHandle == handle {
			return true
		}
	}
	return false
}

// cycleEdges returns the IDs of the edges along a cycle path.
func cycleEdges(g *Graph, path []string) []string {
	var ids []string
	for i := 0; i+1 < len(path); i++ {
		for _, e := range g.Outgoing(path[i]) {
			if e.Target == path[i+1] {
				ids = append(ids, e.ID)
			}
		}
	}
	return ids
}
