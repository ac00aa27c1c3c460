package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/common-fate/clio"
	"github.com/common-fate/flow/pkg/condition"
	"github.com/common-fate/flow/pkg/executor"
	"github.com/common-fate/flow/pkg/executor/delay"
	"github.com/common-fate/flow/pkg/executor/mock"
	"github.com/common-fate/flow/pkg/node"
	"github.com/common-fate/flow/pkg/port"
	"github.com/common-fate/flow/pkg/runctx"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNoStartNodes      = errors.New("workflow has no start nodes")
	ErrStartNodeNotFound = errors.New("start node not found")
)

const (
	DefaultNodeTimeout    = 30 * time.Second
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second
)

// Options for a single run.
type Options struct {
	// StartNodeID runs the workflow from a specific node. If empty,
	// every node without incoming edges is a start node.
	StartNodeID string
	// MockMode replaces every executor with one from the mock package,
	// so that no external calls are made.
	MockMode bool
	// NodeTimeout bounds each attempt of an executor call. Delay steps
	// are given their requested duration on top of it.
	// DefaultNodeTimeout is used if not set.
	NodeTimeout time.Duration
	// MaxRetries is the number of times a failed executor call is retried.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// OnStatus is called each time a node changes status.
	OnStatus func(nodeID string, status runctx.Status)
}

func (o Options) withDefaults() Options {
	if o.NodeTimeout <= 0 {
		o.NodeTimeout = DefaultNodeTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return o
}

// Result of a workflow run.
type Result struct {
	ID      string
	Context *runctx.Context
	// Statuses of every node which left idle.
	Statuses map[string]runctx.Status
	// Halted is true if a node failure ended the run early.
	Halted bool
	// HaltedBy is the ID of the node which halted the run.
	HaltedBy string
	// Stopped is true if the run was cancelled.
	Stopped bool

	nodes []string
}

// Status returns the final status of a node.
func (r *Result) Status(nodeID string) runctx.Status {
	if s, ok := r.Statuses[nodeID]; ok {
		return s
	}
	return runctx.Idle
}

// Summary counts the nodes in each status.
type Summary struct {
	Success int
	Error   int
	Skipped int
	Idle    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d skipped, %d not run", s.Success, s.Error, s.Skipped, s.Idle)
}

func (r *Result) Summary() Summary {
	var s Summary
	for _, id := range r.nodes {
		switch r.Status(id) {
		case runctx.Success:
			s.Success++
		case runctx.Error:
			s.Error++
		case runctx.Skipped:
			s.Skipped++
		default:
			s.Idle++
		}
	}
	return s
}

// Succeeded returns true if the run finished without any node failing.
func (r *Result) Succeeded() bool {
	return !r.Halted && !r.Stopped && r.Summary().Error == 0
}

// Engine runs a compiled Plan. An Engine runs one workflow at a time.
type Engine struct {
	plan      *Plan
	executors executor.Registry

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEngine creates an engine for a plan. The executors handle
// the side-effecting node kinds; manual triggers, if/else and
// transform steps are run by the engine itself.
func NewEngine(plan *Plan, executors executor.Registry) *Engine {
	if executors == nil {
		executors = executor.Registry{}
	}
	return &Engine{plan: plan, executors: executors}
}

// Stop cancels the current run. Stopping an engine which isn't
// running does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Run the workflow. An error is only returned if the run
// could not start; node failures are recorded in the Result.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start, err := e.startNodes(opts.StartNodeID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer e.Stop()

	execs := e.executors
	if opts.MockMode {
		execs = mock.Registry()
	}

	r := &run{
		id:         uuid.NewString(),
		g:          e.plan.G,
		plan:       e.plan,
		opts:       opts,
		execs:      execs,
		rc:         runctx.New(),
		statuses:   runctx.NewStatuses(),
		visited:    map[string]bool{},
		inProgress: map[string]bool{},
		routes:     map[string]string{},
	}

	clio.Infof("starting run %s from %v", r.id, start)
	r.traverse(ctx, start)

	res := &Result{
		ID:       r.id,
		Context:  r.rc,
		Statuses: r.statuses.Map(),
		Halted:   r.haltedBy != "",
		HaltedBy: r.haltedBy,
		Stopped:  r.stopped,
	}
	for _, n := range r.g.Nodes() {
		res.nodes = append(res.nodes, n.ID)
	}
	clio.Infof("run %s finished: %s", r.id, res.Summary())
	return res, nil
}

// startNodes resolves where a run begins: the requested node, or
// every node without incoming edges, or failing that every trigger.
func (e *Engine) startNodes(requested string) ([]string, error) {
	g := e.plan.G
	if requested != "" {
		if _, ok := g.Node(requested); !ok {
			return nil, errors.Wrap(ErrStartNodeNotFound, requested)
		}
		return []string{requested}, nil
	}

	var roots, triggers []string
	for _, n := range g.Nodes() {
		if len(g.Incoming(n.ID)) == 0 {
			roots = append(roots, n.ID)
		}
		if n.Kind().IsTrigger() {
			triggers = append(triggers, n.ID)
		}
	}
	if len(roots) > 0 {
		return roots, nil
	}
	if len(triggers) > 0 {
		return triggers, nil
	}
	return nil, ErrNoStartNodes
}

// routeAll is the route of a node which continues along every outgoing edge.
const routeAll = "*"

type run struct {
	id    string
	g     *Graph
	plan  *Plan
	opts  Options
	execs executor.Registry

	rc       *runctx.Context
	statuses *runctx.Statuses

	visited    map[string]bool
	inProgress map[string]bool
	// routes holds the output handle each finished node continues along.
	routes map[string]string

	haltedBy string
	stopped  bool
}

func (r *run) done(ctx context.Context) bool {
	if r.haltedBy != "" || r.stopped {
		return true
	}
	if ctx.Err() != nil {
		r.stopped = true
		return true
	}
	return false
}

// traverse walks the graph breadth first from the start set.
func (r *run) traverse(ctx context.Context, start []string) {
	queue := append([]string{}, start...)
	for len(queue) > 0 {
		if r.done(ctx) {
			return
		}
		id := queue[0]
		queue = queue[1:]
		if r.visited[id] {
			continue
		}
		if !r.execute(ctx, id) {
			return
		}
		queue = append(queue, r.next(id)...)
	}
}

// next returns the targets of the live outgoing edges of a node.
func (r *run) next(id string) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range r.g.Outgoing(id) {
		if r.live(e) && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	return out
}

// live returns true if the source of an edge finished and routed along it.
func (r *run) live(e Edge) bool {
	route, ok := r.routes[e.Source]
	if !ok {
		return false
	}
	return route == routeAll || route == e.SourceHandle
}

// dead returns true if an edge can never carry data in this run.
// Edges whose source hasn't finished yet are not dead.
func (r *run) dead(e Edge) bool {
	if r.statuses.Get(e.Source) == runctx.Skipped {
		return true
	}
	route, ok := r.routes[e.Source]
	if !ok {
		// a failed source without a route halts the run.
		return r.statuses.Get(e.Source) == runctx.Error
	}
	return route != routeAll && route != e.SourceHandle
}

func (r *run) unreachable(id string) bool {
	in := r.g.Incoming(id)
	if len(in) == 0 {
		return false
	}
	for _, e := range in {
		if !r.dead(e) {
			return false
		}
	}
	return true
}

func (r *run) setStatus(id string, s runctx.Status) {
	if err := r.statuses.Transition(id, s); err != nil {
		panic(err)
	}
	if r.opts.OnStatus != nil {
		r.opts.OnStatus(id, s)
	}
}

// skip marks a node skipped if every edge into it is dead, and
// carries on to its own successors.
func (r *run) skip(id string) {
	if r.statuses.Get(id) != runctx.Idle || r.inProgress[id] || !r.unreachable(id) {
		return
	}
	r.setStatus(id, runctx.Skipped)
	r.visited[id] = true
	clio.Debugf("skipping %s", id)
	for _, e := range r.g.Outgoing(id) {
		r.skip(e.Target)
	}
}

// execute runs a node once every node feeding it has finished.
// It returns false if the run should stop.
func (r *run) execute(ctx context.Context, id string) bool {
	if r.visited[id] || r.inProgress[id] {
		return true
	}
	r.inProgress[id] = true
	defer delete(r.inProgress, id)

	// dependency gate: catch up on any upstream node which hasn't run.
	for _, e := range r.g.Incoming(id) {
		src := e.Source
		if r.visited[src] || r.inProgress[src] {
			continue
		}
		if !r.execute(ctx, src) {
			return false
		}
	}
	if r.done(ctx) {
		return false
	}
	if r.visited[id] {
		return true
	}

	r.visited[id] = true
	if r.unreachable(id) {
		r.setStatus(id, runctx.Skipped)
		clio.Debugf("skipping %s", id)
		for _, e := range r.g.Outgoing(id) {
			r.skip(e.Target)
		}
		return true
	}

	n, ok := r.g.Node(id)
	if !ok {
		panic(fmt.Sprintf("node %s is in the plan's edges but not its nodes", id))
	}

	r.setStatus(id, runctx.Running)
	clio.Debugf("running %s (%s)", id, n.Kind())

	input := r.input(id)
	out, route, err := r.dispatch(ctx, n, input)

	if ctx.Err() != nil {
		// the run was stopped while the node was in flight, so its result is discarded.
		r.stopped = true
		r.rc.Fail(id, "run was stopped")
		r.setStatus(id, runctx.Error)
		return false
	}

	if err != nil {
		r.rc.Fail(id, err.Error())
		r.setStatus(id, runctx.Error)
		clio.Errorf("%s failed: %s", n.Label(), err)

		if route == "" {
			r.haltedBy = id
			return false
		}
		// the failure is a modelled outcome of the node, such as an
		// HTTP step's error output, so the run continues down that branch.
		r.rc.Record(id, out)
		r.follow(id, route)
		return true
	}

	r.rc.Record(id, out)
	r.setStatus(id, runctx.Success)
	clio.Debugf("%s succeeded", id)
	r.follow(id, route)
	return true
}

// follow records the route a node took and skips the nodes
// which can only be reached along the other routes.
func (r *run) follow(id, route string) {
	r.routes[id] = route
	if route == routeAll {
		return
	}
	for _, e := range r.g.Outgoing(id) {
		if e.SourceHandle != route {
			r.skip(e.Target)
		}
	}
}

// input returns the output of the upstream node which finished most recently.
func (r *run) input(id string) any {
	var (
		latest any
		at     = -1
	)
	for _, e := range r.g.Incoming(id) {
		i := r.rc.PathIndex(e.Source)
		if i > at {
			if out, ok := r.rc.Output(e.Source); ok {
				latest, at = out, i
			}
		}
	}
	return latest
}

// dispatch runs a node and returns its output and the route to continue along.
// A failed node which returns a route continues down that route; a failed
// node without one halts the run.
func (r *run) dispatch(ctx context.Context, n node.Node, input any) (map[string]any, string, error) {
	scope := r.rc.Scope(input)

	switch d := n.Data.(type) {
	case node.ManualTriggerData:
		out := map[string]any{}
		for k, v := range d.Payload {
			out[k] = v
		}
		out["triggered"] = true
		out["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
		return out, routeAll, nil

	case node.IfElseData:
		out, err := r.branch(n.ID, d, input)
		if err != nil {
			return nil, "", err
		}
		return out, out["branch"].(string), nil

	case node.TransformData:
		out, err := r.transform(d, input)
		if err != nil {
			return nil, "", err
		}
		return out, routeAll, nil

	case node.HTTPRequestData:
		if err := r.configured(n); err != nil {
			return nil, "", err
		}
		out, err := r.call(ctx, n, resolveData(d, scope))
		if err != nil {
			return failureOutput(out, err), port.Error, err
		}
		return out, port.Success, nil

	case node.WebhookTriggerData, node.EmailData, node.SMSData, node.DelayData:
		out, err := r.call(ctx, n, resolveData(d, scope))
		if err != nil {
			return nil, "", err
		}
		return out, routeAll, nil
	}
	panic(fmt.Sprintf("engine: no handler for %T", n.Data))
}

// failureOutput is the output recorded for a failed step which
// continues along its error branch.
func failureOutput(partial executor.Output, err error) map[string]any {
	out := map[string]any{}
	var xerr *executor.Error
	if errors.As(err, &xerr) && xerr.Output != nil {
		partial = xerr.Output
	}
	for k, v := range partial {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

// branch decides which output of an if/else node is taken.
func (r *run) branch(id string, d node.IfElseData, input any) (map[string]any, error) {
	if prg, ok := r.plan.programs[id]; ok {
		val, _, err := prg.Eval(map[string]any{
			"input": input,
			"vars":  r.rc.Variables(),
			"nodes": r.rc.Outputs(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "evaluating expression")
		}
		b, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("expression returned %v, not a boolean", val.Value())
		}
		branch := condition.BranchFalse
		if b {
			branch = condition.BranchTrue
		}
		return map[string]any{"result": b, "branch": branch, "expression": d.Expression}, nil
	}

	res := condition.Evaluate(d.Conditions, r.rc.Scope(input))
	outcomes := make([]any, 0, len(res.PerCondition))
	for _, o := range res.PerCondition {
		outcomes = append(outcomes, map[string]any{
			"field":  o.Field,
			"actual": o.Actual,
			"found":  o.Found,
			"result": o.Result,
		})
	}
	return map[string]any{"result": res.Result, "branch": res.Branch, "conditions": outcomes}, nil
}

// configured returns an error if there is no executor for the node's kind.
// This is a fault in the run's setup, so it never follows an error branch.
func (r *run) configured(n node.Node) error {
	if _, ok := r.execs.For(n.Kind()); !ok {
		return fmt.Errorf("no executor is configured for %s steps", n.Kind())
	}
	return nil
}

// call runs an executor under the watchdog, retrying failures
// with exponential backoff.
func (r *run) call(ctx context.Context, n node.Node, data node.Data) (executor.Output, error) {
	if err := r.configured(n); err != nil {
		return nil, err
	}
	ex, _ := r.execs.For(n.Kind())

	attempt := 0
	op := func() (executor.Output, error) {
		attempt++
		out, err := r.watch(ctx, ex, data)
		if err == nil {
			return out, nil
		}
		var xerr *executor.Error
		if (errors.As(err, &xerr) && xerr.Permanent) || ctx.Err() != nil {
			return out, backoff.Permanent(err)
		}
		if attempt <= r.opts.MaxRetries {
			clio.Debugf("%s attempt %d failed, retrying: %s", n.ID, attempt, err)
		}
		return out, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryBaseDelay
	b.MaxInterval = r.opts.RetryMaxDelay

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.MaxRetries+1)),
	)
}

type outcome struct {
	out executor.Output
	err error
}

// watch bounds an executor call with the node timeout, so that
// an executor which ignores its context can't block the run.
func (r *run) watch(ctx context.Context, ex executor.Executor, data node.Data) (executor.Output, error) {
	timeout := r.opts.NodeTimeout
	if d, ok := data.(node.DelayData); ok {
		if wait, err := delay.Duration(d); err == nil {
			timeout += wait
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		out, err := ex.Execute(ctx, data)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case o := <-ch:
		return o.out, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s", timeout)
		}
		return nil, ctx.Err()
	}
}
