package runctx

import (
	"fmt"
	"sync"
)

// Status of a node within a run.
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
	Success Status = "success"
	Error   Status = "error"
	Skipped Status = "skipped"
)

// Terminal returns true if the status can't change again in this run.
func (s Status) Terminal() bool {
	return s == Success || s == Error || s == Skipped
}

var transitions = map[Status][]Status{
	Idle:    {Running, Skipped},
	Running: {Success, Error},
}

// Statuses tracks the status of every node in a run.
// Nodes start Idle; transitions are monotonic:
//
//	idle -> running -> success | error
//	idle -> skipped
type Statuses struct {
	mu sync.RWMutex
	m  map[string]Status
}

func NewStatuses() *Statuses {
	return &Statuses{m: map[string]Status{}}
}

// Get returns the status of the node, Idle if it hasn't been touched.
func (s *Statuses) Get(nodeID string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.m[nodeID]; ok {
		return st
	}
	return Idle
}

// Transition moves a node to a new status. Illegal transitions
// (e.g. skipped -> running) are rejected, which makes
// marking a node skipped final.
func (s *Statuses) Transition(nodeID string, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.m[nodeID]
	if !ok {
		from = Idle
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			s.m[nodeID] = to
			return nil
		}
	}
	return fmt.Errorf("node %s cannot transition from %s to %s", nodeID, from, to)
}

// Reset returns every node to Idle.
func (s *Statuses) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = map[string]Status{}
}

// Map returns a copy of the statuses which have left Idle.
func (s *Statuses) Map() map[string]Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Status, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
