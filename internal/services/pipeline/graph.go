package pipeline

import (
	"context"
	"fmt"
)

// NodeFunc executes one DAG node against the shared state and returns its
// partial state updates.
type NodeFunc func(ctx context.Context, st *State) (map[string]interface{}, error)

type graphNode struct {
	name string
	deps []string
	run  NodeFunc
}

// Hooks observe node lifecycle transitions. Either hook may be nil.
type Hooks struct {
	OnNodeStart func(name string)
	OnNodeEnd   func(name string, updates map[string]interface{}, err error)
}

// Graph is a static DAG of named nodes executed with a ready-set
// scheduler: every node whose dependencies have completed runs
// concurrently. A node's error never stops the graph; the node still
// counts as completed so its dependents run with whatever state exists.
type Graph struct {
	nodes  []*graphNode
	byName map[string]*graphNode
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]*graphNode)}
}

// Add registers a node and its dependencies. Dependencies must be added
// before their dependents.
func (g *Graph) Add(name string, deps []string, run NodeFunc) error {
	if _, ok := g.byName[name]; ok {
		return fmt.Errorf("duplicate node %q", name)
	}
	for _, dep := range deps {
		if _, ok := g.byName[dep]; !ok {
			return fmt.Errorf("node %q depends on unknown node %q", name, dep)
		}
	}
	node := &graphNode{name: name, deps: deps, run: run}
	g.nodes = append(g.nodes, node)
	g.byName[name] = node
	return nil
}

type nodeOutcome struct {
	name    string
	updates map[string]interface{}
	err     error
}

// Run executes the graph to completion, merging each node's updates into
// the shared state as it finishes. The per-node errors are reported
// through hooks; Run itself only fails on a malformed graph.
func (g *Graph) Run(ctx context.Context, st *State, hooks Hooks) error {
	remaining := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		remaining[node.name] = len(node.deps)
		for _, dep := range node.deps {
			dependents[dep] = append(dependents[dep], node.name)
		}
	}

	results := make(chan nodeOutcome, len(g.nodes))
	launch := func(node *graphNode) {
		if hooks.OnNodeStart != nil {
			hooks.OnNodeStart(node.name)
		}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					results <- nodeOutcome{name: node.name, err: fmt.Errorf("node panicked: %v", r)}
				}
			}()
			updates, err := node.run(ctx, st)
			results <- nodeOutcome{name: node.name, updates: updates, err: err}
		}()
	}

	running := 0
	for _, node := range g.nodes {
		if remaining[node.name] == 0 {
			launch(node)
			running++
		}
	}
	if running == 0 && len(g.nodes) > 0 {
		return fmt.Errorf("graph has no runnable root node")
	}

	completed := 0
	for completed < len(g.nodes) {
		outcome := <-results
		completed++
		if outcome.err == nil {
			st.Merge(outcome.updates)
		}
		if hooks.OnNodeEnd != nil {
			hooks.OnNodeEnd(outcome.name, outcome.updates, outcome.err)
		}
		for _, next := range dependents[outcome.name] {
			remaining[next]--
			if remaining[next] == 0 {
				launch(g.byName[next])
			}
		}
	}
	return nil
}
