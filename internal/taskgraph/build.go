package taskgraph

import (
	"slices"
	"strings"
)

// Init freezes the topology, validates it and seeds the ready set.
//
// It must be called exactly once, after every AddTask call. On failure the
// graph is left in an invalid state in which only the inspection methods
// work; TodoTasks and MarkDone report ErrNotInitialized.
func (g *Graph) Init() error {
	if g.phase != phaseBuilding {
		return newError(ErrAlreadyInitialized, "", "")
	}
	g.phase = phaseInvalid

	if err := g.resolveEdges(); err != nil {
		g.logger.Debug("Graph finalization failed.", "error", err)
		return err
	}
	if err := g.validateAcyclic(); err != nil {
		g.logger.Debug("Graph finalization failed.", "error", err)
		return err
	}

	for i := range g.nodes {
		n := &g.nodes[i]
		n.outCounter = len(n.out)
		n.inCounter = len(n.in)
		if n.outCounter == 0 {
			g.ready[i] = struct{}{}
		}
	}
	g.phase = phaseScheduling

	g.logger.Debug("Graph finalized.", "tasks", len(g.nodes), "ready", len(g.ready))
	return nil
}

// resolveEdges turns declared dependency names into index edges and mirrors
// each of them on the dependency side. Nothing is wired unless every name
// resolves.
func (g *Graph) resolveEdges() error {
	targets := make([][]int, len(g.nodes))
	for i := range g.nodes {
		n := &g.nodes[i]
		targets[i] = make([]int, 0, len(n.declared))
		for _, dep := range n.declared {
			j, ok := g.lookup(dep)
			if !ok {
				return newError(ErrUnresolvedDependency, n.task.Name, "depends on %q which was never added", dep)
			}
			targets[i] = append(targets[i], j)
		}
	}

	for i, deps := range targets {
		g.nodes[i].out = make([]edge, 0, len(deps))
		for _, j := range deps {
			dependency := &g.nodes[j]
			g.nodes[i].out = append(g.nodes[i].out, edge{peer: j, mirror: len(dependency.in)})
			dependency.in = append(dependency.in, edge{peer: i, mirror: len(g.nodes[i].out) - 1})
		}
	}
	return nil
}

// validateAcyclic eliminates tasks Kahn-style, starting from tasks with no
// dependencies. Anything left over sits on or behind a cycle.
func (g *Graph) validateAcyclic() error {
	order := g.topoOrder()
	if len(order) == len(g.nodes) {
		return nil
	}
	return cycleError(g.findCycle())
}

// topoOrder returns arena indices in a dependency-respecting order. Tasks on
// or behind a cycle are missing from the result.
func (g *Graph) topoOrder() []int {
	remaining := make([]int, len(g.nodes))
	queue := make([]int, 0, len(g.nodes))
	for i := range g.nodes {
		remaining[i] = len(g.nodes[i].out)
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}

	for head := 0; head < len(queue); head++ {
		for _, e := range g.nodes[queue[head]].in {
			remaining[e.peer]--
			if remaining[e.peer] == 0 {
				queue = append(queue, e.peer)
			}
		}
	}
	return queue
}

// findCycle walks dependency edges depth-first in insertion order and returns
// the first cycle it meets as a closed path of names, e.g. [a b a] for "a
// depends on b, b depends on a".
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	var stack, cycle []int

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)
		for _, e := range g.nodes[i].out {
			switch color[e.peer] {
			case gray:
				start := slices.Index(stack, e.peer)
				cycle = append(slices.Clone(stack[start:]), e.peer)
				return true
			case white:
				if visit(e.peer) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && visit(i) {
			break
		}
	}

	path := make([]string, len(cycle))
	for k, i := range cycle {
		path[k] = g.nodes[i].task.Name
	}
	return path
}

// Levels groups task names into waves: every task in a wave depends only on
// tasks in earlier waves. Names within a wave are sorted. It requires a
// successful Init and ignores completion state.
func (g *Graph) Levels() ([][]string, error) {
	if g.phase != phaseScheduling {
		return nil, newError(ErrNotInitialized, "", "")
	}

	remaining := make([]int, len(g.nodes))
	var wave []int
	for i := range g.nodes {
		remaining[i] = len(g.nodes[i].out)
		if remaining[i] == 0 {
			wave = append(wave, i)
		}
	}

	var levels [][]string
	for len(wave) > 0 {
		names := make([]string, 0, len(wave))
		var next []int
		for _, i := range wave {
			names = append(names, g.nodes[i].task.Name)
			for _, e := range g.nodes[i].in {
				remaining[e.peer]--
				if remaining[e.peer] == 0 {
					next = append(next, e.peer)
				}
			}
		}
		slices.SortFunc(names, strings.Compare)
		levels = append(levels, names)
		wave = next
	}
	return levels, nil
}
