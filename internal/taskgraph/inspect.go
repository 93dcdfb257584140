package taskgraph

import (
	"fmt"
	"io"
	"strings"
)

// TaskInfo looks up a task by name. Absence is reported with false.
func (g *Graph) TaskInfo(name string) (Task, bool) {
	i, ok := g.lookup(name)
	if !ok {
		return Task{}, false
	}
	return g.nodes[i].task, true
}

// Tasks returns every registered task in insertion order.
func (g *Graph) Tasks() []Task {
	tasks := make([]Task, len(g.nodes))
	for i := range g.nodes {
		tasks[i] = g.nodes[i].task
	}
	return tasks
}

// Dependencies returns the names a task depends on, in declaration order.
func (g *Graph) Dependencies(name string) ([]string, error) {
	i, ok := g.lookup(name)
	if !ok {
		return nil, newError(ErrUnknownTask, name, "")
	}
	return append([]string(nil), g.nodes[i].declared...), nil
}

// Dependents returns the names of tasks depending on the given task, in
// insertion order.
func (g *Graph) Dependents(name string) ([]string, error) {
	if _, ok := g.lookup(name); !ok {
		return nil, newError(ErrUnknownTask, name, "")
	}
	var dependents []string
	for i := range g.nodes {
		for _, dep := range g.nodes[i].declared {
			if dep == name {
				dependents = append(dependents, g.nodes[i].task.Name)
				break
			}
		}
	}
	return dependents, nil
}

// IsDone reports whether the named task has been marked done.
func (g *Graph) IsDone(name string) bool {
	i, ok := g.lookup(name)
	return ok && g.nodes[i].done
}

// Finished reports whether every task has been marked done.
func (g *Graph) Finished() bool {
	for i := range g.nodes {
		if !g.nodes[i].done {
			return false
		}
	}
	return true
}

// Unfinished returns the names of tasks not yet done, in insertion order.
func (g *Graph) Unfinished() []string {
	var names []string
	for i := range g.nodes {
		if !g.nodes[i].done {
			names = append(names, g.nodes[i].task.Name)
		}
	}
	return names
}

// Stats counts tasks by scheduling state. Before a successful Init only
// Total is set.
func (g *Graph) Stats() Stats {
	if g.phase != phaseScheduling {
		return Stats{Total: len(g.nodes)}
	}
	s := Stats{Total: len(g.nodes), Ready: len(g.ready)}
	for i := range g.nodes {
		n := &g.nodes[i]
		switch {
		case n.done:
			s.Done++
		case n.outCounter > 0:
			s.Blocked++
		}
	}
	s.Dispatched = s.Total - s.Done - s.Blocked - s.Ready
	return s
}

// PrintGraph writes one line per task, in insertion order:
//
//	<name> deps=[<dep>,<dep>] done=<bool>
//
// It works in every phase, including after a failed Init.
func (g *Graph) PrintGraph(w io.Writer) error {
	for i := range g.nodes {
		n := &g.nodes[i]
		_, err := fmt.Fprintf(w, "%s deps=[%s] done=%t\n", n.task.Name, strings.Join(n.declared, ","), n.done)
		if err != nil {
			return fmt.Errorf("print task %q: %w", n.task.Name, err)
		}
	}
	return nil
}
