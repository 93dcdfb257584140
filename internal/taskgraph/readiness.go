package taskgraph

import (
	"slices"
	"strings"
)

// TodoTasks drains the ready set: it returns every task that became ready
// since the previous call, sorted by name, and empties the set. Each task is
// returned by exactly one call over the lifetime of the graph.
//
// An empty result is not an error; dispatched tasks may still be running.
func (g *Graph) TodoTasks() ([]Task, error) {
	if g.phase != phaseScheduling {
		return nil, newError(ErrNotInitialized, "", "")
	}

	todo := make([]Task, 0, len(g.ready))
	for i := range g.ready {
		todo = append(todo, g.nodes[i].task)
	}
	clear(g.ready)

	slices.SortFunc(todo, func(a, b Task) int {
		return strings.Compare(a.Name, b.Name)
	})
	return todo, nil
}
