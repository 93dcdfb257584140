package taskgraph

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
)

// reservedChars delimit fields in the PrintGraph dump.
const reservedChars = ",[]"

// New creates an empty graph in the build phase.
func New(opts ...Option) *Graph {
	g := &Graph{
		index:  make(map[string]int),
		ready:  make(map[int]struct{}),
		logger: ctxlog.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddTask registers a task with its dependencies, command descriptor and
// retry budget.
//
// Dependencies may name tasks that are not registered yet; they are resolved
// by Init. Repeated dependency names collapse into one edge. Names must not
// contain whitespace or any of ",[]". A failed call leaves the graph
// unchanged.
func (g *Graph) AddTask(name string, deps []string, command string, maxRetry int) error {
	if g.phase != phaseBuilding {
		return newError(ErrFinalized, name, "")
	}
	if err := checkName(name); err != nil {
		return newError(ErrInvalidTask, name, "%v", err)
	}
	if maxRetry < 0 {
		return newError(ErrInvalidTask, name, "max retry must be non-negative, got %d", maxRetry)
	}
	if _, exists := g.index[name]; exists {
		return newError(ErrDuplicateTask, name, "")
	}

	declared := make([]string, 0, len(deps))
	seen := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		if err := checkName(dep); err != nil {
			return newError(ErrInvalidTask, name, "dependency %q: %v", dep, err)
		}
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		declared = append(declared, dep)
	}

	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, taskNode{
		task:     Task{Name: name, Command: command, MaxRetry: maxRetry},
		declared: declared,
	})
	return nil
}

func checkName(name string) error {
	switch {
	case name == "":
		return errors.New("name must not be empty")
	case strings.ContainsFunc(name, unicode.IsSpace):
		return errors.New("name must not contain whitespace")
	case strings.ContainsAny(name, reservedChars):
		return fmt.Errorf("name must not contain any of %q", reservedChars)
	}
	return nil
}

// lookup returns the arena index of a task.
func (g *Graph) lookup(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	return len(g.nodes)
}
