package taskgraph

import "log/slog"

// Task is the read-only view of a registered task. It is returned by value,
// so changing it never affects the graph.
type Task struct {
	// Name is the unique task identifier.
	Name string
	// Command is an opaque descriptor interpreted by the executor.
	Command string
	// MaxRetry is the number of extra attempts the executor may make after a
	// failure. The engine stores it but never enforces it.
	MaxRetry int
}

// edge is one end of a dependency relation. The out-edge of a dependent and
// the in-edge of its dependency are mirrors of each other and are flagged
// together.
type edge struct {
	// peer is the arena index of the task at the other end.
	peer int
	// mirror is the position of the mirrored edge in the peer's edge list.
	mirror int
	// done reports whether the dependency side of the relation completed.
	done bool
}

// taskNode is the runtime record of a task.
type taskNode struct {
	task Task
	// declared holds dependency names in declaration order, deduplicated.
	declared []string

	// out lists the tasks this task depends on.
	out []edge
	// in lists the tasks depending on this task.
	in []edge

	// outCounter counts out-edges not yet flagged, i.e. unmet dependencies.
	outCounter int
	// inCounter counts in-edges not yet flagged, i.e. dependents that have not
	// been notified of this task's completion.
	inCounter int
	done      bool
}

// phase is the position of a Graph in its build/finalize lifecycle.
type phase int

const (
	// phaseBuilding accepts AddTask calls.
	phaseBuilding phase = iota
	// phaseScheduling follows a successful Init.
	phaseScheduling
	// phaseInvalid follows a failed Init. Only inspection remains available.
	phaseInvalid
)

// Graph is the dependency graph engine. The zero value is not usable; create
// one with New.
type Graph struct {
	nodes []taskNode
	index map[string]int
	// ready holds arena indices of tasks that are unblocked, not done and not
	// yet drained.
	ready map[int]struct{}
	phase phase

	logger *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger makes the graph emit debug records about finalization and
// completion propagation.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Stats summarizes the scheduling state of a graph. It is only meaningful
// after a successful Init.
type Stats struct {
	Total int
	Done  int
	// Ready counts unblocked tasks that have not been drained yet.
	Ready int
	// Blocked counts tasks with at least one unmet dependency.
	Blocked int
	// Dispatched counts drained tasks not yet marked done.
	Dispatched int
}
