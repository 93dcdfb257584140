package taskgraph

// MarkDone records the successful completion of a task and propagates it to
// its dependents. A dependent whose last unmet dependency was this task joins
// the ready set and is returned by the next TodoTasks call.
//
// It fails without side effects when the task is unknown, still has unmet
// dependencies, or is already done. A ready task that has not been drained
// yet may be completed; it then leaves the ready set.
func (g *Graph) MarkDone(name string) error {
	if g.phase != phaseScheduling {
		return newError(ErrNotInitialized, name, "")
	}
	i, ok := g.lookup(name)
	if !ok {
		return newError(ErrUnknownTask, name, "")
	}
	n := &g.nodes[i]
	if n.outCounter != 0 {
		return newError(ErrTaskStillBlocked, name, "%d of %d dependencies unmet", n.outCounter, len(n.out))
	}
	if n.done {
		return newError(ErrAlreadyDone, name, "")
	}

	n.done = true
	delete(g.ready, i)

	var unlocked []string
	for k := range n.in {
		in := &n.in[k]
		if in.done {
			continue
		}
		in.done = true
		n.inCounter--

		dependent := &g.nodes[in.peer]
		dependent.out[in.mirror].done = true
		dependent.outCounter--
		if dependent.outCounter == 0 {
			g.ready[in.peer] = struct{}{}
			unlocked = append(unlocked, dependent.task.Name)
		}
	}

	g.logger.Debug("Task marked done.", "task", name, "dependents", len(n.in), "unlocked", unlocked)
	return nil
}
