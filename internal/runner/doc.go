// Package runner executes a finalized task graph.
//
// It is the executor side of the scheduling contract: it drains ready tasks
// from the graph, runs each one on a bounded worker pool, retries failures up
// to the task's MaxRetry budget and reports every success back with
// MarkDone, which may unlock more tasks for the next drain.
//
// The graph itself is not safe for concurrent use. Every call into it goes
// through Runner.mu, so the coordinator loop and the workers never touch it
// at the same time.
//
// # Failure Policy
//
// By default a failed task stops the run: the context of in-flight commands
// is cancelled and nothing new is dispatched. With KeepGoing, independent
// branches continue and only the dependents of the failed task stay blocked.
// Either way the Result lists what succeeded, what failed and what never ran.
package runner
