// Package taskgraph is the in-memory scheduling core of the task runner. It
// tracks a set of named tasks and their dependencies, and answers at any
// moment which tasks are ready to run.
//
// # Lifecycle
//
//  1. **Build:** AddTask registers tasks. Dependencies are declared by name
//     and may reference tasks that are added later.
//  2. **Finalize:** Init resolves every dependency name, mirrors each
//     depends-on edge into a depended-by edge, rejects cycles and seeds the
//     ready set with every task that has no dependencies.
//  3. **Schedule:** TodoTasks drains the ready set. The caller hands the
//     drained tasks to an executor and reports each success with MarkDone,
//     which unlocks dependents whose last dependency just completed.
//
// The engine never executes anything and performs no I/O apart from
// PrintGraph, which writes to a caller-provided sink.
//
// # Storage
//
// Tasks live in a single arena slice and reference each other by index, so
// the whole graph is owned by one value and released as a unit. A name to
// index table serves the string-keyed public API.
//
// # Thread-Safety
//
// A Graph is NOT safe for concurrent use. Callers that share it between
// goroutines must serialize every call, typically behind one sync.Mutex (see
// internal/runner).
package taskgraph
