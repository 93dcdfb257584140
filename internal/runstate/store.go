// Package runstate keeps the mutable execution state of tasks during a run:
// status, attempt count, last error and duration.
//
// The dependency graph only knows whether a task is done. Everything an
// executor learns while running a task (that it started, how often it was
// retried, why it failed) lives here instead, keyed by task name.
//
// # Concurrency Model
//
// Workers update their own task's record while the coordinator reads others,
// so the store uses sync.Map: the key space is fixed once the run starts and
// each key is written by one worker at a time.
package runstate

import (
	"sort"
	"sync"
	"time"
)

// Status is the executor-side state of a task.
type Status int32

const (
	// Pending means the task has not been started.
	Pending Status = iota
	// Running means a worker is executing the task.
	Running
	// Succeeded means the task completed and was reported to the graph.
	Succeeded
	// Failed means the task exhausted its retry budget or was cancelled.
	Failed
	// Skipped means the task was drained but not started because the run
	// was stopping.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Record is a snapshot of one task's execution state.
type Record struct {
	Status   Status
	Attempts int
	Err      error
	Duration time.Duration
}

// Store is an in-memory, concurrency-safe task state store.
type Store struct {
	records sync.Map // Key: task name, Value: *entry
}

type entry struct {
	mu sync.Mutex
	Record
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) entry(name string) *entry {
	v, _ := s.records.LoadOrStore(name, &entry{})
	return v.(*entry)
}

// Track registers tasks in Pending state so they show up in snapshots even
// if they never run.
func (s *Store) Track(names ...string) {
	for _, name := range names {
		s.entry(name)
	}
}

// SetStatus updates the status of a task.
func (s *Store) SetStatus(name string, status Status) {
	e := s.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Status = status
}

// BeginAttempt increments and returns the attempt counter of a task.
func (s *Store) BeginAttempt(name string) int {
	e := s.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Attempts++
	return e.Attempts
}

// Finish records the terminal outcome of a task. A nil error means success.
func (s *Store) Finish(name string, err error, d time.Duration) {
	e := s.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Err = err
	e.Duration = d
	if err != nil {
		e.Status = Failed
	} else {
		e.Status = Succeeded
	}
}

// Get returns the record of a task. Unknown tasks report Pending.
func (s *Store) Get(name string) Record {
	v, ok := s.records.Load(name)
	if !ok {
		return Record{}
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Record
}

// Names returns the sorted names of tasks in the given status.
func (s *Store) Names(status Status) []string {
	var names []string
	s.records.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		match := e.Status == status
		e.mu.Unlock()
		if match {
			names = append(names, k.(string))
		}
		return true
	})
	sort.Strings(names)
	return names
}
