package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/taskgraph/internal/taskgraph"
)

// SleeperRunner is a runner.CommandRunner for concurrency tests. Every task
// sleeps for a fixed duration and its execution window is recorded.
type SleeperRunner struct {
	mu            sync.Mutex
	records       map[string]*ExecutionRecord
	failures      map[string]int
	sleepDuration time.Duration
	active        int
	maxActive     int
}

// NewSleeperRunner creates a SleeperRunner that sleeps for d per task.
func NewSleeperRunner(d time.Duration) *SleeperRunner {
	return &SleeperRunner{
		records:       make(map[string]*ExecutionRecord),
		failures:      make(map[string]int),
		sleepDuration: d,
	}
}

// FailTimes makes the next n attempts of the named task fail.
func (s *SleeperRunner) FailTimes(name string, n int) *SleeperRunner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = n
	return s
}

// Run sleeps, records the window and fails if a failure is still scheduled.
func (s *SleeperRunner) Run(ctx context.Context, task taskgraph.Task) error {
	s.mu.Lock()
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	s.mu.Unlock()

	start := time.Now()
	timer := time.NewTimer(s.sleepDuration)
	defer timer.Stop()
	var err error
	select {
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}
	end := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.records[task.Name] = &ExecutionRecord{Start: start, End: end}
	if err != nil {
		return err
	}
	if s.failures[task.Name] > 0 {
		s.failures[task.Name]--
		return fmt.Errorf("task %s: scheduled failure", task.Name)
	}
	return nil
}

// Record returns the last execution window of the named task.
func (s *SleeperRunner) Record(name string) (ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// MaxConcurrent reports the highest number of tasks observed running at once.
func (s *SleeperRunner) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}
