package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/runstate"
	"github.com/specialistvlad/taskgraph/internal/taskgraph"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTasksFailed is returned when at least one task exhausted its retries.
	ErrTasksFailed = errors.New("tasks failed")
	// ErrStuck is returned when tasks remain but none can become ready.
	ErrStuck = errors.New("no runnable tasks left")
)

// Config holds the execution options of a Runner.
type Config struct {
	// Workers bounds the number of tasks running at once.
	Workers int
	// KeepGoing continues independent branches after a task fails.
	KeepGoing bool
	// RetryDelay is the pause between a failed attempt and the next one.
	RetryDelay time.Duration
}

// Result summarizes a finished run. Name lists are sorted.
type Result struct {
	RunID     string
	Succeeded []string
	Failed    []string
	// Blocked lists tasks that never completed without failing: their
	// dependencies failed, the run stopped early, or nothing could ever
	// unlock them.
	Blocked []string
}

// Runner drives a finalized graph to completion.
type Runner struct {
	// mu serializes every call into graph.
	mu    sync.Mutex
	graph *taskgraph.Graph

	cmd     CommandRunner
	state   *runstate.Store
	metrics *Metrics
	cfg     Config

	inFlight atomic.Int32
	// wake is signalled by workers after reporting an outcome.
	wake chan struct{}
}

// New creates a runner for g, which must have been successfully initialized.
// A nil metrics value registers a private set.
func New(g *taskgraph.Graph, cmd CommandRunner, cfg Config, metrics *Metrics) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Runner{
		graph:   g,
		cmd:     cmd,
		state:   runstate.New(),
		metrics: metrics,
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
	}
}

// State exposes the per-task execution state of the run.
func (r *Runner) State() *runstate.Store {
	return r.state
}

// Run executes the graph until every task is done, the run fails, or no task
// can make progress. The returned Result is never nil.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	parent, logger := ctxlog.With(ctx, "run_id", runID)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	r.mu.Lock()
	tasks := r.graph.Tasks()
	r.mu.Unlock()
	for _, t := range tasks {
		r.state.Track(t.Name)
	}
	logger.Info("Run started.", "tasks", len(tasks), "workers", r.cfg.Workers, "keep_going", r.cfg.KeepGoing)

	var failed atomic.Bool
	grp := &errgroup.Group{}
	grp.SetLimit(r.cfg.Workers)

	var loopErr error
	for {
		// Sampled before draining: a worker reports to the graph before it
		// leaves the in-flight count, so an idle pool plus an empty drain
		// means nothing can unlock further tasks.
		idle := r.inFlight.Load() == 0

		r.mu.Lock()
		todo, err := r.graph.TodoTasks()
		finished := r.graph.Finished()
		r.mu.Unlock()
		if err != nil {
			loopErr = fmt.Errorf("drain ready tasks: %w", err)
			break
		}
		if finished {
			break
		}
		if len(todo) == 0 {
			if idle {
				break
			}
			<-r.wake
			continue
		}

		stopping := func() bool {
			return ctx.Err() != nil || (failed.Load() && !r.cfg.KeepGoing)
		}
		for _, task := range todo {
			if stopping() {
				r.skip(ctx, task.Name)
				continue
			}
			r.inFlight.Add(1)
			// Go blocks while the pool is full, so the run may have started
			// stopping by the time the worker gets a slot.
			grp.Go(func() error {
				defer r.signal()
				defer r.inFlight.Add(-1)
				if stopping() {
					r.skip(ctx, task.Name)
					return nil
				}
				r.metrics.dispatched.Inc()
				if err := r.execute(ctx, task); err != nil {
					failed.Store(true)
					if !r.cfg.KeepGoing {
						cancel()
					}
				}
				return nil
			})
		}
	}
	_ = grp.Wait()

	result := r.result(runID)
	logger.Info("Run finished.",
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"blocked", len(result.Blocked))

	switch {
	case loopErr != nil:
		return result, loopErr
	case len(result.Failed) > 0:
		return result, fmt.Errorf("%w: %s", ErrTasksFailed, strings.Join(result.Failed, ", "))
	case parent.Err() != nil:
		return result, fmt.Errorf("run interrupted: %w", parent.Err())
	case len(result.Blocked) > 0:
		return result, fmt.Errorf("%w: %s", ErrStuck, strings.Join(result.Blocked, ", "))
	}
	return result, nil
}

// execute runs one task with retries and reports success to the graph. A
// returned error means the task failed on its own; an attempt cut short by
// cancellation is recorded as skipped and returns nil.
func (r *Runner) execute(ctx context.Context, task taskgraph.Task) error {
	ctx, logger := ctxlog.With(ctx, "task", task.Name)
	r.state.SetStatus(task.Name, runstate.Running)
	start := time.Now()

	var err error
	for attempt := 0; attempt <= task.MaxRetry; attempt++ {
		if attempt > 0 {
			r.metrics.retried.Inc()
			logger.Warn("Retrying task.", "attempt", attempt+1, "max_attempts", task.MaxRetry+1, "error", err)
			if !sleep(ctx, r.cfg.RetryDelay) {
				break
			}
		}
		r.state.BeginAttempt(task.Name)
		logger.Debug("Running task.", "attempt", attempt+1)
		if err = r.cmd.Run(ctx, task); err == nil || ctx.Err() != nil {
			break
		}
	}
	elapsed := time.Since(start)
	r.metrics.duration.Observe(elapsed.Seconds())

	if err == nil {
		r.mu.Lock()
		err = r.graph.MarkDone(task.Name)
		r.mu.Unlock()
		if err != nil {
			// The graph rejected the completion; treat it as a scheduler bug
			// surfaced through this task.
			err = fmt.Errorf("report completion: %w", err)
		}
	}

	switch {
	case err == nil:
		r.state.Finish(task.Name, nil, elapsed)
		r.metrics.succeeded.Inc()
		logger.Info("Task succeeded.", "duration", elapsed)
		return nil
	case ctx.Err() != nil:
		r.state.SetStatus(task.Name, runstate.Skipped)
		logger.Warn("Task interrupted.", "error", err)
		return nil
	default:
		r.state.Finish(task.Name, err, elapsed)
		r.metrics.failed.Inc()
		logger.Error("Task failed.", "attempts", r.state.Get(task.Name).Attempts, "error", err)
		return err
	}
}

// skip records a drained task that will not be started.
func (r *Runner) skip(ctx context.Context, name string) {
	r.state.SetStatus(name, runstate.Skipped)
	ctxlog.FromContext(ctx).Debug("Skipping ready task, run is stopping.", "task", name)
}

// signal wakes the coordinator without blocking. One pending token is
// enough: the coordinator re-drains the graph on every wake.
func (r *Runner) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) result(runID string) *Result {
	res := &Result{
		RunID:     runID,
		Succeeded: r.state.Names(runstate.Succeeded),
		Failed:    r.state.Names(runstate.Failed),
	}
	res.Blocked = append(r.state.Names(runstate.Pending), r.state.Names(runstate.Skipped)...)
	slices.Sort(res.Blocked)
	return res
}

// sleep waits for d or until ctx is done, reporting whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
