package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/taskgraph/internal/runstate"
	"github.com/specialistvlad/taskgraph/internal/taskgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskDef struct {
	name     string
	deps     []string
	maxRetry int
}

func buildGraph(t *testing.T, defs ...taskDef) *taskgraph.Graph {
	t.Helper()
	g := taskgraph.New()
	for _, s := range defs {
		require.NoError(t, g.AddTask(s.name, s.deps, "run "+s.name, s.maxRetry))
	}
	require.NoError(t, g.Init())
	return g
}

// recorder is a CommandRunner that logs start/finish events and fails tasks
// according to a per-task plan.
type recorder struct {
	mu       sync.Mutex
	events   []string
	attempts map[string]int
	// failures maps a task to how many leading attempts fail.
	failures map[string]int
}

func newRecorder(failures map[string]int) *recorder {
	return &recorder{attempts: make(map[string]int), failures: failures}
}

func (r *recorder) Run(ctx context.Context, task taskgraph.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[task.Name]++
	if r.attempts[task.Name] <= r.failures[task.Name] {
		return errors.New("boom")
	}
	r.events = append(r.events, task.Name)
	return nil
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func position(events []string, name string) int {
	for i, e := range events {
		if e == name {
			return i
		}
	}
	return -1
}

func TestRun_DiamondSucceeds(t *testing.T) {
	g := buildGraph(t,
		taskDef{name: "fetch"},
		taskDef{name: "lint", deps: []string{"fetch"}},
		taskDef{name: "build", deps: []string{"fetch"}},
		taskDef{name: "package", deps: []string{"lint", "build"}},
	)
	rec := newRecorder(nil)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	r := New(g, rec, Config{Workers: 4}, metrics)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"build", "fetch", "lint", "package"}, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Blocked)
	assert.True(t, g.Finished())

	events := rec.order()
	require.Len(t, events, 4)
	assert.Less(t, position(events, "fetch"), position(events, "lint"))
	assert.Less(t, position(events, "fetch"), position(events, "build"))
	assert.Less(t, position(events, "lint"), position(events, "package"))
	assert.Less(t, position(events, "build"), position(events, "package"))

	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.dispatched))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.succeeded))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.failed))
}

func TestRun_RetriesWithinBudget(t *testing.T) {
	g := buildGraph(t, taskDef{name: "flaky", maxRetry: 2}, taskDef{name: "after", deps: []string{"flaky"}})
	rec := newRecorder(map[string]int{"flaky": 2})
	metrics := NewMetrics(nil)

	r := New(g, rec, Config{Workers: 1}, metrics)
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"after", "flaky"}, res.Succeeded)
	assert.Equal(t, 3, r.State().Get("flaky").Attempts)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.retried))
}

func TestRun_FailFast(t *testing.T) {
	g := buildGraph(t,
		taskDef{name: "a", maxRetry: 1},
		taskDef{name: "b", deps: []string{"a"}},
		taskDef{name: "c"},
	)
	rec := newRecorder(map[string]int{"a": 5})

	r := New(g, rec, Config{Workers: 1}, nil)
	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrTasksFailed)
	assert.ErrorContains(t, err, "a")

	assert.Equal(t, []string{"a"}, res.Failed)
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, []string{"b", "c"}, res.Blocked)

	rec.mu.Lock()
	assert.Equal(t, 2, rec.attempts["a"])
	rec.mu.Unlock()

	st := r.State().Get("a")
	assert.Equal(t, runstate.Failed, st.Status)
	assert.ErrorContains(t, st.Err, "boom")
}

func TestRun_FailFastSkipsTasksWaitingForAWorker(t *testing.T) {
	g := buildGraph(t,
		taskDef{name: "a"},
		taskDef{name: "b"},
		taskDef{name: "c", deps: []string{"b"}},
	)
	var (
		mu  sync.Mutex
		ran []string
	)
	// Ignores ctx, like a command with nothing to do.
	cmd := CommandFunc(func(_ context.Context, task taskgraph.Task) error {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, task.Name)
		if task.Name == "a" {
			return errors.New("boom")
		}
		return nil
	})
	metrics := NewMetrics(prometheus.NewRegistry())

	r := New(g, cmd, Config{Workers: 1}, metrics)
	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrTasksFailed)

	assert.Equal(t, []string{"a"}, res.Failed)
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, []string{"b", "c"}, res.Blocked)
	assert.Equal(t, []string{"a"}, ran)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatched))
	assert.Equal(t, runstate.Skipped, r.State().Get("b").Status)
	assert.False(t, g.IsDone("b"))
}

func TestRun_KeepGoing(t *testing.T) {
	g := buildGraph(t,
		taskDef{name: "a"},
		taskDef{name: "b", deps: []string{"a"}},
		taskDef{name: "c"},
		taskDef{name: "d", deps: []string{"c"}},
	)
	rec := newRecorder(map[string]int{"a": 1})

	r := New(g, rec, Config{Workers: 2, KeepGoing: true}, nil)
	res, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrTasksFailed)

	assert.Equal(t, []string{"c", "d"}, res.Succeeded)
	assert.Equal(t, []string{"a"}, res.Failed)
	assert.Equal(t, []string{"b"}, res.Blocked)
}

func TestRun_CancelledContext(t *testing.T) {
	g := buildGraph(t, taskDef{name: "a"}, taskDef{name: "b", deps: []string{"a"}})
	rec := newRecorder(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(g, rec, Config{Workers: 1}, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.order())
	assert.Equal(t, []string{"a", "b"}, res.Blocked)
}

func TestRun_StuckWhenTasksDispatchedElsewhere(t *testing.T) {
	g := buildGraph(t, taskDef{name: "a"}, taskDef{name: "b", deps: []string{"a"}})

	// Another executor drained "a" and never reported back.
	_, err := g.TodoTasks()
	require.NoError(t, err)

	res, err := New(g, newRecorder(nil), Config{Workers: 1}, nil).Run(context.Background())
	require.ErrorIs(t, err, ErrStuck)
	assert.Equal(t, []string{"a", "b"}, res.Blocked)
}

func TestRun_UninitializedGraph(t *testing.T) {
	g := taskgraph.New()
	require.NoError(t, g.AddTask("a", nil, "", 0))

	_, err := New(g, newRecorder(nil), Config{}, nil).Run(context.Background())
	require.ErrorIs(t, err, taskgraph.ErrNotInitialized)
}

func TestRun_ManyIndependentTasks(t *testing.T) {
	g := taskgraph.New()
	var deps []string
	for i := range 50 {
		name := string(rune('A'+i/26)) + string(rune('a'+i%26))
		require.NoError(t, g.AddTask(name, nil, "", 0))
		deps = append(deps, name)
	}
	require.NoError(t, g.AddTask("join", deps, "", 0))
	require.NoError(t, g.Init())

	rec := newRecorder(nil)
	res, err := New(g, rec, Config{Workers: 8}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 51)

	events := rec.order()
	assert.Equal(t, "join", events[len(events)-1])
}
